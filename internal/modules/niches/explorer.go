package niches

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/catalog"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/graph"
	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

const (
	storedLookback   = 30 * 24 * time.Hour
	approvedLookback = 30 * 24 * time.Hour
)

type AI interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type DiscoveryStore interface {
	SaveDiscovered(dbc dbctx.Context, rows []*types.DiscoveredNicheRecord) error
	ListRecent(dbc dbctx.Context, since time.Time, limit int, exclude []string) ([]*types.DiscoveredNicheRecord, error)
}

type ApprovedHistory interface {
	RecentApprovedNiches(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]string, error)
}

type RelationGraph interface {
	UpsertRelations(ctx context.Context, rels []graph.NicheRelation) error
	Related(ctx context.Context, seeds []string, limit int) ([]graph.RelatedNiche, error)
}

// Deps are all optional except Catalog.
type Deps struct {
	AI      AI
	Store   DiscoveryStore
	History ApprovedHistory
	Graph   RelationGraph
	Catalog *catalog.Catalog
	Rand    *rand.Rand
}

type Explorer struct {
	log     *logger.Logger
	ai      AI
	store   DiscoveryStore
	history ApprovedHistory
	graph   RelationGraph
	cat     *catalog.Catalog
	norm    *normalization.Normalizer
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewExplorer(log *logger.Logger, deps Deps) *Explorer {
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var banned []string
	if deps.Catalog != nil {
		banned = deps.Catalog.BannedWords
	}
	return &Explorer{
		log:     log.With("service", "NicheExplorer"),
		ai:      deps.AI,
		store:   deps.Store,
		history: deps.History,
		graph:   deps.Graph,
		cat:     deps.Catalog,
		norm:    normalization.New(banned),
		now:     time.Now,
		rng:     rng,
	}
}

// Float64 draws from the explorer's random source. Safe for concurrent use.
func (e *Explorer) Float64() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

func (e *Explorer) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

func (e *Explorer) shuffle(ns []DiscoveredNiche) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(len(ns), func(i, j int) { ns[i], ns[j] = ns[j], ns[i] })
}

// ChooseFocus picks the discovery focus: risk based normally, a random roll when forced.
func (e *Explorer) ChooseFocus(riskLevel int, forced bool) FocusArea {
	if forced {
		return ForcedFocus(e.Float64())
	}
	return FocusForRisk(riskLevel)
}

type DiscoverRequest struct {
	Count     int
	Exclude   []string
	Focus     FocusArea
	RiskLevel int
	UserScope string
}

// Discover returns up to Count candidate niches, none of them in Exclude.
// AI discovery is tried first; stored discoveries and then the static pool
// fill in when it is unavailable or unusable.
func (e *Explorer) Discover(ctx context.Context, req DiscoverRequest) []DiscoveredNiche {
	if req.Count <= 0 {
		req.Count = 15
	}
	if req.Focus == "" {
		req.Focus = FocusForRisk(req.RiskLevel)
	}
	ctx, span := observability.StartSpan(ctx, "niches.discover",
		attribute.String("focus", string(req.Focus)),
		attribute.Int("count", req.Count),
	)
	defer span.End()

	excluded := keySet(req.Exclude)
	res := e.discoverAI(ctx, req)

	var out []DiscoveredNiche
	if res.Status == DiscoveryOK {
		out = filterNiches(res.Niches, excluded)
		if len(out) > 0 {
			e.remember(ctx, req.Focus, out)
		} else {
			e.log.Warn("ai discovery returned only excluded niches", "focus", req.Focus)
			observability.Current().IncFallback("niches", "all_excluded")
		}
	} else {
		fields := []any{"focus", req.Focus, "status", res.Status}
		if res.Err != nil {
			fields = append(fields, "error", res.Err)
		}
		e.log.Warn("ai discovery unusable; using fallback pool", fields...)
		observability.Current().IncFallback("niches", string(res.Status))
	}

	if len(out) == 0 {
		out = e.fallback(ctx, req, excluded)
	} else if len(out) > req.Count {
		e.shuffle(out)
		out = out[:req.Count]
	}

	out = e.blendCrossPollinated(ctx, req, out, excluded)
	span.SetAttributes(attribute.Int("returned", len(out)), attribute.String("ai_status", string(res.Status)))
	return out
}

func (e *Explorer) fallback(ctx context.Context, req DiscoverRequest, excluded map[string]bool) []DiscoveredNiche {
	stored := filterNiches(e.storedNiches(ctx, req), excluded)
	e.shuffle(stored)

	static := filterNiches(e.StaticPool(), excluded)
	e.shuffle(static)

	out := dedupeNiches(append(stored, static...))
	if len(out) > req.Count {
		out = out[:req.Count]
	}
	return out
}

func (e *Explorer) storedNiches(ctx context.Context, req DiscoverRequest) []DiscoveredNiche {
	if e.store == nil {
		return nil
	}
	rows, err := e.store.ListRecent(dbctx.Context{Ctx: ctx}, e.now().Add(-storedLookback), req.Count*2, req.Exclude)
	if err != nil {
		e.log.Warn("stored discoveries unavailable", "error", err)
		return nil
	}
	out := make([]DiscoveredNiche, 0, len(rows))
	for _, r := range rows {
		if r == nil || strings.TrimSpace(r.Name) == "" {
			continue
		}
		n := DiscoveredNiche{
			Name:         r.Name,
			Description:  r.Description,
			Audience:     ParseAudience(r.Audience),
			Trend:        ParseTrend(r.Trend),
			Competition:  ParseCompetition(r.Competition),
			Source:       SourceStored,
			DiscoveredAt: r.DiscoveredAt,
		}
		n.Phrases = e.decodeList(r.Name, "phrases", r.PhrasesJSON)
		n.Related = e.decodeList(r.Name, "related", r.RelatedJSON)
		out = append(out, n)
	}
	return out
}

func (e *Explorer) decodeList(niche, field string, raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		e.log.Debug("stored niche list undecodable", "niche", niche, "field", field, "error", err)
		return nil
	}
	return out
}

// StaticPool converts the catalog's curated niche list.
func (e *Explorer) StaticPool() []DiscoveredNiche {
	if e.cat == nil {
		return nil
	}
	now := e.now()
	out := make([]DiscoveredNiche, 0, len(e.cat.NichePool))
	for _, p := range e.cat.NichePool {
		out = append(out, poolNiche(p, now))
	}
	return out
}

func poolNiche(p catalog.PoolNiche, now time.Time) DiscoveredNiche {
	return DiscoveredNiche{
		Name:         p.Name,
		Description:  p.Description,
		Audience:     ParseAudience(p.Audience),
		Trend:        ParseTrend(p.Trend),
		Competition:  ParseCompetition(p.Competition),
		Phrases:      append([]string(nil), p.Phrases...),
		Related:      append([]string(nil), p.Related...),
		Source:       SourceStaticPool,
		DiscoveredAt: now,
	}
}

// blendCrossPollinated swaps in a few graph neighbours of the user's approved
// niches. It is a no-op without a graph or approval history.
func (e *Explorer) blendCrossPollinated(ctx context.Context, req DiscoverRequest, in []DiscoveredNiche, excluded map[string]bool) []DiscoveredNiche {
	if e.graph == nil || e.history == nil {
		return in
	}
	seeds, err := e.history.RecentApprovedNiches(dbctx.Context{Ctx: ctx}, req.UserScope, e.now().Add(-approvedLookback), 10)
	if err != nil {
		e.log.Warn("approved niches unavailable", "error", err)
		return in
	}
	if len(seeds) == 0 {
		return in
	}
	want := req.Count / 5
	if want < 1 {
		want = 1
	}
	related, err := e.graph.Related(ctx, seeds, want*3)
	if err != nil {
		e.log.Warn("niche graph lookup failed", "error", err)
		observability.Current().IncFallback("niches", "graph_error")
		return in
	}

	have := map[string]bool{}
	for _, n := range in {
		have[normalization.NormalizeKey(n.Name)] = true
	}
	pool := map[string]catalog.PoolNiche{}
	if e.cat != nil {
		for _, p := range e.cat.NichePool {
			pool[normalization.NormalizeKey(p.Name)] = p
		}
	}

	now := e.now()
	extra := []DiscoveredNiche{}
	for _, r := range related {
		key := normalization.NormalizeKey(r.Name)
		if key == "" || excluded[key] || have[key] {
			continue
		}
		n := DiscoveredNiche{
			Name:         r.Name,
			Description:  "Shares an audience with niches you approved recently",
			Audience:     AudienceMedium,
			Trend:        TrendGrowing,
			Competition:  CompetitionMedium,
			DiscoveredAt: now,
		}
		if p, ok := pool[key]; ok {
			n = poolNiche(p, now)
		}
		n.Source = SourceCrossPollinated
		extra = append(extra, n)
		have[key] = true
		if len(extra) == want {
			break
		}
	}
	if len(extra) == 0 {
		return in
	}

	out := append([]DiscoveredNiche(nil), in...)
	if room := req.Count - len(out); room < len(extra) {
		// Make room by dropping from the tail.
		drop := len(extra) - room
		if drop > len(out) {
			drop = len(out)
		}
		out = out[:len(out)-drop]
	}
	return append(out, extra...)
}

// remember persists AI discoveries and their relations. Failures only log.
func (e *Explorer) remember(ctx context.Context, focus FocusArea, ns []DiscoveredNiche) {
	if e.store != nil {
		rows := make([]*types.DiscoveredNicheRecord, 0, len(ns))
		for _, n := range ns {
			phrases, _ := json.Marshal(n.Phrases)
			related, _ := json.Marshal(n.Related)
			rows = append(rows, &types.DiscoveredNicheRecord{
				Name:         n.Name,
				Description:  n.Description,
				Audience:     string(n.Audience),
				Trend:        string(n.Trend),
				Competition:  string(n.Competition),
				FocusArea:    string(focus),
				Source:       string(n.Source),
				PhrasesJSON:  datatypes.JSON(phrases),
				RelatedJSON:  datatypes.JSON(related),
				DiscoveredAt: n.DiscoveredAt,
			})
		}
		if err := e.store.SaveDiscovered(dbctx.Context{Ctx: ctx}, rows); err != nil {
			e.log.Warn("failed to store discovered niches", "count", len(rows), "error", err)
		}
	}
	if e.graph != nil {
		rels := []graph.NicheRelation{}
		for _, n := range ns {
			for _, r := range n.Related {
				rels = append(rels, graph.NicheRelation{From: n.Name, To: r, Weight: 1})
			}
		}
		if len(rels) > 0 {
			if err := e.graph.UpsertRelations(ctx, rels); err != nil {
				e.log.Warn("failed to upsert niche relations", "count", len(rels), "error", err)
			}
		}
	}
}

// SelectWeighted draws one niche by roulette selection over NicheWeight.
func (e *Explorer) SelectWeighted(ns []DiscoveredNiche, riskLevel int) (DiscoveredNiche, error) {
	if len(ns) == 0 {
		return DiscoveredNiche{}, ErrNoCandidates
	}
	return ns[pickWeighted(ns, riskLevel, e.Float64())], nil
}

func keySet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		if k := normalization.NormalizeKey(n); k != "" {
			out[k] = true
		}
	}
	return out
}

func filterNiches(in []DiscoveredNiche, excluded map[string]bool) []DiscoveredNiche {
	out := make([]DiscoveredNiche, 0, len(in))
	for _, n := range in {
		k := normalization.NormalizeKey(n.Name)
		if k == "" || excluded[k] {
			continue
		}
		out = append(out, n)
	}
	return dedupeNiches(out)
}

func dedupeNiches(in []DiscoveredNiche) []DiscoveredNiche {
	seen := map[string]bool{}
	out := in[:0]
	for _, n := range in {
		k := normalization.NormalizeKey(n.Name)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}
