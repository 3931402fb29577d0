package exploration

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/diversity"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/niches"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type Provenance string

const (
	ProvenanceDiscovered      Provenance = "discovered"
	ProvenanceTrending        Provenance = "trending"
	ProvenanceCrossPollinated Provenance = "cross-pollinated"
	ProvenanceRandomWalk      Provenance = "random-walk"
	ProvenanceAIGenerated     Provenance = "ai-generated"
)

type NicheExplorer interface {
	ChooseFocus(riskLevel int, forced bool) niches.FocusArea
	Discover(ctx context.Context, req niches.DiscoverRequest) []niches.DiscoveredNiche
	SelectWeighted(ns []niches.DiscoveredNiche, riskLevel int) (niches.DiscoveredNiche, error)
	PhraseFor(ctx context.Context, n niches.DiscoveredNiche, riskLevel int) (string, niches.PhraseSource)
	Float64() float64
}

type DiversityScorer interface {
	Score(ctx context.Context, userScope string, c diversity.Candidate) diversity.Score
	MinAcceptable() float64
}

type RecentNiches interface {
	NichesUsedSince(dbc dbctx.Context, userScope string, since time.Time) ([]string, error)
}

// Config fields left at zero take their defaults. ExploitOnly turns off
// unforced exploration.
type Config struct {
	Rate               float64
	ExploitOnly        bool
	UserCooldown       time.Duration
	BatchSize          int
	MaxAttempts        int
	DegradedConfidence float64
}

func DefaultConfig() Config {
	return Config{
		Rate:               0.3,
		UserCooldown:       4 * time.Hour,
		BatchSize:          15,
		MaxAttempts:        5,
		DegradedConfidence: 0.3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Rate <= 0 || c.Rate > 1 {
		c.Rate = d.Rate
	}
	if c.UserCooldown <= 0 {
		c.UserCooldown = d.UserCooldown
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.DegradedConfidence <= 0 || c.DegradedConfidence > 1 {
		c.DegradedConfidence = d.DegradedConfidence
	}
	return c
}

type Request struct {
	UserScope        string
	RiskLevel        int
	ForceExploration bool
	ExcludeNiches    []string
}

type Result struct {
	Niche      string                 `json:"niche"`
	Topic      string                 `json:"topic"`
	Phrase     string                 `json:"phrase"`
	Score      diversity.Score        `json:"diversity"`
	Provenance Provenance             `json:"provenance"`
	Confidence float64                `json:"confidence"`
	Attempts   int                    `json:"attempts"`
	Degraded   bool                   `json:"degraded"`
	Candidate  niches.DiscoveredNiche `json:"candidate"`
}

type Orchestrator struct {
	log     *logger.Logger
	niches  NicheExplorer
	scorer  DiversityScorer
	history RecentNiches
	cfg     Config
	now     func() time.Time
}

func NewOrchestrator(log *logger.Logger, explorer NicheExplorer, scorer DiversityScorer, history RecentNiches, cfg Config) *Orchestrator {
	return &Orchestrator{
		log:     log.With("service", "ExplorationOrchestrator"),
		niches:  explorer,
		scorer:  scorer,
		history: history,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// Explore returns one novel (niche, phrase) pair, or nil when this call
// decided to exploit or discovery produced no candidates at all.
func (o *Orchestrator) Explore(ctx context.Context, req Request) *Result {
	ctx, span := observability.StartSpan(ctx, "exploration.explore",
		attribute.Int("risk_level", req.RiskLevel),
		attribute.Bool("forced", req.ForceExploration),
	)
	defer span.End()

	if !req.ForceExploration && (o.cfg.ExploitOnly || o.niches.Float64() >= o.cfg.Rate) {
		observability.Current().ObserveExploration("exploit", 0)
		return nil
	}

	exclude := o.exclusions(ctx, req)
	focus := o.niches.ChooseFocus(req.RiskLevel, req.ForceExploration)
	candidates := o.niches.Discover(ctx, niches.DiscoverRequest{
		Count:     o.cfg.BatchSize,
		Exclude:   exclude,
		Focus:     focus,
		RiskLevel: req.RiskLevel,
		UserScope: req.UserScope,
	})
	if len(candidates) == 0 {
		o.log.Warn("exploration found no candidate niches", "focus", focus, "excluded", len(exclude))
		observability.Current().ObserveExploration("no_candidates", 0)
		return nil
	}

	minOK := o.scorer.MinAcceptable()
	var best *Result
	attempts := 0
	for attempts < o.cfg.MaxAttempts && len(candidates) > 0 {
		attempts++
		pick, err := o.niches.SelectWeighted(candidates, req.RiskLevel)
		if err != nil {
			break
		}
		candidates = without(candidates, pick.Name)

		phrase, phraseSrc := o.niches.PhraseFor(ctx, pick, req.RiskLevel)
		topic := pick.Name
		score := o.scorer.Score(ctx, req.UserScope, diversity.Candidate{Phrase: phrase, Niche: pick.Name, Topic: topic})

		res := &Result{
			Niche:      pick.Name,
			Topic:      topic,
			Phrase:     phrase,
			Score:      score,
			Provenance: provenanceFor(pick, focus, phraseSrc),
			Confidence: score.Overall,
			Attempts:   attempts,
			Candidate:  pick,
		}
		if score.Overall >= minOK {
			o.log.Info("exploration accepted candidate",
				"niche", pick.Name,
				"overall", score.Overall,
				"attempt", attempts,
				"provenance", res.Provenance,
			)
			observability.Current().ObserveExploration("accepted", attempts)
			span.SetAttributes(attribute.String("outcome", "accepted"), attribute.Int("attempts", attempts))
			return res
		}
		if best == nil || score.Overall > best.Score.Overall {
			best = res
		}
	}

	if best == nil {
		observability.Current().ObserveExploration("no_candidates", attempts)
		return nil
	}
	best.Attempts = attempts
	best.Degraded = true
	best.Confidence = o.cfg.DegradedConfidence
	o.log.Warn("exploration exhausted attempts; using best available",
		"niche", best.Niche,
		"overall", best.Score.Overall,
		"attempts", attempts,
	)
	observability.Current().ObserveExploration("degraded", attempts)
	span.SetAttributes(attribute.String("outcome", "degraded"), attribute.Int("attempts", attempts))
	return best
}

func (o *Orchestrator) exclusions(ctx context.Context, req Request) []string {
	out := append([]string(nil), req.ExcludeNiches...)
	if o.history == nil {
		return out
	}
	recent, err := o.history.NichesUsedSince(dbctx.Context{Ctx: ctx}, req.UserScope, o.now().Add(-o.cfg.UserCooldown))
	if err != nil {
		o.log.Warn("recent niches unavailable; excluding caller list only", "error", err)
		observability.Current().IncFallback("exploration", "history_error")
		return out
	}
	return append(out, recent...)
}

func provenanceFor(n niches.DiscoveredNiche, focus niches.FocusArea, phrase niches.PhraseSource) Provenance {
	switch n.Source {
	case niches.SourceCrossPollinated:
		return ProvenanceCrossPollinated
	case niches.SourceAIDiscovery:
		if focus == niches.FocusTrending || focus == niches.FocusEmerging || focus == niches.FocusSeasonal {
			return ProvenanceTrending
		}
		return ProvenanceDiscovered
	case niches.SourceStored:
		return ProvenanceDiscovered
	}
	if phrase == niches.PhraseAI {
		return ProvenanceAIGenerated
	}
	return ProvenanceRandomWalk
}

func without(ns []niches.DiscoveredNiche, name string) []niches.DiscoveredNiche {
	key := normalization.NormalizeKey(name)
	out := make([]niches.DiscoveredNiche, 0, len(ns))
	for _, n := range ns {
		if normalization.NormalizeKey(n.Name) != key {
			out = append(out, n)
		}
	}
	return out
}
