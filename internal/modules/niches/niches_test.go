package niches

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/catalog"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/graph"
	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

type fakeAI struct {
	obj      map[string]any
	jsonErr  error
	text     string
	textErr  error
	schemas  []string
	textCall int
}

func (f *fakeAI) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.schemas = append(f.schemas, schemaName)
	return f.obj, f.jsonErr
}

func (f *fakeAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.textCall++
	return f.text, f.textErr
}

type fakeStore struct {
	saved []*types.DiscoveredNicheRecord
	rows  []*types.DiscoveredNicheRecord
}

func (f *fakeStore) SaveDiscovered(dbc dbctx.Context, rows []*types.DiscoveredNicheRecord) error {
	f.saved = append(f.saved, rows...)
	return nil
}

func (f *fakeStore) ListRecent(dbc dbctx.Context, since time.Time, limit int, exclude []string) ([]*types.DiscoveredNicheRecord, error) {
	return f.rows, nil
}

type fakeApproved struct{ niches []string }

func (f fakeApproved) RecentApprovedNiches(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]string, error) {
	return f.niches, nil
}

type fakeGraph struct {
	related  []graph.RelatedNiche
	upserted []graph.NicheRelation
}

func (f *fakeGraph) UpsertRelations(ctx context.Context, rels []graph.NicheRelation) error {
	f.upserted = append(f.upserted, rels...)
	return nil
}

func (f *fakeGraph) Related(ctx context.Context, seeds []string, limit int) ([]graph.RelatedNiche, error) {
	return f.related, nil
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Embedded()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func newTestExplorer(t *testing.T, deps Deps) *Explorer {
	t.Helper()
	if deps.Catalog == nil {
		deps.Catalog = testCatalog(t)
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(7))
	}
	return NewExplorer(logger.Nop(), deps)
}

func TestNicheWeight(t *testing.T) {
	cases := []struct {
		n    DiscoveredNiche
		risk int
		want float64
	}{
		{DiscoveredNiche{Competition: CompetitionBlueOcean, Trend: TrendExploding}, 80, 6},
		{DiscoveredNiche{Competition: CompetitionLow, Trend: TrendGrowing}, 80, 3},
		{DiscoveredNiche{Competition: CompetitionSaturated, Trend: TrendStable}, 20, 0.3 * 1.5},
		{DiscoveredNiche{Competition: CompetitionMedium, Trend: TrendExploding}, 20, 1},
		{DiscoveredNiche{Competition: CompetitionHigh, Trend: TrendStable}, 80, 1},
	}
	for i, c := range cases {
		if got := NicheWeight(c.n, c.risk); got < c.want-1e-9 || got > c.want+1e-9 {
			t.Fatalf("case %d: expected %v got %v", i, c.want, got)
		}
	}
}

func TestPickWeightedRoulette(t *testing.T) {
	ns := []DiscoveredNiche{
		{Name: "a", Competition: CompetitionMedium},    // 1
		{Name: "b", Competition: CompetitionBlueOcean}, // 3
	}
	if got := pickWeighted(ns, 20, 0.2); got != 0 {
		t.Fatalf("roll 0.2 of 4 should land in a, got %d", got)
	}
	if got := pickWeighted(ns, 20, 0.25); got != 1 {
		t.Fatalf("roll 0.25 of 4 should land in b, got %d", got)
	}
	if got := pickWeighted(ns, 20, 0.999); got != 1 {
		t.Fatalf("expected last bucket, got %d", got)
	}
}

func TestFocusSelection(t *testing.T) {
	risk := map[int]FocusArea{0: FocusEvergreen, 29: FocusEvergreen, 30: FocusRandom, 49: FocusRandom, 50: FocusTrending, 69: FocusTrending, 70: FocusEmerging, 100: FocusEmerging}
	for r, want := range risk {
		if got := FocusForRisk(r); got != want {
			t.Fatalf("risk %d: expected %s got %s", r, want, got)
		}
	}
	rolls := map[float64]FocusArea{0.1: FocusEmerging, 0.5: FocusTrending, 0.7: FocusSeasonal, 0.9: FocusRandom}
	for roll, want := range rolls {
		if got := ForcedFocus(roll); got != want {
			t.Fatalf("roll %v: expected %s got %s", roll, want, got)
		}
	}
}

func TestDiscoverWithoutAIUsesStaticPoolAndHonoursExclusions(t *testing.T) {
	e := newTestExplorer(t, Deps{})
	pool := e.StaticPool()
	if len(pool) < 20 {
		t.Fatalf("expected a large static pool, got %d", len(pool))
	}
	exclude := []string{}
	for _, n := range pool[:len(pool)-5] {
		exclude = append(exclude, strings.ToUpper(n.Name))
	}

	for i := 0; i < 20; i++ {
		got := e.Discover(context.Background(), DiscoverRequest{Count: 15, Exclude: exclude, RiskLevel: 40})
		if len(got) != 5 {
			t.Fatalf("expected the 5 non-excluded niches, got %d", len(got))
		}
		pick, err := e.SelectWeighted(got, 40)
		if err != nil {
			t.Fatalf("SelectWeighted: %v", err)
		}
		for _, x := range exclude {
			if normalization.NormalizeKey(x) == normalization.NormalizeKey(pick.Name) {
				t.Fatalf("selected excluded niche %q", pick.Name)
			}
		}
		if pick.Source != SourceStaticPool {
			t.Fatalf("expected static pool source, got %s", pick.Source)
		}
	}
}

func TestDiscoverTruncatesToCount(t *testing.T) {
	e := newTestExplorer(t, Deps{})
	if got := e.Discover(context.Background(), DiscoverRequest{Count: 4}); len(got) != 4 {
		t.Fatalf("expected 4, got %d", len(got))
	}
}

func TestDiscoverAIPathStoresAndLinks(t *testing.T) {
	ai := &fakeAI{obj: map[string]any{"niches": []any{
		map[string]any{"name": "Mushroom Foraging", "description": "fungi fans", "audience_size": "small", "trend": "exploding", "competition": "blue_ocean", "phrases": []any{"Fungi To Be With"}, "related": []any{"hiking"}},
		map[string]any{"name": "Retired Teachers", "description": "", "audience_size": "large", "trend": "stable", "competition": "low", "phrases": []any{}, "related": []any{}},
		map[string]any{"name": ""},
	}}}
	store := &fakeStore{}
	g := &fakeGraph{}
	e := newTestExplorer(t, Deps{AI: ai, Store: store, Graph: g})

	got := e.Discover(context.Background(), DiscoverRequest{Count: 15, Exclude: []string{"retired teachers"}, Focus: FocusEmerging})
	if len(got) != 1 || got[0].Name != "Mushroom Foraging" || got[0].Source != SourceAIDiscovery {
		t.Fatalf("unexpected discovery: %+v", got)
	}
	if got[0].Competition != CompetitionBlueOcean || got[0].Trend != TrendExploding {
		t.Fatalf("enums not parsed: %+v", got[0])
	}
	if len(ai.schemas) != 1 || ai.schemas[0] != discoverySchemaName {
		t.Fatalf("unexpected schema calls: %v", ai.schemas)
	}
	if len(store.saved) != 1 || store.saved[0].FocusArea != "emerging" {
		t.Fatalf("expected discovery to be stored, got %d", len(store.saved))
	}
	if len(g.upserted) != 1 || g.upserted[0].To != "hiking" {
		t.Fatalf("expected relation upsert, got %+v", g.upserted)
	}
}

func TestDiscoverFallsBackOnAIFailureOrGarbage(t *testing.T) {
	for name, ai := range map[string]*fakeAI{
		"call_failure":    {jsonErr: errors.New("boom")},
		"not_configured":  {jsonErr: openai.ErrNotConfigured},
		"parse_error":     {obj: map[string]any{"unexpected": true}},
		"no_usable_items": {obj: map[string]any{"niches": []any{"junk", map[string]any{"name": " "}}}},
	} {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{rows: []*types.DiscoveredNicheRecord{{Name: "Sourdough Bakers", Competition: "low", PhrasesJSON: []byte(`["Knead To Know"]`)}}}
			e := newTestExplorer(t, Deps{AI: ai, Store: store})
			got := e.Discover(context.Background(), DiscoverRequest{Count: 5})
			if len(got) != 5 {
				t.Fatalf("expected 5 fallback niches, got %d", len(got))
			}
			if got[0].Source != SourceStored || got[0].Phrases[0] != "Knead To Know" {
				t.Fatalf("expected stored discoveries first, got %+v", got[0])
			}
			for _, n := range got[1:] {
				if n.Source != SourceStaticPool {
					t.Fatalf("expected static pool after stored, got %s", n.Source)
				}
			}
		})
	}
}

func TestDiscoverResultStatus(t *testing.T) {
	e := newTestExplorer(t, Deps{})
	if res := e.discoverAI(context.Background(), DiscoverRequest{}); res.Status != DiscoveryUnavailable {
		t.Fatalf("expected unavailable without AI, got %s", res.Status)
	}
	e = newTestExplorer(t, Deps{AI: &fakeAI{obj: map[string]any{"niches": "nope"}}})
	if res := e.discoverAI(context.Background(), DiscoverRequest{}); res.Status != DiscoveryParseError || res.Niches != nil {
		t.Fatalf("expected parse error, got %+v", res)
	}
}

func TestDiscoverBlendsCrossPollinatedNiches(t *testing.T) {
	g := &fakeGraph{related: []graph.RelatedNiche{{Name: "dog mom", Weight: 2}, {Name: "Cat Dads", Weight: 1}}}
	e := newTestExplorer(t, Deps{Graph: g, History: fakeApproved{niches: []string{"dog dad"}}})

	got := e.Discover(context.Background(), DiscoverRequest{Count: 10, Exclude: []string{"dog mom"}})
	if len(got) != 10 {
		t.Fatalf("expected 10, got %d", len(got))
	}
	last := got[len(got)-1]
	if last.Source != SourceCrossPollinated || last.Name != "Cat Dads" {
		t.Fatalf("expected cross-pollinated Cat Dads appended, got %+v", last)
	}
}

func TestSelectWeightedEmpty(t *testing.T) {
	e := newTestExplorer(t, Deps{})
	if _, err := e.SelectWeighted(nil, 50); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestPhraseForCascade(t *testing.T) {
	ai := &fakeAI{text: "\"Reel Cool Grandpa\"\nextra"}
	e := newTestExplorer(t, Deps{AI: ai})

	p, src := e.PhraseFor(context.Background(), DiscoveredNiche{Name: "fishing", Phrases: []string{"Gone Fishing Again"}}, 50)
	if src != PhraseSuggested || p != "Gone Fishing Again" || ai.textCall != 0 {
		t.Fatalf("expected suggested phrase, got %q %s", p, src)
	}

	p, src = e.PhraseFor(context.Background(), DiscoveredNiche{Name: "fishing"}, 50)
	if src != PhraseAI || p != "Reel Cool Grandpa" {
		t.Fatalf("expected ai phrase, got %q %s", p, src)
	}

	ai.text = "this phrase is far too long to print"
	p, src = e.PhraseFor(context.Background(), DiscoveredNiche{Name: "night shift nurses"}, 50)
	if src != PhraseTemplate || !strings.Contains(p, "Night Shift Nurses") {
		t.Fatalf("expected template phrase, got %q %s", p, src)
	}
}

func TestGeneratedTextDropsBannedWords(t *testing.T) {
	ai := &fakeAI{
		text: "Best Seller Nurse Life Rocks",
		obj: map[string]any{"niches": []any{
			map[string]any{"name": "Amazon Night Nurses", "description": "guaranteed fans", "audience_size": "medium", "trend": "growing", "competition": "low", "phrases": []any{"Best Seller Coffee Mom", "Amazon"}, "related": []any{}},
		}},
	}
	e := newTestExplorer(t, Deps{AI: ai})

	p, src := e.PhraseFor(context.Background(), DiscoveredNiche{Name: "nurses"}, 50)
	if src != PhraseAI || p != "Nurse Life Rocks" {
		t.Fatalf("expected banned words stripped from ai phrase, got %q %s", p, src)
	}

	ai.text = "Amazon Best Seller Nurse"
	p, src = e.PhraseFor(context.Background(), DiscoveredNiche{Name: "nurses"}, 50)
	if src != PhraseTemplate || strings.Contains(strings.ToLower(p), "amazon") {
		t.Fatalf("expected template after stripping left too few words, got %q %s", p, src)
	}

	got := e.Discover(context.Background(), DiscoverRequest{Count: 5})
	if len(got) != 1 || got[0].Name != "Night Nurses" {
		t.Fatalf("expected banned word stripped from niche name, got %+v", got)
	}
	if len(got[0].Phrases) != 1 || got[0].Phrases[0] != "Coffee Mom" {
		t.Fatalf("expected cleaned phrases, got %v", got[0].Phrases)
	}
	if got[0].Description != "fans" {
		t.Fatalf("expected cleaned description, got %q", got[0].Description)
	}

	suggested, src := e.PhraseFor(context.Background(), DiscoveredNiche{Name: "nurses", Phrases: []string{"Amazon Nurse Squad"}}, 50)
	if src != PhraseSuggested || suggested != "Nurse Squad" {
		t.Fatalf("expected cleaned suggested phrase, got %q %s", suggested, src)
	}
}

func TestStoredNicheWithCorruptListsIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	store := &fakeStore{rows: []*types.DiscoveredNicheRecord{{
		Name:        "Sourdough Bakers",
		PhrasesJSON: []byte(`{not json`),
		RelatedJSON: []byte(`["bread lovers"]`),
	}}}
	e := NewExplorer(log, Deps{Store: store, Catalog: testCatalog(t), Rand: rand.New(rand.NewSource(1))})

	got := e.storedNiches(context.Background(), DiscoverRequest{Count: 3})
	if len(got) != 1 || got[0].Phrases != nil || len(got[0].Related) != 1 {
		t.Fatalf("unexpected stored niche %+v", got)
	}
	entries := logs.FilterMessage("stored niche list undecodable").All()
	if len(entries) != 1 {
		t.Fatalf("expected one decode log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["niche"] != "Sourdough Bakers" || fields["field"] != "phrases" {
		t.Fatalf("unexpected log fields %v", fields)
	}
}
