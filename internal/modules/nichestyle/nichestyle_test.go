package nichestyle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/cache"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/gcp"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

type fakeJSON struct {
	obj   map[string]any
	err   error
	calls int
}

func (f *fakeJSON) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	f.calls++
	return f.obj, f.err
}

func researchPayload() map[string]any {
	return map[string]any{
		"typography":         map[string]any{"primary": "Distressed slab serif", "weight": "bold", "effects": []any{"worn texture"}, "avoid": []any{"script"}},
		"palette":            map[string]any{"primary": []any{"navy", "burnt orange"}, "accent": []any{"cream"}, "background": "heather gray"},
		"layout":             map[string]any{"composition": "badge", "text_placement": "arched above icon", "icon_usage": "moderate"},
		"illustration_style": "vintage line art",
		"mood":               map[string]any{"primary": "outdoorsy nostalgia", "secondary": []any{"rugged"}, "avoid": []any{"neon"}},
		"audience":           "weekend anglers",
		"confidence":         0.72,
	}
}

func TestResearchCachesPerNiche(t *testing.T) {
	ai := &fakeJSON{obj: researchPayload()}
	r := NewResearcher(logger.Nop(), ai, cache.NewMemory(), time.Minute)

	first := r.Research(context.Background(), "Fishing")
	if first.Status != ResearchOK || !first.OK() {
		t.Fatalf("expected ok, got %+v", first)
	}
	p := first.Profile
	if p.Kind != KindResearched || p.Typography.Primary != "Distressed slab serif" || p.Layout.IconUsage != IconUsageModerate || p.Confidence != 0.72 {
		t.Fatalf("unexpected profile %+v", p)
	}

	second := r.Research(context.Background(), " fishing ")
	if second.Status != ResearchCached || second.Profile.Palette.Background != "heather gray" {
		t.Fatalf("expected cached result, got %+v", second)
	}
	if ai.calls != 1 {
		t.Fatalf("expected one AI call, got %d", ai.calls)
	}
}

func TestResearchFailureStatuses(t *testing.T) {
	if res := NewResearcher(logger.Nop(), nil, nil, 0).Research(context.Background(), "fishing"); res.Status != ResearchUnavailable || res.OK() {
		t.Fatalf("expected unavailable, got %+v", res)
	}
	cases := map[ResearchStatus]*fakeJSON{
		ResearchCallFailure: {err: errors.New("timeout")},
		ResearchUnavailable: {err: openai.ErrNotConfigured},
		ResearchParseError:  {obj: map[string]any{"confidence": 0.9}},
	}
	for want, ai := range cases {
		res := NewResearcher(logger.Nop(), ai, cache.NewMemory(), 0).Research(context.Background(), "fishing")
		if res.Status != want || res.Profile != nil {
			t.Fatalf("expected %s, got %+v", want, res)
		}
	}
}

type fakeImages struct {
	mu       sync.Mutex
	byURL    map[string]map[string]any
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeImages) GenerateJSONWithImages(ctx context.Context, system, user string, images []openai.ImageInput, schemaName string, schema map[string]any) (map[string]any, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.byURL[images[0].ImageURL]
	if !ok {
		return nil, errors.New("image fetch failed")
	}
	return obj, nil
}

type fakeColors struct{}

func (fakeColors) DominantColors(ctx context.Context, imageURL string, max int) ([]gcp.Color, error) {
	if strings.HasSuffix(imageURL, "novision") {
		return nil, gcp.ErrImageUnavailable
	}
	return []gcp.Color{{Hex: "#1f2a44", Score: 0.6}, {Hex: "#d9822b", Score: 0.3}}, nil
}

type memProfiles struct {
	rows map[string]*types.NicheStyleProfileRecord
}

func (m *memProfiles) Upsert(dbc dbctx.Context, row *types.NicheStyleProfileRecord) error {
	cp := *row
	m.rows[strings.ToLower(row.Niche)] = &cp
	return nil
}

func (m *memProfiles) GetByNiche(dbc dbctx.Context, niche string) (*types.NicheStyleProfileRecord, error) {
	return m.rows[strings.ToLower(strings.TrimSpace(niche))], nil
}

func analysis(typo, comp, mood string, colors ...any) map[string]any {
	return map[string]any{
		"typography": typo, "weight": "bold", "effects": []any{"distressed"},
		"composition": comp, "text_placement": "top", "icon_usage": "moderate",
		"illustration_style": "line art", "mood": mood, "secondary_moods": []any{},
		"colors": colors, "shirt_color": "black",
	}
}

func TestAnalyzerAggregatesAndPersists(t *testing.T) {
	imgs := &fakeImages{byURL: map[string]map[string]any{
		"u1":         analysis("slab serif", "badge", "nostalgic"),
		"u2":         analysis("slab serif", "badge", "rugged"),
		"u3":         analysis("script", "centered", "nostalgic"),
		"u4novision": analysis("slab serif", "badge", "nostalgic", "#ffffff"),
		"u5":         analysis("slab serif", "stacked", "nostalgic"),
	}}
	repo := &memProfiles{rows: map[string]*types.NicheStyleProfileRecord{}}
	store := NewStore(repo)
	a := NewAnalyzer(logger.Nop(), imgs, fakeColors{}, store)

	p, err := a.Analyze(context.Background(), "Fishing", []string{"u1", "u2", "u3", "u4novision", "u5", "missing", " "})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p.SampleSize != 5 || p.Kind != KindAnalyzed {
		t.Fatalf("expected 5 analyzed samples, got %+v", p)
	}
	if p.Typography.Primary != "slab serif" || p.Layout.Composition != "badge" || p.Mood.Primary != "nostalgic" {
		t.Fatalf("unexpected majority vote %+v", p)
	}
	if p.Palette.Primary[0] != "#1f2a44" || p.Palette.Background != "black" {
		t.Fatalf("unexpected palette %+v", p.Palette)
	}
	if p.Confidence <= 0 || p.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", p.Confidence)
	}
	if peak := imgs.peak.Load(); peak > analysisBatchLimit {
		t.Fatalf("expected at most %d concurrent analyses, saw %d", analysisBatchLimit, peak)
	}

	loaded, err := store.Analyzed(context.Background(), "fishing")
	if err != nil || loaded == nil {
		t.Fatalf("Analyzed: %v %v", loaded, err)
	}
	if loaded.Typography.Primary != "slab serif" || loaded.Kind != KindAnalyzed {
		t.Fatalf("unexpected stored profile %+v", loaded)
	}
}

func TestAnalyzerNoUsableImages(t *testing.T) {
	a := NewAnalyzer(logger.Nop(), &fakeImages{byURL: map[string]map[string]any{}}, nil, nil)
	if _, err := a.Analyze(context.Background(), "fishing", []string{"x", "y"}); !errors.Is(err, ErrNoAnalyses) {
		t.Fatalf("expected ErrNoAnalyses, got %v", err)
	}
	if _, err := NewAnalyzer(logger.Nop(), nil, nil, nil).Analyze(context.Background(), "fishing", []string{"x"}); !errors.Is(err, openai.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestConfidenceGrowsWithAgreementAndSamples(t *testing.T) {
	agree := newVote()
	split := newVote()
	for i := 0; i < 8; i++ {
		agree.add("a")
		split.add(string(rune('a' + i%2)))
	}
	if c := confidence(8, agree); c != 1 {
		t.Fatalf("expected full confidence, got %v", c)
	}
	if c := confidence(8, split); c != 0.5 {
		t.Fatalf("expected 0.5 for a split vote, got %v", c)
	}
	small := newVote()
	small.add("a")
	small.add("a")
	if c := confidence(2, small); c != 0.63 {
		t.Fatalf("expected small sample to be discounted to 0.63, got %v", c)
	}
}
