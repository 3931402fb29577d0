package brief

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/catalog"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/nichestyle"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type fakeResearcher struct {
	res   nichestyle.ResearchResult
	calls int
}

func (f *fakeResearcher) Research(ctx context.Context, niche string) nichestyle.ResearchResult {
	f.calls++
	return f.res
}

type fakeAnalyzed struct {
	p   *nichestyle.Profile
	err error
}

func (f fakeAnalyzed) Analyzed(ctx context.Context, niche string) (*nichestyle.Profile, error) {
	return f.p, f.err
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Embedded()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func analyzedProfile() *nichestyle.Profile {
	return &nichestyle.Profile{
		Kind:              nichestyle.KindAnalyzed,
		Typography:        nichestyle.Typography{Primary: "heavy slab serif", Weight: "black", Effects: []string{"worn ink"}, Avoid: []string{"script"}},
		Palette:           nichestyle.Palette{Primary: []string{"#1f2a44", "#d9822b"}, Background: "sand"},
		Layout:            nichestyle.Layout{Composition: "circular badge", TextPlacement: "arched top", IconUsage: nichestyle.IconUsageModerate},
		IllustrationStyle: "engraved line art",
		Mood:              nichestyle.Mood{Primary: "rugged lakeside nostalgia", Avoid: []string{"neon"}},
		Confidence:        0.9,
		SampleSize:        12,
	}
}

func researchedProfile() *nichestyle.Profile {
	return &nichestyle.Profile{
		Kind:       nichestyle.KindResearched,
		Typography: nichestyle.Typography{Primary: "researched grotesk"},
		Palette:    nichestyle.Palette{Primary: []string{"forest green"}, Background: "charcoal"},
		Layout:     nichestyle.Layout{Composition: "stacked lockup", TextPlacement: "center"},
		Mood:       nichestyle.Mood{Primary: "researched outdoors mood"},
		Confidence: 0.72,
	}
}

func newBuilder(t *testing.T, cat *catalog.Catalog, r StyleResearcher, cfg Config) *Builder {
	t.Helper()
	return NewBuilder(logger.Nop(), cat, r, nil, cfg)
}

func build(t *testing.T, b *Builder, trend TrendSignal, p *nichestyle.Profile, u *UserOverrides) *Brief {
	t.Helper()
	out, err := b.BuildBrief(context.Background(), trend, p, u)
	if err != nil {
		t.Fatalf("BuildBrief: %v", err)
	}
	return out
}

func TestBuildBriefKeepsTextVerbatim(t *testing.T) {
	b := newBuilder(t, testCatalog(t), nil, Config{})
	out := build(t, b, TrendSignal{DesignText: "Coffee Then Adulting"}, nil, nil)
	if out.Text.Exact != "Coffee Then Adulting" || !out.Text.PreserveCase {
		t.Fatalf("expected verbatim text, got %+v", out.Text)
	}

	out = build(t, b, TrendSignal{DesignText: "Coffee Then Adulting"}, nil, &UserOverrides{Text: "Mine Instead"})
	if out.Text.Exact != "Mine Instead" {
		t.Fatalf("expected user override, got %q", out.Text.Exact)
	}
	out = build(t, b, TrendSignal{Topic: "gardening"}, nil, nil)
	if out.Text.Exact != "gardening" {
		t.Fatalf("expected topic fallback, got %q", out.Text.Exact)
	}
	out = build(t, b, TrendSignal{}, nil, nil)
	if out.Text.Exact != "Design" {
		t.Fatalf("expected literal Design, got %q", out.Text.Exact)
	}
}

func TestBuildBriefIsTotal(t *testing.T) {
	cats := []*catalog.Catalog{testCatalog(t), nil}
	trends := []TrendSignal{
		{},
		{DesignText: "x"},
		{Niche: "fishing", VisualStyle: "vintage warm"},
		{Niche: "unknown niche", Tone: "nonsense", ColorPalette: " ; , "},
		{Topic: "dogs", TextLayout: &TextLayout{Reasoning: "text only"}},
		{Niche: "nurse", Typography: "serif", DesignStyle: "minimal", TextLayout: &TextLayout{Positioning: "left aligned"}},
	}
	profiles := []*nichestyle.Profile{nil, {}, analyzedProfile()}
	researchers := []StyleResearcher{nil,
		&fakeResearcher{res: nichestyle.ResearchResult{Status: nichestyle.ResearchCallFailure, Err: errors.New("x")}},
		&fakeResearcher{res: nichestyle.ResearchResult{Status: nichestyle.ResearchOK, Profile: researchedProfile()}},
	}
	overrides := []*UserOverrides{nil, {}, {Style: "retro playful", Tone: "funny"}}

	for _, cat := range cats {
		for _, r := range researchers {
			for _, policy := range []IconPolicy{IconIncludeByDefault, IconTextOnlyByDefault} {
				b := newBuilder(t, cat, r, Config{IconPolicy: policy})
				for _, tr := range trends {
					for _, p := range profiles {
						for _, u := range overrides {
							out := build(t, b, tr, p, u)
							s := out.Style
							if out.Text.Exact == "" || s.Typography.Required == "" || len(s.ColorApproach.Palette) == 0 ||
								s.Aesthetic.Primary == "" || s.Layout.Composition == "" || s.ColorApproach.ShirtColor == "" ||
								s.ColorApproach.Mood == "" || out.Context.Tone == "" || out.Context.Audience == "" {
								t.Fatalf("incomplete brief for trend=%+v profile=%v: %+v", tr, p != nil, out)
							}
							if s.Source == sourceTone || s.Source == sourceFallback {
								t.Fatalf("internal source leaked: %s", s.Source)
							}
						}
					}
				}
			}
		}
	}
}

func TestTypographyCascade(t *testing.T) {
	cat := testCatalog(t)
	research := &fakeResearcher{res: nichestyle.ResearchResult{Status: nichestyle.ResearchOK, Profile: researchedProfile()}}
	cases := []struct {
		name    string
		cat     *catalog.Catalog
		r       StyleResearcher
		trend   TrendSignal
		profile *nichestyle.Profile
		user    *UserOverrides
		want    string
		effects []string
	}{
		{"analyzed", cat, research, TrendSignal{Niche: "fishing", Typography: "explicit"}, analyzedProfile(), nil, "heavy slab serif", []string{"worn ink"}},
		{"explicit trend", cat, research, TrendSignal{Niche: "fishing", Typography: "explicit grotesk", VisualStyle: "vintage"}, nil, nil, "explicit grotesk", []string{}},
		{"visual sniff", cat, research, TrendSignal{Niche: "fishing", VisualStyle: "Vintage badge look"}, nil, &UserOverrides{Style: "modern"}, "vintage serif", []string{"distressed texture"}},
		{"user sniff", cat, research, TrendSignal{Niche: "fishing"}, nil, &UserOverrides{Style: "retro"}, "retro display type", []string{"drop shadow"}},
		{"research", cat, research, TrendSignal{Niche: "fishing"}, nil, nil, "researched grotesk", []string{}},
		{"niche default", cat, nil, TrendSignal{Niche: "fishing"}, nil, nil, "vintage outdoor serif", []string{"distressed texture"}},
		{"tone", cat, nil, TrendSignal{Niche: "zorbing", Tone: "funny"}, nil, nil, "playful bold sans-serif with slight bounce", []string{"slight rotation", "bouncy baseline"}},
		{"fallback", nil, nil, TrendSignal{}, nil, nil, "bold readable sans-serif", []string{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := build(t, newBuilder(t, c.cat, c.r, Config{}), c.trend, c.profile, c.user)
			if out.Style.Typography.Required != c.want {
				t.Fatalf("expected %q got %q", c.want, out.Style.Typography.Required)
			}
			if !reflect.DeepEqual(out.Style.Typography.Effects, c.effects) {
				t.Fatalf("expected effects %v got %v", c.effects, out.Style.Typography.Effects)
			}
		})
	}
}

func TestColorCascadeAndMood(t *testing.T) {
	cat := testCatalog(t)

	out := build(t, newBuilder(t, cat, nil, Config{}), TrendSignal{Niche: "fishing", ColorPalette: "navy, burnt orange; cream"}, analyzedProfile(), nil)
	if !reflect.DeepEqual(out.Style.ColorApproach.Palette, []string{"#1f2a44", "#d9822b"}) || out.Style.ColorApproach.ShirtColor != "sand" {
		t.Fatalf("expected analyzed palette, got %+v", out.Style.ColorApproach)
	}

	out = build(t, newBuilder(t, cat, nil, Config{}), TrendSignal{Niche: "fishing", ColorPalette: "navy, burnt orange; cream", VisualStyle: "warm cozy cabin"}, nil, nil)
	if !reflect.DeepEqual(out.Style.ColorApproach.Palette, []string{"navy", "burnt orange", "cream"}) {
		t.Fatalf("expected split trend palette, got %v", out.Style.ColorApproach.Palette)
	}
	if out.Style.ColorApproach.Mood != "warm and cozy" {
		t.Fatalf("expected sniffed mood, got %q", out.Style.ColorApproach.Mood)
	}

	out = build(t, newBuilder(t, nil, nil, Config{}), TrendSignal{}, nil, nil)
	c := out.Style.ColorApproach
	if !reflect.DeepEqual(c.Palette, []string{"neutral tones"}) || c.ShirtColor != "black" || c.Mood == "" {
		t.Fatalf("expected minimal fallback, got %+v", c)
	}

	out = build(t, newBuilder(t, cat, nil, Config{}), TrendSignal{Niche: "nurse"}, nil, nil)
	if out.Style.ColorApproach.ShirtColor != "navy" || out.Style.ColorApproach.Mood != "caring and upbeat" {
		t.Fatalf("expected nurse defaults, got %+v", out.Style.ColorApproach)
	}
}

func TestAestheticCascade(t *testing.T) {
	cat := testCatalog(t)
	out := build(t, newBuilder(t, cat, nil, Config{}), TrendSignal{Niche: "fishing", VisualStyle: "Retro sunset badge with distressed grain", DesignStyle: "minimal"}, nil, nil)
	if out.Style.Aesthetic.Primary != "Retro sunset badge with distressed grain" {
		t.Fatalf("expected verbatim visual style, got %q", out.Style.Aesthetic.Primary)
	}
	if !reflect.DeepEqual(out.Style.Aesthetic.Keywords, []string{"retro", "distressed"}) {
		t.Fatalf("unexpected keywords %v", out.Style.Aesthetic.Keywords)
	}

	out = build(t, newBuilder(t, cat, nil, Config{}), TrendSignal{Niche: "zorbing", Tone: "very funny"}, nil, nil)
	if out.Style.Aesthetic.Primary != "clean playful t-shirt design" {
		t.Fatalf("expected tone-injected aesthetic, got %q", out.Style.Aesthetic.Primary)
	}
	if !reflect.DeepEqual(out.Style.Aesthetic.Keywords, []string{"playful", "cartoon"}) {
		t.Fatalf("expected tone keywords, got %v", out.Style.Aesthetic.Keywords)
	}

	out = build(t, newBuilder(t, cat, nil, Config{}), TrendSignal{Niche: "fishing"}, analyzedProfile(), nil)
	if out.Style.Aesthetic.Primary != "rugged lakeside nostalgia" || out.Style.Aesthetic.Reference != "engraved line art" {
		t.Fatalf("expected analyzed aesthetic, got %+v", out.Style.Aesthetic)
	}
	if !reflect.DeepEqual(out.Style.Aesthetic.Forbidden, []string{"neon"}) || !reflect.DeepEqual(out.Style.Typography.Forbidden, []string{"script"}) {
		t.Fatalf("expected forbidden lists from profile, got %+v / %+v", out.Style.Aesthetic.Forbidden, out.Style.Typography.Forbidden)
	}
}

func TestLayoutAndIconDecision(t *testing.T) {
	cat := testCatalog(t)
	b := newBuilder(t, cat, nil, Config{})

	out := build(t, b, TrendSignal{Niche: "fishing", TextLayout: &TextLayout{Positioning: "top third", Emphasis: "FISHING largest", Sizing: "70% width", Reasoning: "the pun lands on one word"}}, analyzedProfile(), nil)
	l := out.Style.Layout
	if l.Composition != "top third" || l.TextPlacement != "FISHING largest; 70% width" || !l.IncludeIcon || l.IconStyle != "engraved line art" {
		t.Fatalf("unexpected agent layout %+v", l)
	}

	out = build(t, b, TrendSignal{Niche: "fishing"}, analyzedProfile(), nil)
	if out.Style.Layout.Composition != "circular badge" {
		t.Fatalf("expected profile layout, got %+v", out.Style.Layout)
	}
	out = build(t, b, TrendSignal{Niche: "zorbing"}, nil, nil)
	if out.Style.Layout.Composition != "centered, balanced composition" || !out.Style.Layout.IncludeIcon {
		t.Fatalf("expected default layout with icon, got %+v", out.Style.Layout)
	}

	textOnly := []struct {
		name    string
		trend   TrendSignal
		profile *nichestyle.Profile
	}{
		{"explicit text only", TrendSignal{VisualStyle: "text only, bold"}, nil},
		{"minimal without visuals", TrendSignal{DesignStyle: "minimal clean type"}, nil},
		{"profile says none", TrendSignal{}, &nichestyle.Profile{Layout: nichestyle.Layout{Composition: "stacked", IconUsage: nichestyle.IconUsageNone}}},
		{"reasoning argues typography only", TrendSignal{TextLayout: &TextLayout{Positioning: "center", Reasoning: "Typography only keeps it punchy"}}, nil},
	}
	for _, c := range textOnly {
		if out := build(t, b, c.trend, c.profile, nil); out.Style.Layout.IncludeIcon || out.Style.Layout.IconStyle != "" {
			t.Fatalf("%s: expected text-only, got %+v", c.name, out.Style.Layout)
		}
	}

	if out := build(t, b, TrendSignal{DesignStyle: "minimal line illustration"}, nil, nil); !out.Style.Layout.IncludeIcon {
		t.Fatalf("minimal with an illustration mention should keep the icon")
	}
	if out := build(t, b, TrendSignal{Tone: "professional"}, nil, nil); !out.Style.Layout.IncludeIcon {
		t.Fatalf("professional tone alone must not force text-only")
	}

	strict := newBuilder(t, cat, nil, Config{IconPolicy: IconTextOnlyByDefault})
	if out := build(t, strict, TrendSignal{}, nil, nil); out.Style.Layout.IncludeIcon {
		t.Fatalf("text-only policy should drop the icon without a signal")
	}
	if out := build(t, strict, TrendSignal{VisualStyle: "mascot illustration"}, nil, nil); !out.Style.Layout.IncludeIcon {
		t.Fatalf("text-only policy should include the icon on an explicit visual signal")
	}
}

func TestIconSignalsMatchWholeWords(t *testing.T) {
	b := newBuilder(t, testCatalog(t), nil, Config{})
	for _, style := range []string{"cleaner retro lines", "unclean grunge", "minimalist maximalism", "context only matters"} {
		if out := build(t, b, TrendSignal{DesignStyle: style}, nil, nil); !out.Style.Layout.IncludeIcon {
			t.Fatalf("%q must not force text-only", style)
		}
	}
	if out := build(t, b, TrendSignal{DesignStyle: "Clean,  MINIMAL type"}, nil, nil); out.Style.Layout.IncludeIcon {
		t.Fatalf("whole-word minimal signal should force text-only")
	}
	if out := build(t, b, TrendSignal{DesignStyle: "minimal with small graphics"}, nil, nil); !out.Style.Layout.IncludeIcon {
		t.Fatalf("plural visual word should keep the icon")
	}
	if out := build(t, b, TrendSignal{VisualStyle: "bold, no  icons"}, nil, nil); out.Style.Layout.IncludeIcon {
		t.Fatalf("no icons should force text-only")
	}
}

func TestConfidenceAndSource(t *testing.T) {
	cat := testCatalog(t)
	research := &fakeResearcher{res: nichestyle.ResearchResult{Status: nichestyle.ResearchOK, Profile: researchedProfile()}}
	cases := []struct {
		name    string
		cat     *catalog.Catalog
		r       StyleResearcher
		trend   TrendSignal
		profile *nichestyle.Profile
		user    *UserOverrides
		conf    float64
		source  StyleSource
		meta    string
	}{
		{"analyzed", cat, research, TrendSignal{Niche: "fishing", VisualStyle: "vintage"}, analyzedProfile(), nil, 0.9, SourceNicheResearched, "analyzed"},
		{"visual style", cat, research, TrendSignal{Niche: "fishing", VisualStyle: "retro sunset"}, nil, nil, 0.7, SourceDiscovered, "researched"},
		{"research", cat, research, TrendSignal{Niche: "fishing"}, nil, nil, 0.72, SourceResearched, "researched"},
		{"user style", cat, nil, TrendSignal{Niche: "zorbing"}, nil, &UserOverrides{Style: "playful doodle"}, 0.3, SourceUserSpecified, "none"},
		{"niche default", cat, nil, TrendSignal{Niche: "nurse"}, nil, nil, 0.5, SourceNicheDefault, "none"},
		{"nothing", nil, nil, TrendSignal{}, nil, nil, 0.3, SourceNicheDefault, "none"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := build(t, newBuilder(t, c.cat, c.r, Config{}), c.trend, c.profile, c.user)
			if out.Style.Confidence != c.conf || out.Metadata.StyleConfidence != c.conf {
				t.Fatalf("expected confidence %v got %v", c.conf, out.Style.Confidence)
			}
			if out.Style.Source != c.source {
				t.Fatalf("expected source %s got %s", c.source, out.Style.Source)
			}
			if out.Metadata.ResearchSource != c.meta {
				t.Fatalf("expected research source %q got %q", c.meta, out.Metadata.ResearchSource)
			}
		})
	}
}

func TestAnalyzedProfileLookup(t *testing.T) {
	b := NewBuilder(logger.Nop(), testCatalog(t), nil, fakeAnalyzed{p: analyzedProfile()}, Config{})
	out := build(t, b, TrendSignal{Niche: "fishing"}, nil, nil)
	if out.Style.Source != SourceNicheResearched || out.Style.Typography.Required != "heavy slab serif" {
		t.Fatalf("expected stored analyzed profile to be used, got %+v", out.Style)
	}
	b = NewBuilder(logger.Nop(), testCatalog(t), nil, fakeAnalyzed{err: errors.New("db down")}, Config{})
	if out := build(t, b, TrendSignal{Niche: "fishing"}, nil, nil); out.Style.Source != SourceNicheDefault {
		t.Fatalf("expected niche default when lookup fails, got %s", out.Style.Source)
	}
}

func TestSeasonAndCrossNiches(t *testing.T) {
	b := newBuilder(t, testCatalog(t), nil, Config{})
	out := build(t, b, TrendSignal{Niche: "nurse", DesignText: "Santa Needs Coffee And Nurses", Topic: "christmas shift"}, nil, nil)
	if out.Context.Season != "christmas" {
		t.Fatalf("expected christmas, got %q", out.Context.Season)
	}
	if !reflect.DeepEqual(out.Context.CrossNiches, []string{"coffee"}) {
		t.Fatalf("expected coffee only (primary excluded), got %v", out.Context.CrossNiches)
	}
}

func TestEnforceTextLength(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
		cut  bool
	}{
		{"Coffee Then Adulting", 60, "Coffee Then Adulting", false},
		{"Coffee Then Adulting", 15, "Coffee Then", true},
		{"Coffee Then Adulting", 11, "Coffee Then", true},
		{"Supercalifragilistic", 5, "Super", true},
		{"Café Then Naps", 6, "Café", true},
	}
	for _, c := range cases {
		got, cut := EnforceTextLength(c.in, c.max)
		if got != c.want || cut != c.cut {
			t.Fatalf("EnforceTextLength(%q,%d) = %q,%v want %q,%v", c.in, c.max, got, cut, c.want, c.cut)
		}
	}

	b := newBuilder(t, nil, nil, Config{MaxTextLength: 15})
	out := build(t, b, TrendSignal{DesignText: "Coffee Then Adulting"}, nil, nil)
	if out.Text.Exact != "Coffee Then" || out.Text.MaxLength != 15 {
		t.Fatalf("expected logged truncation, got %+v", out.Text)
	}
}

func TestValidateReportsMissingFields(t *testing.T) {
	err := Validate(&Brief{Text: TextSpec{Exact: "x"}})
	if !errors.Is(err, ErrIncompleteBrief) {
		t.Fatalf("expected ErrIncompleteBrief, got %v", err)
	}
	if err := Validate(nil); !errors.Is(err, ErrIncompleteBrief) {
		t.Fatalf("expected ErrIncompleteBrief for nil, got %v", err)
	}
}

func TestParseIconPolicy(t *testing.T) {
	if ParseIconPolicy("text-only") != IconTextOnlyByDefault || ParseIconPolicy("") != IconIncludeByDefault || ParseIconPolicy("include") != IconIncludeByDefault {
		t.Fatalf("unexpected policy parsing")
	}
}
