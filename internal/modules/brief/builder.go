package brief

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/catalog"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/nichestyle"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

const (
	DefaultMaxTextLength = 60

	fallbackText          = "Design"
	fallbackTypography    = "bold readable sans-serif"
	fallbackWeight        = "bold"
	fallbackPalette       = "neutral tones"
	fallbackShirt         = "black"
	fallbackMood          = "balanced and approachable"
	fallbackAesthetic     = "clean modern t-shirt design"
	fallbackComposition   = "centered, balanced composition"
	fallbackTextPlacement = "text as the focal point, centered"
	fallbackIconStyle     = "simple bold icon"
	fallbackAudience      = "general audience"
	fallbackNiche         = "general"

	visualStyleConfidence  = 0.7
	nicheDefaultConfidence = 0.5
	minimalConfidence      = 0.3
)

// Internal cascade levels below every specific source. They never surface as
// the brief's style source.
const (
	sourceTone     StyleSource = "tone"
	sourceFallback StyleSource = "fallback"
)

type StyleResearcher interface {
	Research(ctx context.Context, niche string) nichestyle.ResearchResult
}

type AnalyzedProfiles interface {
	Analyzed(ctx context.Context, niche string) (*nichestyle.Profile, error)
}

type Config struct {
	IconPolicy    IconPolicy
	MaxTextLength int
}

type Builder struct {
	log        *logger.Logger
	cat        *catalog.Catalog
	researcher StyleResearcher
	analyzed   AnalyzedProfiles
	cfg        Config
	now        func() time.Time
}

func NewBuilder(log *logger.Logger, cat *catalog.Catalog, researcher StyleResearcher, analyzed AnalyzedProfiles, cfg Config) *Builder {
	if cfg.IconPolicy == "" {
		cfg.IconPolicy = IconIncludeByDefault
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = DefaultMaxTextLength
	}
	return &Builder{
		log:        log.With("service", "DesignBriefBuilder"),
		cat:        cat,
		researcher: researcher,
		analyzed:   analyzed,
		cfg:        cfg,
		now:        time.Now,
	}
}

// inputs gathers every signal the cascades read from.
type inputs struct {
	trend     TrendSignal
	user      UserOverrides
	analyzed  *nichestyle.Profile
	research  *nichestyle.Profile
	niche     catalog.NicheStyle
	hasNiche  bool
	tone      catalog.ToneEnrichment
	toneKey   string
	toneLabel string
}

// BuildBrief resolves every brief field from the strongest available signal.
// profile may be nil; an analyzed profile is then looked up, and agent research
// fills in below it. The returned brief always passes Validate.
func (b *Builder) BuildBrief(ctx context.Context, trend TrendSignal, profile *nichestyle.Profile, overrides *UserOverrides) (*Brief, error) {
	ctx, span := observability.StartSpan(ctx, "brief.build")
	defer span.End()

	in := inputs{trend: trend}
	if overrides != nil {
		in.user = *overrides
	}
	niche := firstNonEmpty(trend.Niche, trend.Topic, fallbackNiche)

	in.analyzed = b.analyzedProfile(ctx, niche, profile)
	researchSource := "none"
	if in.analyzed != nil {
		researchSource = string(nichestyle.KindAnalyzed)
	}
	if b.researcher != nil {
		res := b.researcher.Research(ctx, niche)
		if res.OK() {
			in.research = res.Profile
			if in.analyzed == nil {
				researchSource = string(nichestyle.KindResearched)
			}
		} else if in.analyzed == nil {
			researchSource = string(res.Status)
		}
	}
	if b.cat != nil {
		in.niche, in.hasNiche = b.cat.NicheStyle(niche)
		in.toneLabel = firstNonEmpty(in.user.Tone, trend.Tone, "default")
		in.tone, in.toneKey = b.cat.Tone(in.toneLabel)
	} else {
		in.toneLabel = firstNonEmpty(in.user.Tone, trend.Tone, "default")
		in.toneKey = "default"
	}

	text := b.resolveText(in)
	typo, typoSrc := b.resolveTypography(in)
	color, colorSrc := b.resolveColor(in)
	aes, aesSrc := b.resolveAesthetic(in)
	layout, layoutSrc := b.resolveLayout(in)

	out := &Brief{
		Text: text,
		Style: StyleSpec{
			Typography:    typo,
			ColorApproach: color,
			Aesthetic:     aes,
			Layout:        layout,
		},
		Context: ContextSpec{
			Niche:    niche,
			Audience: b.resolveAudience(in),
			Tone:     in.toneLabel,
		},
	}
	if b.cat != nil {
		out.Context.Season = b.cat.Season(text.Exact, trend.Topic)
		if cross := b.cat.CrossNiches(niche, text.Exact, trend.Topic); len(cross) > 0 {
			out.Context.CrossNiches = cross
		}
	}

	used := []StyleSource{typoSrc, colorSrc, aesSrc, layoutSrc}
	out.Style.Source = overallSource(used)
	out.Style.Confidence = b.confidence(in, used)
	out.Metadata = Metadata{
		ID:              uuid.New(),
		CreatedAt:       b.now().UTC(),
		ResearchSource:  researchSource,
		StyleConfidence: out.Style.Confidence,
		RawTrend:        trend.Raw,
	}

	if err := Validate(out); err != nil {
		b.log.Error("brief failed validation", "niche", niche, "error", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("style_source", string(out.Style.Source)),
		attribute.Float64("style_confidence", out.Style.Confidence),
		attribute.Bool("include_icon", out.Style.Layout.IncludeIcon),
	)
	observability.Current().IncBriefStyleSource(string(out.Style.Source))
	return out, nil
}

func (b *Builder) analyzedProfile(ctx context.Context, niche string, given *nichestyle.Profile) *nichestyle.Profile {
	if given != nil && !given.Empty() {
		return given
	}
	if b.analyzed == nil {
		return nil
	}
	p, err := b.analyzed.Analyzed(ctx, niche)
	if err != nil {
		b.log.Warn("analyzed style profile unavailable", "niche", niche, "error", err)
		return nil
	}
	if p.Empty() {
		return nil
	}
	return p
}

func (b *Builder) resolveText(in inputs) TextSpec {
	exact, _, _ := firstResolved(
		level(SourceUserSpecified, func() (string, bool) { return nonEmpty(in.user.Text) }),
		level(SourceDiscovered, func() (string, bool) { return nonEmpty(in.trend.DesignText) }),
		level(SourceDiscovered, func() (string, bool) { return nonEmpty(in.trend.Phrase) }),
		level(SourceDiscovered, func() (string, bool) { return nonEmpty(in.trend.Topic) }),
		level(sourceFallback, func() (string, bool) { return fallbackText, true }),
	)
	if cut, truncated := EnforceTextLength(exact, b.cfg.MaxTextLength); truncated {
		b.log.Warn("design text exceeded max length; truncated at word boundary",
			"original", exact,
			"truncated", cut,
			"max_length", b.cfg.MaxTextLength,
		)
		exact = cut
	}
	return TextSpec{Exact: exact, MaxLength: b.cfg.MaxTextLength, PreserveCase: true}
}

func (b *Builder) resolveTypography(in inputs) (TypographySpec, StyleSource) {
	hint, src, _ := firstResolved(
		level(SourceNicheResearched, func() (typographyHint, bool) {
			if in.analyzed == nil || in.analyzed.Typography.Primary == "" {
				return typographyHint{}, false
			}
			t := in.analyzed.Typography
			return typographyHint{Typography: t.Primary, Weight: t.Weight, Effects: t.Effects}, true
		}),
		level(SourceDiscovered, func() (typographyHint, bool) {
			s, ok := nonEmpty(in.trend.Typography)
			return typographyHint{Typography: s}, ok
		}),
		level(SourceDiscovered, func() (typographyHint, bool) { return sniffTypography(in.trend.VisualStyle) }),
		level(SourceUserSpecified, func() (typographyHint, bool) { return sniffTypography(in.user.Style) }),
		level(SourceResearched, func() (typographyHint, bool) {
			if in.research == nil || in.research.Typography.Primary == "" {
				return typographyHint{}, false
			}
			t := in.research.Typography
			return typographyHint{Typography: t.Primary, Weight: t.Weight, Effects: t.Effects}, true
		}),
		level(SourceNicheDefault, func() (typographyHint, bool) {
			if !in.hasNiche || in.niche.Typography == "" {
				return typographyHint{}, false
			}
			return typographyHint{Typography: in.niche.Typography, Weight: in.niche.Weight, Effects: in.niche.Effects}, true
		}),
		level(sourceTone, func() (typographyHint, bool) {
			if in.tone.Typography == "" {
				return typographyHint{}, false
			}
			return typographyHint{Typography: in.tone.Typography, Weight: in.tone.Weight, Effects: in.tone.Effects}, true
		}),
		level(sourceFallback, func() (typographyHint, bool) {
			return typographyHint{Typography: fallbackTypography, Weight: fallbackWeight}, true
		}),
	)

	spec := TypographySpec{
		Required: hint.Typography,
		Weight:   firstNonEmpty(hint.Weight, in.tone.Weight, fallbackWeight),
		Effects:  append([]string{}, hint.Effects...),
	}
	for _, p := range []*nichestyle.Profile{in.analyzed, in.research} {
		if p != nil {
			spec.Forbidden = append(spec.Forbidden, p.Typography.Avoid...)
		}
	}
	spec.Forbidden = dedupeStrings(spec.Forbidden)
	if len(spec.Forbidden) == 0 {
		spec.Forbidden = nil
	}
	return spec, src
}

type paletteChoice struct {
	palette []string
	shirt   string
}

func (b *Builder) resolveColor(in inputs) (ColorSpec, StyleSource) {
	choice, src, _ := firstResolved(
		level(SourceNicheResearched, func() (paletteChoice, bool) {
			if in.analyzed == nil || len(in.analyzed.Palette.Primary) == 0 {
				return paletteChoice{}, false
			}
			return paletteChoice{palette: in.analyzed.Palette.Primary, shirt: in.analyzed.Palette.Background}, true
		}),
		level(SourceDiscovered, func() (paletteChoice, bool) {
			p := splitPalette(in.trend.ColorPalette)
			return paletteChoice{palette: p}, len(p) > 0
		}),
		level(SourceResearched, func() (paletteChoice, bool) {
			if in.research == nil || len(in.research.Palette.Primary) == 0 {
				return paletteChoice{}, false
			}
			return paletteChoice{palette: in.research.Palette.Primary, shirt: in.research.Palette.Background}, true
		}),
		level(SourceNicheDefault, func() (paletteChoice, bool) {
			if !in.hasNiche || len(in.niche.Palette) == 0 {
				return paletteChoice{}, false
			}
			return paletteChoice{palette: in.niche.Palette, shirt: in.niche.ShirtColor}, true
		}),
		level(sourceFallback, func() (paletteChoice, bool) {
			return paletteChoice{palette: []string{fallbackPalette}, shirt: fallbackShirt}, true
		}),
	)

	shirt := choice.shirt
	if shirt == "" && in.hasNiche {
		shirt = in.niche.ShirtColor
	}
	mood, _, _ := firstResolved(
		level(SourceDiscovered, func() (string, bool) {
			return sniffMood(in.trend.VisualStyle, in.trend.DesignStyle, in.user.Style)
		}),
		level(SourceNicheDefault, func() (string, bool) {
			if !in.hasNiche {
				return "", false
			}
			return nonEmpty(in.niche.Mood)
		}),
		level(sourceTone, func() (string, bool) { return nonEmpty(in.tone.Mood) }),
		level(sourceFallback, func() (string, bool) { return fallbackMood, true }),
	)

	return ColorSpec{
		Palette:    append([]string{}, choice.palette...),
		Mood:       mood,
		ShirtColor: firstNonEmpty(shirt, fallbackShirt),
	}, src
}

func (b *Builder) resolveAesthetic(in inputs) (AestheticSpec, StyleSource) {
	primary, src, _ := firstResolved(
		level(SourceNicheResearched, func() (string, bool) {
			if in.analyzed == nil {
				return "", false
			}
			return nonEmpty(in.analyzed.Mood.Primary)
		}),
		level(SourceDiscovered, func() (string, bool) { return nonEmpty(in.trend.VisualStyle) }),
		level(SourceDiscovered, func() (string, bool) { return nonEmpty(in.trend.DesignStyle) }),
		level(SourceUserSpecified, func() (string, bool) { return nonEmpty(in.user.Style) }),
		level(SourceResearched, func() (string, bool) {
			if in.research == nil {
				return "", false
			}
			return nonEmpty(in.research.Mood.Primary)
		}),
		level(SourceNicheDefault, func() (string, bool) {
			if !in.hasNiche {
				return "", false
			}
			return nonEmpty(in.niche.Aesthetic)
		}),
		level(sourceTone, func() (string, bool) {
			if len(in.tone.AestheticKeywords) == 0 {
				return "", false
			}
			return "clean " + in.tone.AestheticKeywords[0] + " t-shirt design", true
		}),
		level(sourceFallback, func() (string, bool) { return fallbackAesthetic, true }),
	)

	spec := AestheticSpec{Primary: primary}
	var keywords []string
	if b.cat != nil {
		keywords = b.cat.Vocabulary(primary)
	}
	switch src {
	case SourceNicheDefault:
		keywords = append(keywords, in.niche.Keywords...)
	case sourceTone:
		keywords = append(keywords, in.tone.AestheticKeywords...)
	}
	spec.Keywords = dedupeStrings(keywords)

	for _, p := range []*nichestyle.Profile{in.analyzed, in.research} {
		if p == nil {
			continue
		}
		if spec.Reference == "" {
			spec.Reference = p.IllustrationStyle
		}
		spec.Forbidden = append(spec.Forbidden, p.Mood.Avoid...)
	}
	spec.Forbidden = dedupeStrings(spec.Forbidden)
	if len(spec.Forbidden) == 0 {
		spec.Forbidden = nil
	}
	return spec, src
}

func (b *Builder) resolveLayout(in inputs) (LayoutSpec, StyleSource) {
	spec, src, _ := firstResolved(
		level(SourceDiscovered, func() (LayoutSpec, bool) {
			tl := in.trend.TextLayout
			if tl == nil || strings.TrimSpace(tl.Positioning) == "" {
				return LayoutSpec{}, false
			}
			placement := strings.Join(nonBlank(tl.Emphasis, tl.Sizing), "; ")
			return LayoutSpec{
				Composition:   strings.TrimSpace(tl.Positioning),
				TextPlacement: firstNonEmpty(placement, fallbackTextPlacement),
				Reasoning:     strings.TrimSpace(tl.Reasoning),
			}, true
		}),
		level(SourceNicheResearched, func() (LayoutSpec, bool) { return profileLayout(in.analyzed) }),
		level(SourceResearched, func() (LayoutSpec, bool) { return profileLayout(in.research) }),
		level(sourceFallback, func() (LayoutSpec, bool) {
			return LayoutSpec{Composition: fallbackComposition, TextPlacement: fallbackTextPlacement}, true
		}),
	)

	spec.IncludeIcon = decideIcon(b.cfg.IconPolicy, in)
	if spec.IncludeIcon {
		spec.IconStyle = b.iconStyle(in)
	}
	return spec, src
}

func profileLayout(p *nichestyle.Profile) (LayoutSpec, bool) {
	if p == nil || strings.TrimSpace(p.Layout.Composition) == "" {
		return LayoutSpec{}, false
	}
	return LayoutSpec{
		Composition:   p.Layout.Composition,
		TextPlacement: firstNonEmpty(p.Layout.TextPlacement, fallbackTextPlacement),
	}, true
}

func (b *Builder) iconStyle(in inputs) string {
	v, _, _ := firstResolved(
		level(SourceNicheResearched, func() (string, bool) {
			if in.analyzed == nil {
				return "", false
			}
			return nonEmpty(in.analyzed.IllustrationStyle)
		}),
		level(SourceResearched, func() (string, bool) {
			if in.research == nil {
				return "", false
			}
			return nonEmpty(in.research.IllustrationStyle)
		}),
		level(SourceNicheDefault, func() (string, bool) {
			if !in.hasNiche {
				return "", false
			}
			return nonEmpty(in.niche.IconStyle)
		}),
		level(sourceTone, func() (string, bool) { return nonEmpty(in.tone.IconStyle) }),
		level(sourceFallback, func() (string, bool) { return fallbackIconStyle, true }),
	)
	return v
}

func (b *Builder) resolveAudience(in inputs) string {
	v, _, _ := firstResolved(
		level(SourceUserSpecified, func() (string, bool) { return nonEmpty(in.user.Audience) }),
		level(SourceDiscovered, func() (string, bool) { return nonEmpty(in.trend.Audience) }),
		level(SourceNicheResearched, func() (string, bool) {
			if in.analyzed == nil {
				return "", false
			}
			return nonEmpty(in.analyzed.Audience)
		}),
		level(SourceResearched, func() (string, bool) {
			if in.research == nil {
				return "", false
			}
			return nonEmpty(in.research.Audience)
		}),
		level(SourceNicheDefault, func() (string, bool) {
			if !in.hasNiche {
				return "", false
			}
			return nonEmpty(in.niche.Audience)
		}),
		level(sourceFallback, func() (string, bool) { return fallbackAudience, true }),
	)
	return v
}

// sourceRank orders style sources from strongest to weakest.
var sourceRank = []StyleSource{
	SourceNicheResearched,
	SourceDiscovered,
	SourceUserSpecified,
	SourceResearched,
	SourceNicheDefault,
}

func overallSource(used []StyleSource) StyleSource {
	for _, s := range sourceRank {
		for _, u := range used {
			if u == s {
				return s
			}
		}
	}
	return SourceNicheDefault
}

func (b *Builder) confidence(in inputs, used []StyleSource) float64 {
	has := func(s StyleSource) bool {
		for _, u := range used {
			if u == s {
				return true
			}
		}
		return false
	}
	switch {
	case in.analyzed != nil && has(SourceNicheResearched):
		return in.analyzed.Confidence
	case has(SourceDiscovered) && strings.TrimSpace(in.trend.VisualStyle) != "":
		return visualStyleConfidence
	case in.research != nil && has(SourceResearched):
		return in.research.Confidence
	case has(SourceNicheDefault):
		return nicheDefaultConfidence
	default:
		return minimalConfidence
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func nonBlank(vals ...string) []string {
	out := []string{}
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
