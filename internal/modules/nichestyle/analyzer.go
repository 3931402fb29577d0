package nichestyle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/gcp"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

const (
	analysisSchemaName = "product_style_analysis_v1"
	analysisBatchLimit = 3
	fullSampleSize     = 8
)

var ErrNoAnalyses = errors.New("nichestyle: no image could be analyzed")

type ImageJSONGenerator interface {
	GenerateJSONWithImages(ctx context.Context, system string, user string, images []openai.ImageInput, schemaName string, schema map[string]any) (map[string]any, error)
}

type ColorExtractor interface {
	DominantColors(ctx context.Context, imageURL string, max int) ([]gcp.Color, error)
}

// imageAnalysis is the per-image observation before aggregation.
type imageAnalysis struct {
	Typography    string
	Weight        string
	Effects       []string
	Composition   string
	TextPlacement string
	IconUsage     IconUsage
	Illustration  string
	Mood          string
	Secondary     []string
	Background    string
	Colors        []gcp.Color
}

// Analyzer builds an analyzed Profile from real product images.
type Analyzer struct {
	log    *logger.Logger
	ai     ImageJSONGenerator
	colors ColorExtractor
	store  *Store
	limit  int
	now    func() time.Time
}

func NewAnalyzer(log *logger.Logger, ai ImageJSONGenerator, colors ColorExtractor, store *Store) *Analyzer {
	return &Analyzer{
		log:    log.With("service", "NicheStyleAnalyzer"),
		ai:     ai,
		colors: colors,
		store:  store,
		limit:  analysisBatchLimit,
		now:    time.Now,
	}
}

// Analyze inspects each image (at most three at a time), aggregates the
// observations by majority vote and persists the profile when a store is set.
// Individual image failures are skipped.
func (a *Analyzer) Analyze(ctx context.Context, niche string, imageURLs []string) (*Profile, error) {
	key := normalization.NormalizeKey(niche)
	if key == "" {
		return nil, fmt.Errorf("nichestyle: niche required")
	}
	if a.ai == nil {
		return nil, openai.ErrNotConfigured
	}
	urls := make([]string, 0, len(imageURLs))
	for _, u := range imageURLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, ErrNoAnalyses
	}

	results := make([]*imageAnalysis, len(urls))
	var g errgroup.Group
	g.SetLimit(a.limit)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			res, err := a.analyzeOne(ctx, key, u)
			if err != nil {
				a.log.Warn("image analysis failed", "niche", key, "image", u, "error", err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	ok := make([]*imageAnalysis, 0, len(results))
	for _, r := range results {
		if r != nil {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return nil, ErrNoAnalyses
	}

	p := aggregate(key, ok, a.now())
	if a.store != nil {
		if err := a.store.Save(ctx, p); err != nil {
			return p, fmt.Errorf("nichestyle: save profile: %w", err)
		}
	}
	a.log.Info("niche style analyzed", "niche", key, "samples", p.SampleSize, "confidence", p.Confidence)
	return p, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, niche, url string) (*imageAnalysis, error) {
	sys, usr := promptAnalysis(niche)
	obj, err := a.ai.GenerateJSONWithImages(ctx, sys, usr,
		[]openai.ImageInput{{ImageURL: url, Detail: "low"}},
		analysisSchemaName, schemaAnalysisV1())
	if err != nil {
		return nil, err
	}
	res := coerceAnalysis(obj)
	if res.Typography == "" && res.Composition == "" && res.Mood == "" {
		return nil, fmt.Errorf("nichestyle: empty analysis")
	}
	if a.colors != nil {
		cs, err := a.colors.DominantColors(ctx, url, 5)
		if err != nil {
			a.log.Debug("dominant colors unavailable", "image", url, "error", err)
		} else {
			res.Colors = cs
		}
	}
	return res, nil
}

func promptAnalysis(niche string) (system string, user string) {
	system = strings.TrimSpace(`
You analyze a t-shirt product image for its visual design.
Return ONLY valid JSON matching the schema.
- Describe the typography style in 2-5 words (e.g. "distressed slab serif").
- icon_usage is one of none|minimal|moderate|heavy.
- colors are the design's ink colors as hex codes; shirt_color is the garment color.
`)
	user = "NICHE: " + niche
	return system, user
}

func schemaAnalysisV1() map[string]any {
	str := map[string]any{"type": "string"}
	strList := map[string]any{"type": "array", "items": str}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"typography":         str,
			"weight":             str,
			"effects":            strList,
			"composition":        str,
			"text_placement":     str,
			"icon_usage":         map[string]any{"type": "string", "enum": []any{"none", "minimal", "moderate", "heavy"}},
			"illustration_style": str,
			"mood":               str,
			"secondary_moods":    strList,
			"colors":             strList,
			"shirt_color":        str,
		},
		"required": []any{"typography", "weight", "effects", "composition", "text_placement", "icon_usage",
			"illustration_style", "mood", "secondary_moods", "colors", "shirt_color"},
		"additionalProperties": false,
	}
}

func coerceAnalysis(obj map[string]any) *imageAnalysis {
	res := &imageAnalysis{
		Typography:    strings.ToLower(anyString(obj["typography"])),
		Weight:        strings.ToLower(anyString(obj["weight"])),
		Effects:       anyStrings(obj["effects"]),
		Composition:   strings.ToLower(anyString(obj["composition"])),
		TextPlacement: strings.ToLower(anyString(obj["text_placement"])),
		IconUsage:     ParseIconUsage(anyString(obj["icon_usage"])),
		Illustration:  strings.ToLower(anyString(obj["illustration_style"])),
		Mood:          strings.ToLower(anyString(obj["mood"])),
		Secondary:     anyStrings(obj["secondary_moods"]),
		Background:    strings.ToLower(anyString(obj["shirt_color"])),
	}
	for i, c := range anyStrings(obj["colors"]) {
		res.Colors = append(res.Colors, gcp.Color{Hex: strings.ToLower(c), Score: 1 / float64(i+1)})
	}
	return res
}

// vote tallies values and returns the winner with its count. Ties go to the
// value seen first.
type vote struct {
	order  []string
	counts map[string]int
}

func newVote() *vote { return &vote{counts: map[string]int{}} }

func (v *vote) add(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if _, ok := v.counts[s]; !ok {
		v.order = append(v.order, s)
	}
	v.counts[s]++
}

func (v *vote) top(n int) []string {
	out := append([]string(nil), v.order...)
	sort.SliceStable(out, func(i, j int) bool { return v.counts[out[i]] > v.counts[out[j]] })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (v *vote) winner() (string, int) {
	t := v.top(1)
	if len(t) == 0 {
		return "", 0
	}
	return t[0], v.counts[t[0]]
}

func aggregate(niche string, rs []*imageAnalysis, now time.Time) *Profile {
	typo, weight, comp, place, icon, illus, mood, bg := newVote(), newVote(), newVote(), newVote(), newVote(), newVote(), newVote(), newVote()
	effects, secondary := newVote(), newVote()
	colorScore := map[string]float64{}
	colorOrder := []string{}

	for _, r := range rs {
		typo.add(r.Typography)
		weight.add(r.Weight)
		comp.add(r.Composition)
		place.add(r.TextPlacement)
		icon.add(string(r.IconUsage))
		illus.add(r.Illustration)
		mood.add(r.Mood)
		bg.add(r.Background)
		for _, e := range r.Effects {
			effects.add(strings.ToLower(e))
		}
		for _, s := range r.Secondary {
			secondary.add(strings.ToLower(s))
		}
		for _, c := range r.Colors {
			if c.Hex == "" {
				continue
			}
			if _, ok := colorScore[c.Hex]; !ok {
				colorOrder = append(colorOrder, c.Hex)
			}
			colorScore[c.Hex] += c.Score
		}
	}
	sort.SliceStable(colorOrder, func(i, j int) bool { return colorScore[colorOrder[i]] > colorScore[colorOrder[j]] })

	p := &Profile{
		Niche:          niche,
		Kind:           KindAnalyzed,
		SampleSize:     len(rs),
		Typography:     Typography{Effects: effects.top(3)},
		Layout:         Layout{},
		Mood:           Mood{Secondary: secondary.top(3)},
		LastAnalyzedAt: now,
	}
	p.Typography.Primary, _ = typo.winner()
	p.Typography.Weight, _ = weight.winner()
	p.Layout.Composition, _ = comp.winner()
	p.Layout.TextPlacement, _ = place.winner()
	iu, _ := icon.winner()
	p.Layout.IconUsage = IconUsage(iu)
	p.IllustrationStyle, _ = illus.winner()
	p.Mood.Primary, _ = mood.winner()
	p.Palette.Background, _ = bg.winner()
	if len(colorOrder) > 0 {
		n := min(3, len(colorOrder))
		p.Palette.Primary = colorOrder[:n]
		if end := min(n+2, len(colorOrder)); end > n {
			p.Palette.Accent = colorOrder[n:end]
		}
	}
	p.Confidence = confidence(len(rs), typo, comp, mood)
	return p
}

// confidence scales the mean agreement of the voted fields by sample size.
func confidence(n int, votes ...*vote) float64 {
	if n == 0 {
		return 0
	}
	sum, used := 0.0, 0
	for _, v := range votes {
		if _, c := v.winner(); c > 0 {
			sum += float64(c) / float64(n)
			used++
		}
	}
	if used == 0 {
		return 0
	}
	agreement := sum / float64(used)
	sample := math.Min(1, float64(n)/fullSampleSize)
	return math.Round(agreement*(0.5+0.5*sample)*100) / 100
}
