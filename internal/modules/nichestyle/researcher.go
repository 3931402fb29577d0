package nichestyle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/cache"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

const (
	cacheNamespace     = "nichestyle"
	researchSchemaName = "niche_style_research_v1"
)

type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
}

type ResearchStatus string

const (
	ResearchOK          ResearchStatus = "ok"
	ResearchCached      ResearchStatus = "cached"
	ResearchUnavailable ResearchStatus = "unavailable"
	ResearchCallFailure ResearchStatus = "call_failure"
	ResearchParseError  ResearchStatus = "parse_error"
)

// ResearchResult is the checked outcome of a research call. Profile is set
// only for ResearchOK and ResearchCached.
type ResearchResult struct {
	Status  ResearchStatus
	Profile *Profile
	Err     error
}

func (r ResearchResult) OK() bool {
	return (r.Status == ResearchOK || r.Status == ResearchCached) && r.Profile != nil
}

type Researcher struct {
	log   *logger.Logger
	ai    JSONGenerator
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewResearcher(log *logger.Logger, ai JSONGenerator, c cache.Cache, ttl time.Duration) *Researcher {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Researcher{
		log:   log.With("service", "NicheStyleResearcher"),
		ai:    ai,
		cache: c,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Research returns the web-research style result for a niche, cached per niche.
func (r *Researcher) Research(ctx context.Context, niche string) ResearchResult {
	key := normalization.NormalizeKey(niche)
	if key == "" {
		return ResearchResult{Status: ResearchParseError, Err: fmt.Errorf("nichestyle: niche required")}
	}

	if p, ok, err := cache.GetJSON[Profile](ctx, r.cache, cacheNamespace, key); err != nil {
		r.log.Warn("style cache read failed", "niche", key, "error", err)
	} else if ok {
		return ResearchResult{Status: ResearchCached, Profile: &p}
	}

	if r.ai == nil {
		return ResearchResult{Status: ResearchUnavailable}
	}
	sys, usr := promptResearch(niche)
	obj, err := r.ai.GenerateJSON(ctx, sys, usr, researchSchemaName, schemaResearchV1())
	if err != nil {
		status := ResearchCallFailure
		if errors.Is(err, openai.ErrNotConfigured) {
			status = ResearchUnavailable
		}
		r.log.Warn("niche style research failed", "niche", key, "status", status, "error", err)
		observability.Current().IncFallback("nichestyle", string(status))
		return ResearchResult{Status: status, Err: err}
	}

	p, err := coerceResearch(obj, key, r.now())
	if err != nil {
		r.log.Warn("niche style research unparseable", "niche", key, "error", err)
		observability.Current().IncFallback("nichestyle", string(ResearchParseError))
		return ResearchResult{Status: ResearchParseError, Err: err}
	}
	if err := cache.SetJSON(ctx, r.cache, cacheNamespace, key, *p, r.ttl); err != nil {
		r.log.Warn("style cache write failed", "niche", key, "error", err)
	}
	return ResearchResult{Status: ResearchOK, Profile: p}
}

func promptResearch(niche string) (system string, user string) {
	system = strings.TrimSpace(`
You are a merch design researcher. Describe how best-selling t-shirts for a niche
are styled today. Return ONLY valid JSON matching the schema.

Rules:
- Be concrete: name type styles (e.g. "distressed slab serif"), hex or named colors, layouts.
- icon_usage is one of none|minimal|moderate|heavy.
- confidence (0..1) reflects how consistent the niche's visual language is.
- Never name brands or copyrighted characters.
`)
	user = "NICHE: " + strings.TrimSpace(niche)
	return system, user
}

func schemaResearchV1() map[string]any {
	str := map[string]any{"type": "string"}
	strList := map[string]any{"type": "array", "items": str}
	obj := func(props map[string]any) map[string]any {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		req := make([]any, 0, len(keys))
		for _, k := range keys {
			req = append(req, k)
		}
		return map[string]any{"type": "object", "properties": props, "required": req, "additionalProperties": false}
	}
	return obj(map[string]any{
		"typography": obj(map[string]any{"primary": str, "weight": str, "effects": strList, "avoid": strList}),
		"palette":    obj(map[string]any{"primary": strList, "accent": strList, "background": str}),
		"layout": obj(map[string]any{
			"composition":    str,
			"text_placement": str,
			"icon_usage":     map[string]any{"type": "string", "enum": []any{"none", "minimal", "moderate", "heavy"}},
		}),
		"illustration_style": str,
		"mood":               obj(map[string]any{"primary": str, "secondary": strList, "avoid": strList}),
		"audience":           str,
		"confidence":         map[string]any{"type": "number"},
	})
}

func coerceResearch(obj map[string]any, niche string, now time.Time) (*Profile, error) {
	typ := anyMap(obj["typography"])
	pal := anyMap(obj["palette"])
	lay := anyMap(obj["layout"])
	mood := anyMap(obj["mood"])

	p := &Profile{
		Niche: niche,
		Kind:  KindResearched,
		Typography: Typography{
			Primary: anyString(typ["primary"]),
			Weight:  anyString(typ["weight"]),
			Effects: anyStrings(typ["effects"]),
			Avoid:   anyStrings(typ["avoid"]),
		},
		Palette: Palette{
			Primary:    anyStrings(pal["primary"]),
			Accent:     anyStrings(pal["accent"]),
			Background: anyString(pal["background"]),
		},
		Layout: Layout{
			Composition:   anyString(lay["composition"]),
			TextPlacement: anyString(lay["text_placement"]),
			IconUsage:     ParseIconUsage(anyString(lay["icon_usage"])),
		},
		IllustrationStyle: anyString(obj["illustration_style"]),
		Mood: Mood{
			Primary:   anyString(mood["primary"]),
			Secondary: anyStrings(mood["secondary"]),
			Avoid:     anyStrings(mood["avoid"]),
		},
		Audience:       anyString(obj["audience"]),
		Confidence:     clamp01(anyFloat(obj["confidence"], 0.5)),
		LastAnalyzedAt: now,
	}
	if p.Empty() {
		return nil, fmt.Errorf("nichestyle: research response had no style fields")
	}
	return p, nil
}

func anyMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok && m != nil {
		return m
	}
	return map[string]any{}
}

func anyString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return normalization.ToASCII(s)
	}
	return normalization.ToASCII(fmt.Sprint(v))
}

func anyStrings(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s := anyString(x); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func anyFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	}
	return def
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
