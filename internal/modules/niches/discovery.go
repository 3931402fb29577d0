package niches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/openai"
)

const discoverySchemaName = "niche_discovery_v1"

func (e *Explorer) discoverAI(ctx context.Context, req DiscoverRequest) DiscoveryResult {
	if e.ai == nil {
		return DiscoveryResult{Status: DiscoveryUnavailable}
	}
	sys, usr := promptDiscovery(req)
	obj, err := e.ai.GenerateJSON(ctx, sys, usr, discoverySchemaName, schemaDiscoveryV1())
	if err != nil {
		if errors.Is(err, openai.ErrNotConfigured) {
			return DiscoveryResult{Status: DiscoveryUnavailable, Err: err}
		}
		return DiscoveryResult{Status: DiscoveryCallFailure, Err: err}
	}
	ns, err := coerceDiscovery(obj, e.now(), e.norm)
	if err != nil {
		return DiscoveryResult{Status: DiscoveryParseError, Err: err}
	}
	return DiscoveryResult{Status: DiscoveryOK, Niches: ns}
}

func focusInstruction(f FocusArea) string {
	switch f {
	case FocusEvergreen:
		return "Focus on evergreen niches: identities, professions and hobbies that sell year round."
	case FocusTrending:
		return "Focus on niches that are trending right now and gaining search interest."
	case FocusEmerging:
		return "Focus on emerging micro-communities that have passionate fans and few existing designs."
	case FocusSeasonal:
		return "Focus on niches tied to upcoming holidays, seasons and events in the next 8 weeks."
	default:
		return "Pick a surprising mix of niches across professions, hobbies, family roles, food, regions and humor styles."
	}
}

func promptDiscovery(req DiscoverRequest) (system string, user string) {
	system = strings.TrimSpace(`
You research print-on-demand t-shirt niches.
Return ONLY valid JSON matching the schema (no markdown fences, no extra keys).

Rules:
- Each niche is a specific audience with a shared identity or interest, not a generic topic.
- Never return a niche from EXCLUDE (or a trivial variant of one).
- competition: blue_ocean means almost no competing designs exist.
- phrases: 2-5 word t-shirt phrases that audience would wear; no trademarks or brand names.
- related: other niches whose audience overlaps strongly.
`)

	exclude := "(none)"
	if len(req.Exclude) > 0 {
		exclude = strings.Join(req.Exclude, ", ")
	}
	user = fmt.Sprintf("FOCUS: %s\n%s\n\nCOUNT: %d\nRISK_LEVEL: %d/100\nEXCLUDE: %s",
		req.Focus, focusInstruction(req.Focus), req.Count, req.RiskLevel, exclude)
	return system, user
}

func schemaDiscoveryV1() map[string]any {
	str := map[string]any{"type": "string"}
	strList := map[string]any{"type": "array", "items": str}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"niches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":          str,
						"description":   str,
						"audience_size": map[string]any{"type": "string", "enum": []any{"massive", "large", "medium", "small", "micro"}},
						"trend":         map[string]any{"type": "string", "enum": []any{"exploding", "growing", "stable", "declining"}},
						"competition":   map[string]any{"type": "string", "enum": []any{"blue_ocean", "low", "medium", "high", "saturated"}},
						"phrases":       strList,
						"related":       strList,
					},
					"required":             []any{"name", "description", "audience_size", "trend", "competition", "phrases", "related"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"niches"},
		"additionalProperties": false,
	}
}

// coerceDiscovery runs every model-written string through norm so banned
// vocabulary never reaches a phrase or niche name.
func coerceDiscovery(obj map[string]any, now time.Time, norm *normalization.Normalizer) ([]DiscoveredNiche, error) {
	raw, ok := obj["niches"].([]any)
	if !ok {
		return nil, fmt.Errorf("niches: discovery response missing niches array")
	}
	out := make([]DiscoveredNiche, 0, len(raw))
	for _, x := range raw {
		m, ok := x.(map[string]any)
		if !ok || m == nil {
			continue
		}
		name := norm.Normalize(anyString(m["name"]))
		if name == "" {
			continue
		}
		out = append(out, DiscoveredNiche{
			Name:         name,
			Description:  norm.Normalize(anyString(m["description"])),
			Audience:     ParseAudience(anyString(m["audience_size"])),
			Trend:        ParseTrend(anyString(m["trend"])),
			Competition:  ParseCompetition(anyString(m["competition"])),
			Phrases:      anyStrings(m["phrases"], norm),
			Related:      anyStrings(m["related"], norm),
			Source:       SourceAIDiscovery,
			DiscoveredAt: now,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("niches: discovery response had no usable niches")
	}
	return out, nil
}

func anyString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func anyStrings(v any, norm *normalization.Normalizer) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s := norm.Normalize(anyString(x)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
