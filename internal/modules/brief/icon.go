package brief

import (
	"regexp"
	"strings"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/nichestyle"
)

// IconPolicy is the default for the icon-vs-text-only decision when no signal decides it.
type IconPolicy string

const (
	IconIncludeByDefault  IconPolicy = "include"
	IconTextOnlyByDefault IconPolicy = "text_only"
)

func ParseIconPolicy(s string) IconPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text_only", "text-only", "textonly", "exclude":
		return IconTextOnlyByDefault
	}
	return IconIncludeByDefault
}

var (
	visualWords   = wordMatcher("icon", "illustration", "graphic", "mascot", "emblem")
	textOnlyWords = wordMatcher("text only", "text-only", "typography only", "typography-only", "type only", "no icon", "no illustration", "without icon", "without illustration")
	minimalWords  = wordMatcher("minimal", "clean")
)

// wordMatcher matches any of the words or phrases as whole words, case-insensitively,
// with an optional plural s. Spaces inside a phrase match any run of whitespace.
func wordMatcher(words ...string) *regexp.Regexp {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)s?\b`)
}

// decideIcon applies the text-only signals; with none present the policy decides.
// Tone never forces text-only.
func decideIcon(policy IconPolicy, in inputs) bool {
	trendText := in.trend.VisualStyle + " " + in.trend.DesignStyle
	if textOnlyWords.MatchString(trendText) {
		return false
	}
	if minimalWords.MatchString(trendText) && !visualWords.MatchString(trendText) {
		return false
	}
	if in.analyzed != nil && in.analyzed.Layout.IconUsage == nichestyle.IconUsageNone {
		return false
	}
	if tl := in.trend.TextLayout; tl != nil && textOnlyWords.MatchString(tl.Reasoning) {
		return false
	}

	if policy == IconTextOnlyByDefault {
		if visualWords.MatchString(trendText) {
			return true
		}
		for _, p := range []*nichestyle.Profile{in.analyzed, in.research} {
			if p != nil && (p.Layout.IconUsage == nichestyle.IconUsageModerate || p.Layout.IconUsage == nichestyle.IconUsageHeavy) {
				return true
			}
		}
		return false
	}
	return true
}
