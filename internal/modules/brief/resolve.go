package brief

import "strings"

// resolver is one level of a priority cascade.
type resolver[T any] struct {
	source StyleSource
	fn     func() (T, bool)
}

func level[T any](source StyleSource, fn func() (T, bool)) resolver[T] {
	return resolver[T]{source: source, fn: fn}
}

// firstResolved walks the levels in order and returns the first populated value.
// ok is false only when every level came up empty.
func firstResolved[T any](levels ...resolver[T]) (value T, source StyleSource, ok bool) {
	for _, l := range levels {
		if l.fn == nil {
			continue
		}
		if v, found := l.fn(); found {
			return v, l.source, true
		}
	}
	var zero T
	return zero, "", false
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

type typographyHint struct {
	Typography string
	Weight     string
	Effects    []string
}

// sniffTypography maps style words in free text to a typography hint.
func sniffTypography(text string) (typographyHint, bool) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "vintage"):
		return typographyHint{Typography: "vintage serif", Weight: "bold", Effects: []string{"distressed texture"}}, true
	case strings.Contains(t, "retro"):
		return typographyHint{Typography: "retro display type", Weight: "heavy", Effects: []string{"drop shadow"}}, true
	case strings.Contains(t, "modern"):
		return typographyHint{Typography: "clean modern sans-serif", Weight: "semibold", Effects: []string{}}, true
	case strings.Contains(t, "playful"):
		return typographyHint{Typography: "rounded playful sans-serif", Weight: "bold", Effects: []string{}}, true
	}
	return typographyHint{}, false
}

var moodKeywords = []struct {
	keywords []string
	mood     string
}{
	{[]string{"warm", "cozy"}, "warm and cozy"},
	{[]string{"bold", "energetic"}, "bold and energetic"},
	{[]string{"calm", "minimal"}, "calm and minimal"},
	{[]string{"professional"}, "professional and polished"},
	{[]string{"playful"}, "playful and fun"},
}

func sniffMood(texts ...string) (string, bool) {
	t := strings.ToLower(strings.Join(texts, " "))
	if strings.TrimSpace(t) == "" {
		return "", false
	}
	for _, m := range moodKeywords {
		for _, k := range m.keywords {
			if strings.Contains(t, k) {
				return m.mood, true
			}
		}
	}
	return "", false
}

// splitPalette splits a raw palette string on commas and semicolons.
func splitPalette(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
