package promptstyle

import "strings"

const marker = "MERCH_PROMPT_STYLE_V1"

// ApplySystem prepends a short guidance block to system prompts.
// Prompts that already carry the marker are returned unchanged.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" {
		return base
	}
	if strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou support a print-on-demand apparel design workflow.")
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nNever reword text that you are told to reproduce exactly.")
	if mode == "json" {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nReturn only the requested output without commentary.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return strings.TrimSpace(b.String())
}
