package normalization

import (
	"strings"
)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// NormalizeKey is the comparison form for niches, topics and phrases:
// ASCII-folded, lower case, single spaced.
func NormalizeKey(input string) string {
	return strings.Join(strings.Fields(ParseInputString(ToASCII(input))), " ")
}
