package normalization

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctuation = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'", "‹", "'", "›", "'",
	"“", "\"", "”", "\"", "„", "\"", "‟", "\"", "″", "\"", "«", "\"", "»", "\"",
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-", "−", "-",
	"…", "...", "•", "-", "·", "-",
)

// Symbols are padded with spaces; whitespace is collapsed afterwards.
var symbols = strings.NewReplacer(
	"€", " euros ", "£", " pounds ", "¥", " yen ", "¢", " cents ",
	"×", " x ", "÷", " divided by ", "±", " plus or minus ", "°", " degrees ",
	"≠", " not equal to ", "≤", " less than or equal to ", "≥", " greater than or equal to ",
	"∞", " infinity ", "½", "1/2", "¼", "1/4", "¾", "3/4",
	"™", "", "®", "", "©", "",
)

// Letters that do not decompose under NFKD.
var specialLetters = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "ø", "o", "Ø", "O",
	"œ", "oe", "Œ", "OE", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D",
	"þ", "th", "Þ", "Th", "ð", "d", "Ð", "D", "ı", "i",
)

var (
	multiSpace       = regexp.MustCompile(` {2,}`)
	spaceBeforePunct = regexp.MustCompile(` +([,.!?;:])`)
)

func foldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ToASCII maps text into printable ASCII (0x20-0x7E) without removing any vocabulary.
func ToASCII(s string) string {
	if s == "" {
		return ""
	}
	s = punctuation.Replace(s)
	s = symbols.Replace(s)
	s = foldAccents(s)
	s = specialLetters.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsControl(r):
		default:
			// emoji, pictographs, joiners and anything else we cannot spell
			b.WriteByte(' ')
		}
	}
	return tidy(b.String())
}

func tidy(s string) string {
	s = multiSpace.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// Normalizer is ToASCII plus case-insensitive whole-word removal of banned vocabulary.
type Normalizer struct {
	banned *regexp.Regexp
}

func New(banned []string) *Normalizer {
	words := make([]string, 0, len(banned))
	seen := map[string]bool{}
	for _, w := range banned {
		w = strings.Join(strings.Fields(strings.ToLower(ToASCII(w))), " ")
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	if len(words) == 0 {
		return &Normalizer{}
	}
	// longest first so multi-word phrases win over their parts
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", ` +`)
	}
	return &Normalizer{banned: regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)}
}

// Normalize is pure and idempotent. Banned removal repeats until nothing
// matches, since removing one phrase can join the halves of another.
func (n *Normalizer) Normalize(s string) string {
	out := ToASCII(s)
	if n == nil || n.banned == nil {
		return out
	}
	for i := 0; i <= len(out) && n.banned.MatchString(out); i++ {
		out = tidy(n.banned.ReplaceAllString(out, " "))
	}
	return out
}
