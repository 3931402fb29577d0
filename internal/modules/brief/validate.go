package brief

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrIncompleteBrief means a cascade left a required field empty. It indicates
// a builder bug, not an upstream failure.
var ErrIncompleteBrief = errors.New("brief: incomplete brief")

func Validate(b *Brief) error {
	if b == nil {
		return fmt.Errorf("%w: nil brief", ErrIncompleteBrief)
	}
	missing := []string{}
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("text.exact", b.Text.Exact)
	check("style.source", string(b.Style.Source))
	check("style.typography.required", b.Style.Typography.Required)
	check("style.typography.weight", b.Style.Typography.Weight)
	if len(b.Style.ColorApproach.Palette) == 0 {
		missing = append(missing, "style.color_approach.palette")
	}
	check("style.color_approach.mood", b.Style.ColorApproach.Mood)
	check("style.color_approach.shirt_color", b.Style.ColorApproach.ShirtColor)
	check("style.aesthetic.primary", b.Style.Aesthetic.Primary)
	check("style.layout.composition", b.Style.Layout.Composition)
	check("style.layout.text_placement", b.Style.Layout.TextPlacement)
	if b.Style.Layout.IncludeIcon {
		check("style.layout.icon_style", b.Style.Layout.IconStyle)
	}
	if b.Style.Typography.Effects == nil {
		missing = append(missing, "style.typography.effects")
	}
	if b.Style.Aesthetic.Keywords == nil {
		missing = append(missing, "style.aesthetic.keywords")
	}
	check("context.niche", b.Context.Niche)
	check("context.audience", b.Context.Audience)
	check("context.tone", b.Context.Tone)
	if b.Metadata.ID == uuid.Nil {
		missing = append(missing, "metadata.id")
	}
	if b.Metadata.CreatedAt.IsZero() {
		missing = append(missing, "metadata.created_at")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteBrief, strings.Join(missing, ", "))
	}
	return nil
}

// EnforceTextLength cuts text to at most max runes, backing up to a word
// boundary when one exists. It reports whether the text changed.
func EnforceTextLength(text string, max int) (string, bool) {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text, false
	}
	cut := string(runes[:max])
	if runes[max] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	cut = strings.TrimRight(cut, " ,;:-")
	if cut == "" {
		cut = string(runes[:max])
	}
	return cut, true
}
