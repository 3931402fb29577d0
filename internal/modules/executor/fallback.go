package executor

import (
	"fmt"
	"strings"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/brief"
)

// FallbackResult builds the template prompt straight from the brief fields:
// text first, then style, then context, then the quality floor.
func FallbackResult(b *brief.Brief, qualityFloor []string) Result {
	return Result{
		Success: true,
		Prompt:  TemplatePrompt(b, qualityFloor),
		Compliance: Compliance{
			TextPreserved:         true,
			TypographyFollowed:    true,
			ColorApproachFollowed: true,
			AestheticFollowed:     true,
			ForbiddenAvoided:      true,
			OverallScore:          FallbackScore,
		},
		Warnings:     []string{WarnFallback},
		UsedFallback: true,
	}
}

func TemplatePrompt(b *brief.Brief, qualityFloor []string) string {
	s := b.Style
	var lines []string
	add := func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	add("T-shirt design with the exact text %q as the dominant element, spelled exactly as written.", b.Text.Exact)
	add("Style: %s.", s.Aesthetic.Primary)
	if len(s.Aesthetic.Keywords) > 0 {
		add("Style keywords: %s.", strings.Join(s.Aesthetic.Keywords, ", "))
	}
	typo := s.Typography.Weight + " " + s.Typography.Required
	if len(s.Typography.Effects) > 0 {
		typo += " with " + strings.Join(s.Typography.Effects, ", ")
	}
	add("Typography: %s.", strings.TrimSpace(typo))
	add("Colors: %s on a %s shirt.", strings.Join(s.ColorApproach.Palette, ", "), s.ColorApproach.ShirtColor)
	add("Mood: %s.", s.ColorApproach.Mood)
	add("Layout: %s; %s.", s.Layout.Composition, s.Layout.TextPlacement)
	if s.Layout.IncludeIcon {
		add("Supporting icon: %s.", s.Layout.IconStyle)
	} else {
		add("Typography only, no icon or illustration.")
	}
	add("For %s in the %s niche, %s tone.", b.Context.Audience, b.Context.Niche, b.Context.Tone)
	if b.Context.Season != "" {
		add("Seasonal theme: %s.", b.Context.Season)
	}

	var avoid []string
	avoid = append(avoid, s.Typography.Forbidden...)
	avoid = append(avoid, s.ColorApproach.Forbidden...)
	avoid = append(avoid, s.Aesthetic.Forbidden...)
	avoid = append(avoid, qualityFloor...)
	if len(avoid) > 0 {
		add("Avoid: %s.", strings.Join(avoid, ", "))
	}
	return strings.Join(lines, "\n")
}
