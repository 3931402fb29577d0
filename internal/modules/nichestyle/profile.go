package nichestyle

import (
	"strings"
	"time"
)

// Kind separates the heavier image-analyzed profile from the lighter
// web-research result. Both share the Profile shape.
type Kind string

const (
	KindAnalyzed   Kind = "analyzed"
	KindResearched Kind = "researched"
)

type IconUsage string

const (
	IconUsageNone     IconUsage = "none"
	IconUsageMinimal  IconUsage = "minimal"
	IconUsageModerate IconUsage = "moderate"
	IconUsageHeavy    IconUsage = "heavy"
)

func ParseIconUsage(s string) IconUsage {
	switch u := IconUsage(strings.ToLower(strings.TrimSpace(s))); u {
	case IconUsageNone, IconUsageMinimal, IconUsageModerate, IconUsageHeavy:
		return u
	case "light", "low", "rare":
		return IconUsageMinimal
	case "high", "dominant":
		return IconUsageHeavy
	}
	return ""
}

type Typography struct {
	Primary string   `json:"primary"`
	Weight  string   `json:"weight,omitempty"`
	Effects []string `json:"effects,omitempty"`
	Avoid   []string `json:"avoid,omitempty"`
}

type Palette struct {
	Primary    []string `json:"primary"`
	Accent     []string `json:"accent,omitempty"`
	Background string   `json:"background,omitempty"`
}

type Layout struct {
	Composition   string    `json:"composition"`
	TextPlacement string    `json:"text_placement"`
	IconUsage     IconUsage `json:"icon_usage,omitempty"`
}

type Mood struct {
	Primary   string   `json:"primary"`
	Secondary []string `json:"secondary,omitempty"`
	Avoid     []string `json:"avoid,omitempty"`
}

// Profile is the style signal for one niche, consumed read-only by the brief builder.
type Profile struct {
	Niche             string     `json:"niche"`
	Kind              Kind       `json:"kind"`
	Typography        Typography `json:"typography"`
	Palette           Palette    `json:"palette"`
	Layout            Layout     `json:"layout"`
	IllustrationStyle string     `json:"illustration_style,omitempty"`
	Mood              Mood       `json:"mood"`
	Audience          string     `json:"audience,omitempty"`
	Confidence        float64    `json:"confidence"`
	SampleSize        int        `json:"sample_size"`
	LastAnalyzedAt    time.Time  `json:"last_analyzed_at"`
}

// Empty reports whether the profile carries no usable style signal.
func (p *Profile) Empty() bool {
	if p == nil {
		return true
	}
	return p.Typography.Primary == "" && len(p.Palette.Primary) == 0 &&
		p.Layout.Composition == "" && p.Mood.Primary == ""
}
