package brief

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StyleSource tags where the brief's style came from.
type StyleSource string

const (
	SourceDiscovered      StyleSource = "discovered"
	SourceResearched      StyleSource = "researched"
	SourceUserSpecified   StyleSource = "user-specified"
	SourceNicheDefault    StyleSource = "niche-default"
	SourceNicheResearched StyleSource = "niche-researched"
)

type TextSpec struct {
	Exact        string `json:"exact"`
	MaxLength    int    `json:"max_length"`
	PreserveCase bool   `json:"preserve_case"`
}

type TypographySpec struct {
	Required  string   `json:"required"`
	Forbidden []string `json:"forbidden,omitempty"`
	Weight    string   `json:"weight"`
	Effects   []string `json:"effects"`
}

type ColorSpec struct {
	Palette    []string `json:"palette"`
	Mood       string   `json:"mood"`
	ShirtColor string   `json:"shirt_color"`
	Forbidden  []string `json:"forbidden,omitempty"`
}

type AestheticSpec struct {
	Primary   string   `json:"primary"`
	Keywords  []string `json:"keywords"`
	Reference string   `json:"reference,omitempty"`
	Forbidden []string `json:"forbidden,omitempty"`
}

type LayoutSpec struct {
	Composition   string `json:"composition"`
	TextPlacement string `json:"text_placement"`
	IncludeIcon   bool   `json:"include_icon"`
	IconStyle     string `json:"icon_style,omitempty"`
	Reasoning     string `json:"reasoning,omitempty"`
}

type StyleSpec struct {
	Source        StyleSource    `json:"source"`
	Confidence    float64        `json:"confidence"`
	Typography    TypographySpec `json:"typography"`
	ColorApproach ColorSpec      `json:"color_approach"`
	Aesthetic     AestheticSpec  `json:"aesthetic"`
	Layout        LayoutSpec     `json:"layout"`
}

type ContextSpec struct {
	Niche       string   `json:"niche"`
	Audience    string   `json:"audience"`
	Tone        string   `json:"tone"`
	Season      string   `json:"season,omitempty"`
	CrossNiches []string `json:"cross_niches,omitempty"`
}

type Metadata struct {
	ID              uuid.UUID       `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	ResearchSource  string          `json:"research_source"`
	StyleConfidence float64         `json:"style_confidence"`
	RawTrend        json.RawMessage `json:"raw_trend,omitempty"`
}

// Brief is the creative contract handed to the executor. Text.Exact is
// rendered verbatim; only EnforceTextLength may shorten it.
type Brief struct {
	Text     TextSpec    `json:"text"`
	Style    StyleSpec   `json:"style"`
	Context  ContextSpec `json:"context"`
	Metadata Metadata    `json:"metadata"`
}

// TextLayout is an explicit layout decision from trend research.
type TextLayout struct {
	Positioning string `json:"positioning"`
	Emphasis    string `json:"emphasis"`
	Sizing      string `json:"sizing"`
	Reasoning   string `json:"reasoning"`
}

// TrendSignal is the upstream research for one design. Every field is optional.
type TrendSignal struct {
	DesignText   string          `json:"design_text"`
	Phrase       string          `json:"phrase"`
	Topic        string          `json:"topic"`
	Niche        string          `json:"niche"`
	Audience     string          `json:"audience"`
	Tone         string          `json:"tone"`
	Typography   string          `json:"typography"`
	VisualStyle  string          `json:"visual_style"`
	DesignStyle  string          `json:"design_style"`
	ColorPalette string          `json:"color_palette"`
	TextLayout   *TextLayout     `json:"text_layout,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
}

type UserOverrides struct {
	Text     string `json:"text"`
	Style    string `json:"style"`
	Tone     string `json:"tone"`
	Audience string `json:"audience"`
}
