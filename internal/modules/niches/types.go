package niches

import (
	"errors"
	"strings"
	"time"
)

var ErrNoCandidates = errors.New("niches: no candidate niches")

type AudienceSize string

const (
	AudienceMassive AudienceSize = "massive"
	AudienceLarge   AudienceSize = "large"
	AudienceMedium  AudienceSize = "medium"
	AudienceSmall   AudienceSize = "small"
	AudienceMicro   AudienceSize = "micro"
)

type TrendDirection string

const (
	TrendExploding TrendDirection = "exploding"
	TrendGrowing   TrendDirection = "growing"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

type Competition string

const (
	CompetitionBlueOcean Competition = "blue_ocean"
	CompetitionLow       Competition = "low"
	CompetitionMedium    Competition = "medium"
	CompetitionHigh      Competition = "high"
	CompetitionSaturated Competition = "saturated"
)

type FocusArea string

const (
	FocusEvergreen FocusArea = "evergreen"
	FocusTrending  FocusArea = "trending"
	FocusEmerging  FocusArea = "emerging"
	FocusSeasonal  FocusArea = "seasonal"
	FocusRandom    FocusArea = "random"
)

// Source records where a candidate niche came from.
type Source string

const (
	SourceAIDiscovery     Source = "ai_discovery"
	SourceStored          Source = "stored"
	SourceCrossPollinated Source = "cross_pollinated"
	SourceStaticPool      Source = "static_pool"
)

type DiscoveredNiche struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Audience     AudienceSize   `json:"audience_size"`
	Trend        TrendDirection `json:"trend"`
	Competition  Competition    `json:"competition"`
	Phrases      []string       `json:"phrases,omitempty"`
	Related      []string       `json:"related,omitempty"`
	Source       Source         `json:"source"`
	DiscoveredAt time.Time      `json:"discovered_at"`
}

func ParseAudience(s string) AudienceSize {
	switch a := AudienceSize(strings.ToLower(strings.TrimSpace(s))); a {
	case AudienceMassive, AudienceLarge, AudienceMedium, AudienceSmall, AudienceMicro:
		return a
	}
	return AudienceMedium
}

func ParseTrend(s string) TrendDirection {
	switch t := TrendDirection(strings.ToLower(strings.TrimSpace(s))); t {
	case TrendExploding, TrendGrowing, TrendStable, TrendDeclining:
		return t
	}
	return TrendStable
}

func ParseCompetition(s string) Competition {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	switch c := Competition(v); c {
	case CompetitionBlueOcean, CompetitionLow, CompetitionMedium, CompetitionHigh, CompetitionSaturated:
		return c
	}
	return CompetitionMedium
}

func ParseFocusArea(s string) (FocusArea, bool) {
	switch f := FocusArea(strings.ToLower(strings.TrimSpace(s))); f {
	case FocusEvergreen, FocusTrending, FocusEmerging, FocusSeasonal, FocusRandom:
		return f, true
	}
	return "", false
}

type DiscoveryStatus string

const (
	DiscoveryOK          DiscoveryStatus = "ok"
	DiscoveryUnavailable DiscoveryStatus = "unavailable"
	DiscoveryCallFailure DiscoveryStatus = "call_failure"
	DiscoveryParseError  DiscoveryStatus = "parse_error"
)

// DiscoveryResult is the checked outcome of one AI discovery call. Niches is
// only populated when Status is DiscoveryOK.
type DiscoveryResult struct {
	Status DiscoveryStatus
	Niches []DiscoveredNiche
	Err    error
}

type PhraseSource string

const (
	PhraseSuggested PhraseSource = "suggested"
	PhraseAI        PhraseSource = "ai"
	PhraseTemplate  PhraseSource = "template"
)
