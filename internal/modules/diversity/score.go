package diversity

import (
	"encoding/json"
	"math"
)

type Recommendation string

const (
	RecommendationExcellent  Recommendation = "excellent"
	RecommendationGood       Recommendation = "good"
	RecommendationAcceptable Recommendation = "acceptable"
	RecommendationAvoid      Recommendation = "avoid"
)

const (
	weightNiche  = 0.3
	weightPhrase = 0.4
	weightTopic  = 0.3

	thresholdExcellent = 0.8
	thresholdGood      = 0.6
)

// Score is a derived novelty measurement; it is never persisted.
type Score struct {
	Overall       float64 `json:"overall"`
	NicheNovelty  float64 `json:"niche_novelty"`
	PhraseNovelty float64 `json:"phrase_novelty"`
	TopicNovelty  float64 `json:"topic_novelty"`
	// HoursSinceLastSimilar is +Inf when nothing in the window is similar.
	HoursSinceLastSimilar float64        `json:"-"`
	Recommendation        Recommendation `json:"recommendation"`
}

// MarshalJSON writes an unbounded HoursSinceLastSimilar as null.
func (s Score) MarshalJSON() ([]byte, error) {
	type plain Score
	var hours *float64
	if !math.IsInf(s.HoursSinceLastSimilar, 0) && !math.IsNaN(s.HoursSinceLastSimilar) {
		h := s.HoursSinceLastSimilar
		hours = &h
	}
	return json.Marshal(struct {
		plain
		HoursSinceLastSimilar *float64 `json:"hours_since_last_similar"`
	}{plain(s), hours})
}

// MaxNovelty is the score for a candidate with no history to compare against.
func MaxNovelty() Score {
	return Score{
		Overall:               1,
		NicheNovelty:          1,
		PhraseNovelty:         1,
		TopicNovelty:          1,
		HoursSinceLastSimilar: math.Inf(1),
		Recommendation:        RecommendationExcellent,
	}
}

// ComputeOverall is the fixed weighted sum of the three components, clamped to [0,1].
func ComputeOverall(niche, phrase, topic float64) float64 {
	return clamp01(weightNiche*niche + weightPhrase*phrase + weightTopic*topic)
}

func RecommendationFor(overall, minAcceptable float64) Recommendation {
	switch {
	case overall >= thresholdExcellent:
		return RecommendationExcellent
	case overall >= thresholdGood:
		return RecommendationGood
	case overall >= minAcceptable:
		return RecommendationAcceptable
	default:
		return RecommendationAvoid
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
