package niches

// NicheWeight is the roulette weight of a niche at the given risk level.
func NicheWeight(n DiscoveredNiche, riskLevel int) float64 {
	w := 1.0
	switch n.Competition {
	case CompetitionBlueOcean:
		w *= 3
	case CompetitionLow:
		w *= 2
	case CompetitionSaturated:
		w *= 0.3
	}
	if riskLevel > 50 {
		switch n.Trend {
		case TrendExploding:
			w *= 2
		case TrendGrowing:
			w *= 1.5
		}
	} else if n.Trend == TrendStable {
		w *= 1.5
	}
	return w
}

// pickWeighted draws one index with probability proportional to its weight.
// roll must be in [0,1).
func pickWeighted(niches []DiscoveredNiche, riskLevel int, roll float64) int {
	total := 0.0
	weights := make([]float64, len(niches))
	for i, n := range niches {
		weights[i] = NicheWeight(n, riskLevel)
		total += weights[i]
	}
	target := roll * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(niches) - 1
}

// FocusForRisk maps a risk level to the discovery focus used when exploration is not forced.
func FocusForRisk(riskLevel int) FocusArea {
	switch {
	case riskLevel < 30:
		return FocusEvergreen
	case riskLevel < 50:
		return FocusRandom
	case riskLevel < 70:
		return FocusTrending
	default:
		return FocusEmerging
	}
}

// ForcedFocus maps a uniform roll in [0,1) to a focus for forced exploration.
func ForcedFocus(roll float64) FocusArea {
	switch {
	case roll < 0.35:
		return FocusEmerging
	case roll < 0.65:
		return FocusTrending
	case roll < 0.85:
		return FocusSeasonal
	default:
		return FocusRandom
	}
}
