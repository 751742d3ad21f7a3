package search

// Normalize min-max scales scores into [0,1]. The maximum maps to 1 and the
// minimum to 0. When every score is equal each maps to 1. Empty input yields
// an empty slice.
func Normalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	if hi == lo {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}

	span := hi - lo
	for i, s := range scores {
		out[i] = (s - lo) / span
	}
	return out
}

func scoresOf(list []Ranked) []float64 {
	out := make([]float64, len(list))
	for i, r := range list {
		out[i] = r.Score
	}
	return out
}
