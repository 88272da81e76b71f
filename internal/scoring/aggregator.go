package scoring

import "math"

// NormalizeTestScore converts a raw 0-100 test result into [0, 1].
func NormalizeTestScore(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	return clamp01(raw / 100)
}

// Aggregate returns the final score of b using the weights that apply to it.
func Aggregate(b ScoreBreakdown, p Policy) float64 {
	w := p.WeightsFor(b.TestScore != nil)

	final := w.Skill*b.CombinedSkill + w.Experience*b.Experience + w.Education*b.Education
	if b.TestScore != nil {
		final += w.Test * *b.TestScore
	}

	return clamp01(final)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
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
