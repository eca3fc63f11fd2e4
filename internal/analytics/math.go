package analytics

import "math"

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percent is part/total as a percentage rounded to two decimals.
func percent(part, total int) float64 {
	return round2(safeDiv(float64(part)*100, float64(total)))
}

func percentOf(part, total float64) float64 {
	return round2(safeDiv(part*100, total))
}
