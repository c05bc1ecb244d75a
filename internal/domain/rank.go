package domain

// Direction places a balloon's total distance relative to the population
// average.
type Direction string

const (
	DirectionBelow   Direction = "below"
	DirectionAbove   Direction = "above"
	DirectionNeutral Direction = "neutral"
)

// Classification is a renderer-agnostic relative-magnitude rank: a 0..1
// position on a three-point gradient (zero, population average, population
// max). The presentation layer owns the actual color mapping.
type Classification struct {
	Rank      float64   `json:"rank"`
	Direction Direction `json:"direction"`
}

// Classify ranks one balloon's total distance against the population.
//
// With no usable population average the result is a neutral midpoint. A
// distance exactly at the average lands in the "above" branch with rank 0;
// otherwise the rank is linear within its half of the gradient and clamped
// to 1.
func Classify(totalKm float64, stats PopulationStats) Classification {
	avg, max := stats.AverageDistanceKm, stats.MaxDistanceKm

	if avg <= 0 {
		return Classification{Rank: 0.5, Direction: DirectionNeutral}
	}
	if totalKm < avg {
		return Classification{Rank: totalKm / avg, Direction: DirectionBelow}
	}

	spread := max - avg
	if spread <= 0 {
		return Classification{Rank: 0, Direction: DirectionAbove}
	}
	rank := (totalKm - avg) / spread
	if rank > 1 {
		rank = 1
	}
	return Classification{Rank: rank, Direction: DirectionAbove}
}
