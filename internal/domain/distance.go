package domain

import "math"

// EarthRadiusKm is the mean Earth radius used for great-circle distances
// (kilometres).
const EarthRadiusKm = 6371.0

// Segment inclusion thresholds. Inherited upstream heuristics, preserved
// exactly: a longitude jump of 180 degrees or more marks an antimeridian
// artifact, and no balloon covers 2000 km in a single hourly hop.
const (
	maxSegmentLonDeltaDeg = 180.0
	maxSegmentKm          = 2000.0
)

// HaversineKm returns the great-circle distance in kilometres between two
// (lat, lon) points given in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// TotalDistanceKm sums the great-circle distances of consecutive fixes in
// hour-ascending order. Segments that jump the antimeridian or exceed the
// per-hop sanity limit are excluded from the sum without failing the
// computation.
func TotalDistanceKm(positions []Position) float64 {
	var total float64
	for i := 1; i < len(positions); i++ {
		prev, cur := positions[i-1], positions[i]
		if math.Abs(cur.Lon-prev.Lon) >= maxSegmentLonDeltaDeg {
			continue
		}
		d := HaversineKm(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
		if d >= maxSegmentKm {
			continue
		}
		total += d
	}
	return total
}

// BuildStats computes the per-refresh population aggregates. Both values are
// 0 when no balloons are tracked.
func BuildStats(histories map[string]*BalloonHistory) PopulationStats {
	if len(histories) == 0 {
		return PopulationStats{}
	}

	var stats PopulationStats
	var sum float64
	for _, h := range histories {
		sum += h.TotalDistanceKm
		if h.TotalDistanceKm > stats.MaxDistanceKm {
			stats.MaxDistanceKm = h.TotalDistanceKm
		}
	}
	stats.AverageDistanceKm = sum / float64(len(histories))
	return stats
}
