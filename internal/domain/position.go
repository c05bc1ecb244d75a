package domain

import (
	"math"
	"time"
)

// SnapshotHours is the number of hourly snapshots the feed exposes: offset 0
// (current) through 23 (23 hours ago).
const SnapshotHours = 24

// RawTuple is one undecoded element of an hourly snapshot array:
// [latitude, longitude, altitude_km, ...]. A nil or short tuple is an
// invalid record and is skipped during validation.
type RawTuple []float64

// Position is a single validated balloon fix.
type Position struct {
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	AltKm      float64   `json:"alt_km"`
	Timestamp  time.Time `json:"timestamp"`
	HourOffset int       `json:"hour_offset"`
}

// BalloonHistory is the reconstructed track of one balloon across a refresh
// cycle. Positions are sorted newest-first; Current points at Positions[0]
// when at least one valid fix exists.
type BalloonHistory struct {
	ID              string     `json:"id"`
	Positions       []Position `json:"positions"`
	TotalDistanceKm float64    `json:"total_distance_km"`
	Current         *Position  `json:"current,omitempty"`
}

// PopulationStats holds per-refresh aggregates over all tracked balloons.
// It is built once per cycle and shared read-only.
type PopulationStats struct {
	MaxDistanceKm     float64 `json:"max_distance_km"`
	AverageDistanceKm float64 `json:"average_distance_km"`
}

// ParseTuple validates one raw snapshot element and converts it into a
// Position stamped with the given hour offset and timestamp. The second
// return value is false when the record must be discarded: fewer than three
// elements, a non-finite or out-of-range coordinate, or the feed's all-zero
// "no data" sentinel. A non-finite altitude defaults to 0 rather than
// discarding the fix.
func ParseTuple(raw RawTuple, hourOffset int, ts time.Time) (Position, bool) {
	if len(raw) < 3 {
		return Position{}, false
	}

	lat, lon, alt := raw[0], raw[1], raw[2]
	if !isFinite(lat) || !isFinite(lon) {
		return Position{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Position{}, false
	}
	if lat == 0 && lon == 0 && alt == 0 {
		// Upstream sentinel for "no data".
		return Position{}, false
	}
	if !isFinite(alt) {
		alt = 0
	}

	return Position{
		Lat:        lat,
		Lon:        lon,
		AltKm:      alt,
		Timestamp:  ts,
		HourOffset: hourOffset,
	}, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
