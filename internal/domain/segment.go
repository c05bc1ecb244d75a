package domain

import "math"

// SplitAtAntimeridian splits a chronologically ascending track into
// renderable polyline segments, starting a new segment whenever the longitude
// delta between consecutive fixes exceeds 180 degrees. Drawing straight
// through such a jump would smear a line across the whole map instead of
// wrapping at the date line. Segments with fewer than two points are dropped.
func SplitAtAntimeridian(positions []Position) [][]Position {
	var segments [][]Position
	var current []Position

	for i, pos := range positions {
		if i > 0 && math.Abs(pos.Lon-positions[i-1].Lon) > 180 {
			if len(current) >= 2 {
				segments = append(segments, current)
			}
			current = nil
		}
		current = append(current, pos)
	}
	if len(current) >= 2 {
		segments = append(segments, current)
	}

	return segments
}
