package domain

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Properties is the free-form metadata of a hazard feature (event, severity,
// headline, effective, expires, ...). It is passed through to consumers
// untouched.
type Properties map[string]any

// HazardFeature is one weather-hazard polygon from the alert feed. Rings
// holds the outer ring of each polygon as (lon, lat) vertex pairs; a feature
// parsed from a Polygon geometry has one ring, a MultiPolygon one per member
// polygon.
type HazardFeature struct {
	ID         string
	Rings      [][][2]float64
	Properties Properties
}

// Wire types for the GeoJSON-like feed payload. Coordinates stay raw until
// the geometry type is known.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Geometry   geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseHazards decodes a FeatureCollection payload into the hazard set. A
// feature with a malformed or unsupported geometry is skipped with a warning
// rather than failing the whole feed; only an undecodable payload is an
// error.
func ParseHazards(data []byte, logger *slog.Logger) ([]HazardFeature, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse hazard feed: %w", err)
	}

	hazards := make([]HazardFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		rings, err := parseRings(f.Geometry)
		if err != nil {
			logger.Warn("skipping hazard with invalid geometry",
				"hazard_id", f.ID,
				"geometry_type", f.Geometry.Type,
				"error", err,
			)
			continue
		}
		hazards = append(hazards, HazardFeature{
			ID:         f.ID,
			Rings:      rings,
			Properties: f.Properties,
		})
	}
	return hazards, nil
}

// parseRings extracts the outer ring of each polygon in the geometry.
// GeoJSON nests Polygon coordinates as [ring][vertex][lon,lat] and
// MultiPolygon as [polygon][ring][vertex][lon,lat]; ring 0 is the outer
// boundary, later rings are holes (ignored here, as the feed does not use
// them).
func parseRings(g geometry) ([][][2]float64, error) {
	var polys [][][][2]float64

	switch g.Type {
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, err
		}
		polys = [][][][2]float64{rings}
	case "MultiPolygon":
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}

	var outers [][][2]float64
	for _, rings := range polys {
		if len(rings) == 0 {
			continue
		}
		outer := rings[0]
		if len(outer) < 3 || !ringIsFinite(outer) {
			continue
		}
		outers = append(outers, outer)
	}
	if len(outers) == 0 {
		return nil, fmt.Errorf("no ring with at least 3 finite vertices")
	}
	return outers, nil
}

func ringIsFinite(ring [][2]float64) bool {
	for _, v := range ring {
		if !isFinite(v[0]) || !isFinite(v[1]) {
			return false
		}
	}
	return true
}

// MatchingHazards returns the properties of every hazard whose polygon
// contains the position, in feed order. The result is an empty (non-nil)
// slice when nothing matches, so "checked, no hazards" is distinguishable
// from "not checked".
func MatchingHazards(pos Position, hazards []HazardFeature) []Properties {
	matched := make([]Properties, 0)
	for _, h := range hazards {
		for _, ring := range h.Rings {
			if ringContains(ring, pos.Lat, pos.Lon) {
				matched = append(matched, h.Properties)
				break
			}
		}
	}
	return matched
}

// ringContains runs a ray-casting point-in-polygon test. Vertices are
// (lon, lat) pairs; mixing up the order silently tests the wrong hemisphere,
// so callers must keep the feed's ordering.
func ringContains(ring [][2]float64, lat, lon float64) bool {
	if len(ring) < 3 {
		return false
	}

	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		if (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
