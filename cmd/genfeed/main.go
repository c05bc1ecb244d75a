// Command genfeed generates a mock snapshot feed for local development: 24
// hourly files (00.json through 23.json) describing a random-walk
// constellation, with a configurable share of corrupted elements to mimic the
// real feed's data quality.
//
// Usage:
//
//	go run ./cmd/genfeed -out ./devfeed -balloons 50 -corrupt 0.05
//
// Serve the output directory with any static file server and point
// FEED_BASE_URL at it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/skydrift/balloon-track/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "devfeed", "output directory for snapshot files")
	balloons := flag.Int("balloons", 50, "number of balloons in the constellation")
	corrupt := flag.Float64("corrupt", 0.05, "fraction of corrupted elements per snapshot")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))

	// Walk each balloon backwards from a random starting fix. Hourly steps
	// stay small enough to pass the distance engine's outlier thresholds.
	type fix struct{ lat, lon, alt float64 }
	tracks := make([][]fix, *balloons)
	for i := range tracks {
		cur := fix{
			lat: rng.Float64()*160 - 80,
			lon: rng.Float64()*360 - 180,
			alt: 10 + rng.Float64()*10,
		}
		hourly := make([]fix, domain.SnapshotHours)
		for h := range hourly {
			hourly[h] = cur
			cur.lat = clamp(cur.lat+rng.Float64()-0.5, -90, 90)
			cur.lon = wrapLon(cur.lon + rng.Float64()*2 - 1)
			cur.alt += rng.Float64()*0.6 - 0.3
		}
		tracks[i] = hourly
	}

	for h := range domain.SnapshotHours {
		elements := make([]any, *balloons)
		for i := range elements {
			switch {
			case rng.Float64() < *corrupt/2:
				elements[i] = nil
			case rng.Float64() < *corrupt/2:
				elements[i] = []float64{0, 0, 0}
			default:
				f := tracks[i][h]
				elements[i] = []float64{f.lat, f.lon, f.alt}
			}
		}

		data, err := json.Marshal(elements)
		if err != nil {
			return err
		}
		path := filepath.Join(*out, fmt.Sprintf("%02d.json", h))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	log.Printf("wrote %d snapshots for %d balloons to %s", domain.SnapshotHours, *balloons, *out)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
