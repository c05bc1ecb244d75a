package tracker

import (
	"sync/atomic"
	"time"

	"github.com/skydrift/balloon-track/internal/domain"
)

// TrackSnapshot is the immutable result of one positional refresh cycle.
type TrackSnapshot struct {
	Histories       map[string]*domain.BalloonHistory
	Stats           domain.PopulationStats
	Classifications map[string]domain.Classification
	AnyFetchFailed  bool
	RefreshedAt     time.Time
}

// AlertSnapshot is the immutable result of one alert refresh cycle. Matches
// holds an entry for every balloon with a valid current position; the value
// is empty (not nil) when no hazard contains the balloon.
type AlertSnapshot struct {
	Matches     map[string][]domain.Properties
	HazardCount int
	RefreshedAt time.Time
}

// Paths returns the renderable polylines for each balloon over the given
// look-back window in hours (clamped to 1..24), split at antimeridian
// crossings. Balloons whose window yields no drawable segment are omitted.
func (s *TrackSnapshot) Paths(hours int) map[string][][]domain.Position {
	if hours < 1 {
		hours = 1
	} else if hours > domain.SnapshotHours {
		hours = domain.SnapshotHours
	}

	paths := make(map[string][][]domain.Position)
	for id, hist := range s.Histories {
		// Positions are newest-first; walk backwards for a chronologically
		// ascending window.
		var window []domain.Position
		for i := len(hist.Positions) - 1; i >= 0; i-- {
			if hist.Positions[i].HourOffset < hours {
				window = append(window, hist.Positions[i])
			}
		}
		if segments := domain.SplitAtAntimeridian(window); len(segments) > 0 {
			paths[id] = segments
		}
	}
	return paths
}

// Store holds the latest snapshot of each cycle. Writers publish a fully
// built snapshot with an atomic pointer swap, so readers always observe
// either the previous complete result or the new one, never a torn state.
// There is no cross-cycle locking: the two cycles own separate slots.
type Store struct {
	tracks atomic.Pointer[TrackSnapshot]
	alerts atomic.Pointer[AlertSnapshot]
}

// NewStore creates an empty Store. Both getters return nil until the first
// corresponding refresh completes.
func NewStore() *Store {
	return &Store{}
}

// Tracks returns the latest positional snapshot, or nil before the first
// refresh.
func (s *Store) Tracks() *TrackSnapshot { return s.tracks.Load() }

// SetTracks publishes a new positional snapshot.
func (s *Store) SetTracks(snap *TrackSnapshot) { s.tracks.Store(snap) }

// Alerts returns the latest alert snapshot, or nil before the first refresh.
func (s *Store) Alerts() *AlertSnapshot { return s.alerts.Load() }

// SetAlerts publishes a new alert snapshot.
func (s *Store) SetAlerts(snap *AlertSnapshot) { s.alerts.Store(snap) }
