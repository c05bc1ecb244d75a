package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/skydrift/balloon-track/internal/domain"
)

// ErrNoData is returned when every snapshot fetch failed and no history could
// be produced. It is distinct from an empty-but-successful merge, which
// returns an empty map and a nil error.
var ErrNoData = errors.New("no balloon histories: all snapshot fetches failed")

// SnapshotFetcher retrieves one hourly snapshot. ok is false on a transient
// fetch failure; the merger treats that as missing data, never as fatal.
type SnapshotFetcher interface {
	Fetch(ctx context.Context, hourOffset int) ([]domain.RawTuple, bool)
}

// Merger reconstructs per-balloon histories from all hourly snapshots.
type Merger struct {
	fetcher SnapshotFetcher
	logger  *slog.Logger
}

// NewMerger creates a Merger over the given snapshot source.
func NewMerger(fetcher SnapshotFetcher, logger *slog.Logger) *Merger {
	return &Merger{fetcher: fetcher, logger: logger}
}

// MergeAll dispatches all 24 snapshot fetches concurrently, waits for every
// one to resolve (a failing fetch never aborts its siblings), and merges the
// validated records into per-balloon histories keyed by array index.
//
// The returned bool reports whether any fetch failed. ErrNoData is returned
// only when all of them did.
func (m *Merger) MergeAll(ctx context.Context) (map[string]*domain.BalloonHistory, bool, error) {
	type fetchResult struct {
		tuples []domain.RawTuple
		ok     bool
	}

	// Each fetch writes only its own slot; the shared history map is not
	// touched until after the join.
	results := make([]fetchResult, domain.SnapshotHours)
	var wg sync.WaitGroup
	for h := range domain.SnapshotHours {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tuples, ok := m.fetcher.Fetch(ctx, h)
			results[h] = fetchResult{tuples: tuples, ok: ok}
		}()
	}
	wg.Wait()

	now := clock.Now()
	histories := make(map[string]*domain.BalloonHistory)
	anyFailed, allFailed := false, true

	for h, res := range results {
		if !res.ok {
			anyFailed = true
			continue
		}
		allFailed = false

		ts := now.Add(-time.Duration(h) * time.Hour)
		for i, raw := range res.tuples {
			pos, ok := domain.ParseTuple(raw, h, ts)
			if !ok {
				continue
			}
			id := strconv.Itoa(i)
			hist := histories[id]
			if hist == nil {
				hist = &domain.BalloonHistory{ID: id}
				histories[id] = hist
			}
			hist.Positions = append(hist.Positions, pos)
		}
	}

	if allFailed {
		return nil, true, ErrNoData
	}

	for _, hist := range histories {
		finalize(hist)
	}

	m.logger.Debug("snapshots merged",
		"balloons", len(histories),
		"any_fetch_failed", anyFailed,
	)
	return histories, anyFailed, nil
}

// finalize orders a history and derives its aggregate fields. Timestamps are
// now minus the hour offset, so ascending offset and descending timestamp are
// the same ordering: a single newest-first sort serves both the distance walk
// and current-position extraction. Ties within an hour keep ingestion order,
// most recent first.
func finalize(hist *domain.BalloonHistory) {
	sort.SliceStable(hist.Positions, func(a, b int) bool {
		pa, pb := hist.Positions[a], hist.Positions[b]
		if pa.HourOffset != pb.HourOffset {
			return pa.HourOffset < pb.HourOffset
		}
		return pa.Timestamp.After(pb.Timestamp)
	})

	hist.TotalDistanceKm = domain.TotalDistanceKm(hist.Positions)
	hist.Current = &hist.Positions[0]
}
