package tracker_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/tracker"
)

var frozenNow = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freezeClock(t *testing.T) {
	t.Helper()
	tracker.SetClock(clockwork.NewFakeClockAt(frozenNow))
	t.Cleanup(func() { tracker.SetClock(nil) })
}

// stubFetcher serves canned snapshots per hour offset. Offsets listed in
// failing report a fetch failure; offsets with no snapshot succeed with an
// empty array.
type stubFetcher struct {
	snapshots map[int][]domain.RawTuple
	failing   map[int]bool
	calls     atomic.Int64
}

func (f *stubFetcher) Fetch(_ context.Context, hourOffset int) ([]domain.RawTuple, bool) {
	f.calls.Add(1)
	if f.failing[hourOffset] {
		return nil, false
	}
	return f.snapshots[hourOffset], true
}

func TestMergeAll_TwoSnapshotsOneBalloon(t *testing.T) {
	freezeClock(t)

	fetcher := &stubFetcher{snapshots: map[int][]domain.RawTuple{
		0: {{10, 10, 5}},
		1: {{10.1, 10.1, 5}},
	}}
	m := tracker.NewMerger(fetcher, discardLogger())

	histories, anyFailed, err := m.MergeAll(context.Background())
	require.NoError(t, err)
	assert.False(t, anyFailed)
	assert.EqualValues(t, domain.SnapshotHours, fetcher.calls.Load())

	require.Len(t, histories, 1)
	hist := histories["0"]
	require.NotNil(t, hist)
	require.Len(t, hist.Positions, 2)

	// Newest-first ordering: the hour-0 fix is current.
	require.NotNil(t, hist.Current)
	assert.Equal(t, 10.0, hist.Current.Lat)
	assert.Equal(t, 0, hist.Current.HourOffset)
	assert.Equal(t, frozenNow, hist.Current.Timestamp)
	assert.Equal(t, frozenNow.Add(-time.Hour), hist.Positions[1].Timestamp)

	want := domain.HaversineKm(10, 10, 10.1, 10.1)
	assert.InDelta(t, want, hist.TotalDistanceKm, 1e-9)
}

func TestMergeAll_SentinelNeverAppears(t *testing.T) {
	freezeClock(t)

	fetcher := &stubFetcher{snapshots: map[int][]domain.RawTuple{
		0: {{0, 0, 0}, {20, 30, 10}},
		1: {{0, 0, 0}, {20.1, 30.1, 10}},
	}}
	m := tracker.NewMerger(fetcher, discardLogger())

	histories, _, err := m.MergeAll(context.Background())
	require.NoError(t, err)

	// Index 0 produced only sentinels, so no history exists for it at all.
	require.Len(t, histories, 1)
	assert.Nil(t, histories["0"])
	require.NotNil(t, histories["1"])
	for _, pos := range histories["1"].Positions {
		assert.False(t, pos.Lat == 0 && pos.Lon == 0 && pos.AltKm == 0)
	}
}

func TestMergeAll_PartialFailureStillMerges(t *testing.T) {
	freezeClock(t)

	snapshots := make(map[int][]domain.RawTuple)
	failing := make(map[int]bool)
	for h := range domain.SnapshotHours {
		if h >= 10 && h < 15 {
			failing[h] = true
			continue
		}
		snapshots[h] = []domain.RawTuple{{40, float64(h), 12}}
	}
	m := tracker.NewMerger(&stubFetcher{snapshots: snapshots, failing: failing}, discardLogger())

	histories, anyFailed, err := m.MergeAll(context.Background())
	require.NoError(t, err)
	assert.True(t, anyFailed)

	require.Len(t, histories, 1)
	hist := histories["0"]
	assert.Len(t, hist.Positions, domain.SnapshotHours-5)
	assert.Positive(t, hist.TotalDistanceKm)
}

func TestMergeAll_AllFetchesFailed(t *testing.T) {
	freezeClock(t)

	failing := make(map[int]bool)
	for h := range domain.SnapshotHours {
		failing[h] = true
	}
	m := tracker.NewMerger(&stubFetcher{failing: failing}, discardLogger())

	histories, anyFailed, err := m.MergeAll(context.Background())
	assert.ErrorIs(t, err, tracker.ErrNoData)
	assert.True(t, anyFailed)
	assert.Nil(t, histories)
}

func TestMergeAll_EmptyButSuccessful(t *testing.T) {
	freezeClock(t)

	// Every fetch succeeds but carries no valid records: not an error.
	m := tracker.NewMerger(&stubFetcher{}, discardLogger())

	histories, anyFailed, err := m.MergeAll(context.Background())
	require.NoError(t, err)
	assert.False(t, anyFailed)
	assert.Empty(t, histories)
}

func TestMergeAll_IdentityByArrayIndex(t *testing.T) {
	freezeClock(t)

	// Invalid slots keep their index, so balloon 2 stays balloon 2 in every
	// snapshot even when earlier elements are corrupted.
	fetcher := &stubFetcher{snapshots: map[int][]domain.RawTuple{
		0: {{1, 1, 1}, nil, {50, 60, 14}},
		1: {nil, nil, {50.2, 60.2, 14}},
	}}
	m := tracker.NewMerger(fetcher, discardLogger())

	histories, _, err := m.MergeAll(context.Background())
	require.NoError(t, err)

	require.NotNil(t, histories["2"])
	assert.Len(t, histories["2"].Positions, 2)
	assert.Nil(t, histories["1"])
}
