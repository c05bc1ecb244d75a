package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/tracker"
)

func TestBuildMessages(t *testing.T) {
	refreshedAt := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	current := domain.Position{Lat: 10, Lon: 20, AltKm: 5, Timestamp: refreshedAt}

	tracks := &tracker.TrackSnapshot{
		Histories: map[string]*domain.BalloonHistory{
			"0": {ID: "0", TotalDistanceKm: 120, Current: &current},
		},
		Classifications: map[string]domain.Classification{
			"0": {Rank: 0.4, Direction: domain.DirectionAbove},
		},
		RefreshedAt: refreshedAt,
	}
	alerts := &tracker.AlertSnapshot{
		Matches: map[string][]domain.Properties{
			"0": {{"event": "Gale Warning"}, {"event": "Flood Watch"}},
		},
	}

	msgs := buildMessages(tracks, alerts)
	require.Len(t, msgs, 1)

	msg := msgs[0]
	assert.Equal(t, []byte("0"), msg.Key)
	assert.Contains(t, string(msg.Value), `"total_distance_km":120`)
	assert.Contains(t, string(msg.Value), `"direction":"above"`)
	assert.Contains(t, string(msg.Value), `"alert_count":2`)

	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "refreshed_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(refreshedAt.Format(time.RFC3339)), msg.Headers[0].Value)
}

func TestBuildMessages_NilAlerts(t *testing.T) {
	tracks := &tracker.TrackSnapshot{
		Histories: map[string]*domain.BalloonHistory{
			"3": {ID: "3", TotalDistanceKm: 50},
		},
		Classifications: map[string]domain.Classification{
			"3": {Rank: 0.5, Direction: domain.DirectionBelow},
		},
	}

	msgs := buildMessages(tracks, nil)
	require.Len(t, msgs, 1)
	assert.Contains(t, string(msgs[0].Value), `"alert_count":0`)
}

func TestBuildMessages_NilSnapshot(t *testing.T) {
	assert.Empty(t, buildMessages(nil, nil))
}
