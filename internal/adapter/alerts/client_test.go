package alerts

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydrift/balloon-track/internal/observability"
)

const hazardPayload = `{
	"type": "FeatureCollection",
	"features": [{
		"id": "hz-1",
		"geometry": {"type": "Polygon", "coordinates": [[[-10,-10],[10,-10],[10,10],[-10,10]]]},
		"properties": {"event": "Winter Storm Warning"}
	}]
}`

func testClient(proxyURL, directURL string) *Client {
	return &Client{
		proxyURL:   proxyURL,
		directURL:  directURL,
		httpClient: &http.Client{},
		timeout:    2 * time.Second,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    observability.NewMetricsForTesting(),
	}
}

func TestFetchHazards_ProxyFirst(t *testing.T) {
	var directHits int
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(hazardPayload))
	}))
	defer proxy.Close()
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		directHits++
		w.Write([]byte(hazardPayload))
	}))
	defer direct.Close()

	hazards, err := testClient(proxy.URL, direct.URL).FetchHazards(context.Background())
	require.NoError(t, err)
	require.Len(t, hazards, 1)
	assert.Equal(t, "Winter Storm Warning", hazards[0].Properties["event"])
	assert.Zero(t, directHits, "direct URL should not be hit when the proxy succeeds")
}

func TestFetchHazards_FallsBackToDirect(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer proxy.Close()
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(hazardPayload))
	}))
	defer direct.Close()

	hazards, err := testClient(proxy.URL, direct.URL).FetchHazards(context.Background())
	require.NoError(t, err)
	assert.Len(t, hazards, 1)
}

func TestFetchHazards_BothFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	_, err := testClient(failing.URL, failing.URL).FetchHazards(context.Background())
	assert.Error(t, err)
}

func TestFetchHazards_NoProxyConfigured(t *testing.T) {
	var hits int
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write([]byte(hazardPayload))
	}))
	defer direct.Close()

	hazards, err := testClient("", direct.URL).FetchHazards(context.Background())
	require.NoError(t, err)
	assert.Len(t, hazards, 1)
	assert.Equal(t, 1, hits)
}

func TestFetchHazards_MalformedProxyBodyFallsBack(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer proxy.Close()
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(hazardPayload))
	}))
	defer direct.Close()

	hazards, err := testClient(proxy.URL, direct.URL).FetchHazards(context.Background())
	require.NoError(t, err)
	assert.Len(t, hazards, 1)
}
