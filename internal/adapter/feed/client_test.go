package feed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/observability"
)

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{},
		limiter:        rate.NewLimiter(rate.Inf, 1),
		currentTimeout: 5 * time.Second,
		historyTimeout: 5 * time.Second,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:        observability.NewMetricsForTesting(),
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/07.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`[[10.5, -20.25, 15.0], [44.0, 110.0, 18.2]]`))
	}))
	defer srv.Close()

	tuples, ok := testClient(srv.URL).Fetch(context.Background(), 7)
	require.True(t, ok)
	require.Len(t, tuples, 2)
	assert.Equal(t, domain.RawTuple{10.5, -20.25, 15.0}, tuples[0])
	assert.Equal(t, domain.RawTuple{44.0, 110.0, 18.2}, tuples[1])
}

func TestFetch_PreservesIndicesOfInvalidElements(t *testing.T) {
	// Element 1 is null and element 2 is garbage; both must keep their slot
	// so later elements keep their identity-bearing index.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[[1, 2, 3], null, "corrupted", [4, 5, 6]]`))
	}))
	defer srv.Close()

	tuples, ok := testClient(srv.URL).Fetch(context.Background(), 3)
	require.True(t, ok)
	require.Len(t, tuples, 4)
	assert.Equal(t, domain.RawTuple{1, 2, 3}, tuples[0])
	assert.Nil(t, tuples[1])
	assert.Nil(t, tuples[2])
	assert.Equal(t, domain.RawTuple{4, 5, 6}, tuples[3])
}

func TestFetch_Non2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tuples, ok := testClient(srv.URL).Fetch(context.Background(), 12)
	assert.False(t, ok)
	assert.Nil(t, tuples)
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"not": "an array"}`))
	}))
	defer srv.Close()

	_, ok := testClient(srv.URL).Fetch(context.Background(), 0)
	assert.False(t, ok)
}

func TestFetch_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := testClient(srv.URL)
	c.historyTimeout = 50 * time.Millisecond

	start := time.Now()
	_, ok := c.Fetch(context.Background(), 5)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetch_CurrentUsesLongerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Write([]byte(`[[1, 2, 3]]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.currentTimeout = 5 * time.Second
	c.historyTimeout = 20 * time.Millisecond

	_, ok := c.Fetch(context.Background(), 0)
	assert.True(t, ok, "current snapshot should get the longer timeout")

	_, ok = c.Fetch(context.Background(), 1)
	assert.False(t, ok, "historical snapshot should time out")
}

func TestFetch_ServerUnreachable(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	_, ok := c.Fetch(context.Background(), 2)
	assert.False(t, ok)
}
