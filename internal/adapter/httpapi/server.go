// Package httpapi exposes the tracking core's results to presentation
// collaborators, alongside health, readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skydrift/balloon-track/internal/domain"
	"github.com/skydrift/balloon-track/internal/tracker"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server serves the read-only results API.
type Server struct {
	httpServer *http.Server
	store      *tracker.Store
	logger     *slog.Logger
}

// NewServer creates the HTTP server. Routes:
//
//	GET /healthz           liveness
//	GET /readyz            readiness (first positional refresh completed)
//	GET /metrics           Prometheus metrics
//	GET /api/balloons      histories, classifications, population stats
//	GET /api/paths?hours=N look-back polylines split at the antimeridian
//	GET /api/alerts        hazard matches per balloon
func NewServer(addr string, store *tracker.Store, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:  store,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/balloons", s.handleBalloons)
	mux.HandleFunc("GET /api/paths", s.handlePaths)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// balloonView is the per-balloon payload of /api/balloons.
type balloonView struct {
	ID              string            `json:"id"`
	TotalDistanceKm float64           `json:"total_distance_km"`
	Rank            float64           `json:"rank"`
	Direction       domain.Direction  `json:"direction"`
	Current         *domain.Position  `json:"current,omitempty"`
	Positions       []domain.Position `json:"positions"`
}

type balloonsResponse struct {
	Balloons       map[string]balloonView `json:"balloons"`
	Stats          domain.PopulationStats `json:"stats"`
	AnyFetchFailed bool                   `json:"any_fetch_failed"`
	RefreshedAt    time.Time              `json:"refreshed_at"`
}

func (s *Server) handleBalloons(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Tracks()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no positional data yet"})
		return
	}

	views := make(map[string]balloonView, len(snap.Histories))
	for id, hist := range snap.Histories {
		c := snap.Classifications[id]
		views[id] = balloonView{
			ID:              hist.ID,
			TotalDistanceKm: hist.TotalDistanceKm,
			Rank:            c.Rank,
			Direction:       c.Direction,
			Current:         hist.Current,
			Positions:       hist.Positions,
		}
	}

	writeJSON(w, http.StatusOK, balloonsResponse{
		Balloons:       views,
		Stats:          snap.Stats,
		AnyFetchFailed: snap.AnyFetchFailed,
		RefreshedAt:    snap.RefreshedAt,
	})
}

// pathPoint keeps the polyline payload small: just what a renderer needs.
type pathPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type pathsResponse struct {
	Hours       int                      `json:"hours"`
	Paths       map[string][][]pathPoint `json:"paths"`
	RefreshedAt time.Time                `json:"refreshed_at"`
}

func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Tracks()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no positional data yet"})
		return
	}

	hours := domain.SnapshotHours
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hours must be an integer"})
			return
		}
		hours = n
	}
	if hours < 1 {
		hours = 1
	} else if hours > domain.SnapshotHours {
		hours = domain.SnapshotHours
	}

	paths := make(map[string][][]pathPoint)
	for id, segments := range snap.Paths(hours) {
		out := make([][]pathPoint, len(segments))
		for i, seg := range segments {
			pts := make([]pathPoint, len(seg))
			for j, pos := range seg {
				pts[j] = pathPoint{Lat: pos.Lat, Lon: pos.Lon}
			}
			out[i] = pts
		}
		paths[id] = out
	}

	writeJSON(w, http.StatusOK, pathsResponse{
		Hours:       hours,
		Paths:       paths,
		RefreshedAt: snap.RefreshedAt,
	})
}

type alertsResponse struct {
	Matches     map[string][]domain.Properties `json:"matches"`
	HazardCount int                            `json:"hazard_count"`
	RefreshedAt *time.Time                     `json:"refreshed_at,omitempty"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Alerts()
	if snap == nil {
		// Alerts fail open: before the first alert refresh the answer is
		// simply "no matches".
		writeJSON(w, http.StatusOK, alertsResponse{Matches: map[string][]domain.Properties{}})
		return
	}

	writeJSON(w, http.StatusOK, alertsResponse{
		Matches:     snap.Matches,
		HazardCount: snap.HazardCount,
		RefreshedAt: &snap.RefreshedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
