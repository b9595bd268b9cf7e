package server

import (
	"log/slog"
	"net/http"

	"github.com/caretrack/rehabd/internal/ingest"
	"github.com/caretrack/rehabd/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     *storage.DB
	ingest *ingest.Provider
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, provider *ingest.Provider, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		ingest: provider,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Write endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/ingest", s.handleIngest)
		r.Put("/api/v1/metrics/types", s.handleSetMetricAllowed)
	})

	// Read endpoints (no auth — tsnet handles access)
	s.router.Get("/api/v1/series", s.handleSeries)
	s.router.Get("/api/v1/timeline", s.handleTimeline)
	s.router.Get("/api/v1/measurements/latest", s.handleLatestMeasurements)
	s.router.Get("/api/v1/metrics/types", s.handleMetricTypes)
	s.router.Get("/api/v1/ingest/logs", s.handleIngestLogs)
}
