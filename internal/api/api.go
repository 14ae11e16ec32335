// Package api exposes upload, analysis and report retrieval over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/readiness-cli/internal/analyzer"
	"github.com/sells-group/readiness-cli/internal/ingest"
	"github.com/sells-group/readiness-cli/internal/store"
)

// Config tunes the HTTP surface.
type Config struct {
	CORSOrigins    []string
	RateLimit      float64 // requests per second; zero disables limiting
	RateBurst      int
	MaxUploadBytes int64
	MaxRows        int
	ReportTTL      time.Duration
	ListLimit      int
	DBDriver       string
}

func (c Config) withDefaults() Config {
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
	if c.MaxRows <= 0 {
		c.MaxRows = ingest.DefaultMaxRows
	}
	if c.ReportTTL <= 0 {
		c.ReportTTL = store.DefaultReportTTL
	}
	if c.ListLimit <= 0 {
		c.ListLimit = store.DefaultListLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	return c
}

// Server holds the handler dependencies.
type Server struct {
	store    store.Store
	analyzer *analyzer.Analyzer
	cfg      Config
	now      func() time.Time
}

// New creates a Server.
func New(st store.Store, a *analyzer.Analyzer, cfg Config) *Server {
	return &Server{
		store:    st,
		analyzer: a,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.cfg.RateLimit > 0 {
		r.Use(rateLimit(s.cfg.RateLimit, s.cfg.RateBurst))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/report/{reportID}", s.handleGetReport)
	r.Get("/reports", s.handleListReports)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
