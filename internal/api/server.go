// Package api exposes the anonymiser over HTTP for callers that hold a
// report in hand rather than a folder on the server's disk. Each request
// processes exactly one document, synchronously.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rgoodwin/reportanon/internal/config"
	"github.com/rgoodwin/reportanon/internal/mask"
	"github.com/rgoodwin/reportanon/internal/scan"
)

// Server is the HTTP API server for reportanon.
type Server struct {
	router  chi.Router
	masker  *mask.Masker
	scanner *scan.Scanner
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(m *mask.Masker, log *slog.Logger, cfg config.Config) *Server {
	scanner := scan.NewScanner(m)
	scanner.PDFFallback = cfg.PDFFallbackPdftotext

	s := &Server{
		masker:  m,
		scanner: scanner,
		log:     log,
		cfg:     cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Processing endpoints; authenticated when a key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/anonymise", s.handleAnonymise)
		r.Post("/api/scan", s.handleScan)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
