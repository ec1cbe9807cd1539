// Package server provides the HTTP preview server for the capture session.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ayusman/handsign/internal/app"
	"github.com/ayusman/handsign/internal/log"
	"github.com/ayusman/handsign/internal/server/api"
	"github.com/ayusman/handsign/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
	Store     *store.Store
	Logger    *slog.Logger
}

// Server represents the HTTP server for the preview UI.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *slog.Logger
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: log.Component(config.Logger, "server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		sessionHandler := api.NewSessionHandler(s.config.App, s.config.Logger)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)

		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App.Preview()))
		s.mux.Handle("/api/events", NewEventsHandler(s.config.App, s.config.Logger))
	}

	if s.config.Store != nil {
		journalHandler := api.NewJournalHandler(s.config.Store)
		s.mux.Handle("/api/sessions", journalHandler)
		s.mux.Handle("/api/sessions/", journalHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.App != nil {
		response["session"] = s.config.App.Status().State
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address. It returns nil
// after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("listening", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
