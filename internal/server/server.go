// Package server exposes the coordinator over HTTP: a status page plus JSON
// endpoints to start a crawl, start a scan, stop, and poll progress.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"formprobe/internal/core"

	"github.com/rs/zerolog/log"
)

//go:embed index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

// Controller is the part of the coordinator the HTTP layer drives.
type Controller interface {
	StartCrawl(target string) error
	StartScan() error
	Stop() bool
	Status() core.Status
	Shutdown(ctx context.Context) error
}

// Server serves the status page and the control endpoints.
type Server struct {
	ctrl       Controller
	defaultURL string
	mux        *http.ServeMux
}

// New creates a Server. defaultURL pre-fills the target field on the status page.
func New(ctrl Controller, defaultURL string) *Server {
	s := &Server{ctrl: ctrl, defaultURL: defaultURL, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /start-crawl", s.handleStartCrawl)
	s.mux.HandleFunc("POST /start-scan", s.handleStartScan)
	s.mux.HandleFunc("POST /stop", s.handleStop)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	if r.URL.Path != "/status" {
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("HTTP request")
	}
}

// ListenAndServe serves on addr until ctx is canceled, then stops the running
// phase, waits for it and shuts the HTTP server down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Status interface listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.ctrl.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Active phase did not stop in time")
	}
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ DefaultURL string }{s.defaultURL}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("Failed to render index page")
	}
}

func (s *Server) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	if err := s.ctrl.StartCrawl(r.FormValue("url")); err != nil {
		writeError(w, http.StatusBadRequest, message(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Crawl started."})
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StartScan(); err != nil {
		writeError(w, http.StatusBadRequest, message(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scan started."})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.ctrl.Stop() {
		writeError(w, http.StatusBadRequest, "Nothing is running.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Stop requested."})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

// message maps coordinator rejections to the user-facing wording.
func message(err error) string {
	switch {
	case errors.Is(err, core.ErrBusy):
		return "A crawl or scan is already in progress."
	case errors.Is(err, core.ErrNoEndpoints):
		return "No endpoints found. Please run a crawl first."
	case errors.Is(err, core.ErrURLRequired):
		return "URL is required."
	case errors.Is(err, core.ErrInvalidURL):
		return "URL must be an absolute http(s) URL."
	default:
		return err.Error()
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
