package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-indexer/internal/logging"
	"media-indexer/internal/scanner"
)

// Server exposes a running scan over HTTP: a liveness check, a JSON
// progress snapshot, and the Prometheus metrics endpoint. It exists for
// long scans over large libraries, where "is it still going?" otherwise
// means watching log lines.
type Server struct {
	scanner *scanner.Scanner
	started time.Time
	srv     *http.Server
}

// New creates a status server for s listening on port.
func New(s *scanner.Scanner, port int) *Server {
	server := &Server{
		scanner: s,
		started: time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", server.handleHealth).Methods("GET")
	r.HandleFunc("/progress", server.handleProgress).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server
}

// Start begins serving in a background goroutine. Listen errors other than
// a clean shutdown are logged, not fatal: the status endpoint is a
// convenience and must never take a scan down with it.
func (s *Server) Start() {
	go func() {
		logging.Info("Status endpoint listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn("Status endpoint error: %v", err)
		}
	}()
}

// Shutdown stops the listener, waiting briefly for in-flight requests.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logging.Warn("Status endpoint shutdown: %v", err)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, healthResponse{
		Status: "healthy",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

type progressResponse struct {
	scanner.Progress
	Uptime string `json:"uptime"`
}

func (s *Server) handleProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, progressResponse{
		Progress: s.scanner.Progress(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode status response: %v", err)
	}
}
