// Package server exposes the quota pipeline over HTTP: a resolve middleware
// that attaches principal and class to each request, the caller-facing
// limits report, and the over-limit fault format.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quotagate/quotagate/internal/limits"
)

// Server is the quotagate HTTP server.
type Server struct {
	httpServer *http.Server
	svc        *limits.Service
	logger     *slog.Logger
	mux        *http.ServeMux
}

// New creates a new server around the given pipeline service.
func New(addr string, svc *limits.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /limits", s.Resolve(http.HandlerFunc(s.handleLimits)))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleLimits assembles the quota-status report for the resolved caller.
// Unlike the resolve middleware, it fails closed: with the store down there
// is no meaningful report to return.
func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	req := StateFrom(r.Context())
	if req == nil {
		req = &limits.Request{}
	}

	rows, err := s.svc.Status(r.Context(), req)
	if err != nil {
		s.logger.Error("assembling quota status", "error", err)
		http.Error(w, `{"error":"quota status unavailable"}`, http.StatusInternalServerError)
		return
	}

	writeLimitsReport(w, rows)
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("quotagate server listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// StartOnListener begins serving on the provided listener.
// Useful for tests that need to pick an ephemeral port.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.logger.Info("quotagate server listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
