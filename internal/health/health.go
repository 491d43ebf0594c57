// Package health serves the optional /healthz and /metrics endpoint of a running node.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger checks relay connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides the health and metrics endpoints.
// It runs in a background goroutine and can be gracefully shut down.
type Server struct {
	server   *http.Server
	listener net.Listener
	relay    Pinger
	logger   *zap.Logger
}

// Response represents the JSON response from the /healthz endpoint.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewServer creates a server for addr (host:port). Metrics are served from gatherer.
func NewServer(addr string, relay Pinger, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		relay:  relay,
		logger: logger,
	}

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return s
}

// Start binds the listening socket and serves in a background goroutine.
// Returns an error if the address cannot be bound (e.g., port already in use).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		s.logger.Debug("health server starting", zap.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server error", zap.Error(err))
		}
		s.logger.Debug("health server stopped")
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully shuts down the HTTP server.
// The provided context controls the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleHealthz reports relay reachability.
// Returns 200 OK if healthy, 503 Service Unavailable otherwise.
//
// Response format:
//   - Success: {"status": "healthy"}
//   - Failure: {"status": "unhealthy", "error": "connection failed"}
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := Response{Status: "healthy"}
	statusCode := http.StatusOK

	if err := s.relay.Ping(ctx); err != nil {
		response = Response{Status: "unhealthy", Error: err.Error()}
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to encode health response", zap.Error(err))
	}
}
