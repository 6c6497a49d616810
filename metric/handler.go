package metric

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agubler/store/errors"
)

// Handler returns an HTTP handler serving the registry's metrics in
// Prometheus exposition format, for callers that mount it on an existing
// mux
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Server is a standalone HTTP server exposing a Registry, for applications
// that embed stores but have no metrics endpoint of their own
type Server struct {
	addr     string
	path     string
	registry *Registry

	mu     sync.Mutex // protects server field
	server *http.Server
}

// NewServer creates a metrics server for the registry. An empty path
// defaults to /metrics.
func NewServer(addr, path string, registry *Registry) (*Server, error) {
	if registry == nil {
		return nil, errors.WrapInvalid(errors.New("registry cannot be nil"), "Server", "NewServer", "validate configuration")
	}
	if addr == "" {
		addr = ":9090"
	}
	if path == "" {
		path = "/metrics"
	}
	return &Server{addr: addr, path: path, registry: registry}, nil
}

// Start runs the server, blocking until Stop is called or the listener
// fails
func (s *Server) Start() error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return errors.WrapInvalid(
			fmt.Errorf("server already running on %s", s.addr),
			"Server", "Start", "start metrics server")
	}

	mux := http.NewServeMux()
	mux.Handle(s.path, s.registry.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}
	server := s.server
	s.mu.Unlock()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("serve metrics on %s", s.addr))
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	if err := server.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "shut down metrics server")
	}
	return nil
}
