// Package httpserver provides the HTTP admin surface for BloomGate.
//
// It serves read-only operational endpoints (health, filter inventory,
// snapshot inventory, build info) and the Prometheus metrics endpoint.
// All mutation goes through the text protocol.
package httpserver

import (
	"context"
	"net/http"
)

// Server represents the HTTP admin server.
type Server struct {
	httpServer *http.Server
}

// New creates a new HTTP server.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
