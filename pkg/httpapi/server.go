// Package httpapi exposes the user store over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soypete/userapi/pkg/config"
	"github.com/soypete/userapi/pkg/storage"
)

// Server represents the HTTP API server
type Server struct {
	config     config.ServerConfig
	debug      bool
	store      storage.UserStore
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates a new HTTP API server backed by store.
func NewServer(cfg *config.Config, store storage.UserStore) *Server {
	s := &Server{
		config: cfg.Server,
		debug:  cfg.Debug.Enabled,
		store:  store,
		mux:    http.NewServeMux(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: s.Handler(),
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/users", s.handleUsers)
	s.mux.HandleFunc("/api/users/", s.handleUsersWithID)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the mux wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.debug {
		h = logRequests(h)
	}
	h = countRequests(h)
	h = cors(s.config.CORSOrigin, h)
	return requestID(h)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	log.Printf("Starting HTTP server on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
