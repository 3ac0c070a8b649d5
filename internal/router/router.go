// Package router binds the minify daemon's HTTP handlers to a chi router
// and owns the listening http.Server. Its routes are GET /healthz,
// POST /v1/minify/{format} (one route serving every format), GET
// /v1/history and, when metrics are enabled, GET /metrics; there is no
// model-to-provider directory to resolve.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/minifyco/minify/internal/metrics"
	"github.com/minifyco/minify/internal/server"
	"github.com/minifyco/minify/internal/tracing"
)

// Server is the HTTP server for the minify daemon. It binds the chi
// router to the configured address and provides graceful shutdown.
type Server struct {
	router  chi.Router
	handler *server.Handler
	addr    string
	httpSrv *http.Server
}

// NewServer creates a Server wired to handler, listening on addr. Zero
// timeouts leave the corresponding http.Server field at its default.
// When tracingEnabled, the OpenTelemetry HTTP middleware extracts incoming
// trace context and starts a server span for every request. When collector is non-nil,
// its Prometheus handler is mounted at /metrics.
func NewServer(handler *server.Handler, addr string, readTimeout, writeTimeout, idleTimeout time.Duration, tracingEnabled bool, collector *metrics.Collector) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if tracingEnabled {
		r.Use(tracing.HTTPMiddleware)
	}

	r.Get("/healthz", handler.HandleHealthz)

	r.Group(func(gr chi.Router) {
		gr.Use(handler.RequireAuth)
		gr.Post("/v1/minify/{format}", handler.HandleMinify)
		gr.Get("/v1/history", handler.HandleHistory)
	})

	if collector != nil {
		r.Get("/metrics", metrics.PrometheusHandler(collector))
	}

	srv := &Server{
		router:  r,
		handler: handler,
		addr:    addr,
	}

	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return srv
}

// Router returns the underlying chi.Router, useful for testing or
// additional route mounting by the caller.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start begins listening for HTTP connections on the configured address.
// It blocks until the server is shut down or encounters a fatal error.
func (s *Server) Start() error {
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("router: %w", err)
	}
	return nil
}

// StartTLS begins listening for HTTPS connections using the given
// certificate and key files. It blocks until the server is shut down or
// encounters a fatal error.
func (s *Server) StartTLS(certFile, keyFile string) error {
	if err := s.httpSrv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("router (TLS): %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
