// Package server implements the sldgen HTTP API.
//
// The API exposes the conversion pipeline over HTTP for the diagram
// frontend: generate a layout document from a dataset, list and fetch
// stored runs, and serve the symbol catalog. Routing uses chi; request
// bodies are validated with go-playground/validator; Prometheus metrics
// are exposed on /metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridsmith/sldgen/pkg/pipeline"
	"github.com/gridsmith/sldgen/pkg/sparql"
	"github.com/gridsmith/sldgen/pkg/store"
	"github.com/gridsmith/sldgen/pkg/symbols"
)

// Config holds server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Endpoint is the SPARQL endpoint base URL.
	Endpoint string

	// RequestTimeout bounds one API request end to end.
	RequestTimeout time.Duration
}

// Server is the HTTP API. Construct with New, start with ListenAndServe.
type Server struct {
	cfg      Config
	runner   *pipeline.Runner
	client   *sparql.Client
	store    store.Store
	symbols  *symbols.Library
	logger   *log.Logger
	validate *validator.Validate
	metrics  *metrics
	router   chi.Router
}

// New assembles the API from its collaborators. A nil store falls back
// to in-memory persistence and a nil library to the built-in catalog.
func New(cfg Config, runner *pipeline.Runner, st store.Store, lib *symbols.Library, logger *log.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	if lib == nil {
		lib = symbols.Default()
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		cfg:      cfg,
		runner:   runner,
		client:   sparql.NewClient(cfg.Endpoint, sparql.WithLogger(logger)),
		store:    st,
		symbols:  lib,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  newMetrics(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics",
		promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Route("/sld", func(r chi.Router) {
		r.Post("/generate-data", s.handleGenerate)
		r.Get("/layouts", s.handleListLayouts)
		r.Get("/layouts/{id}", s.handleGetLayout)
		r.Get("/symbols", s.handleListSymbols)
		r.Get("/symbols/{type}", s.handleGetSymbol)
	})

	return r
}

// logRequests emits one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}
