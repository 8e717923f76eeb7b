// Package api serves the tagspec HTTP surface: pattern authoring, rule
// collection editing, transaction upload and analysis.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/tagspec/internal/analyzer"
	"github.com/opensource-finance/tagspec/internal/domain"
	"github.com/opensource-finance/tagspec/internal/library"
	"github.com/opensource-finance/tagspec/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, eventBus domain.EventBus, store *library.Store, engine *rules.Engine, a *analyzer.Analyzer, version string) *Server {
	handler := NewHandler(repo, cache, eventBus, store, engine, a, version)
	router := chi.NewRouter()

	router.Use(CORSMiddleware())
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Pattern authoring
		r.Post("/compile/match", handler.CompileMatch)
		r.Post("/compile/extraction", handler.CompileExtraction)
		r.Post("/decompile/match", handler.DecompileMatch)
		r.Post("/decompile/extraction", handler.DecompileExtraction)
		r.Post("/describe", handler.Describe)

		// Rule collection
		r.Get("/libraries", handler.ListLibraries)
		r.Put("/libraries", handler.ReplaceLibraries)
		r.Post("/libraries/import", handler.ImportLibraries)
		r.Get("/libraries/export", handler.ExportLibraries)

		r.Post("/definitions", handler.CreateDefinition)
		r.Get("/definitions/{id}", handler.GetDefinition)
		r.Put("/definitions/{id}", handler.UpdateDefinition)
		r.Delete("/definitions/{id}", handler.DeleteDefinition)
		r.Get("/definitions/{id}/export", handler.ExportDefinition)
		r.Get("/definitions/{id}/form", handler.GetDefinitionForm)

		// Transactions and analysis
		r.Post("/transactions", handler.SaveRows)
		r.Get("/transactions", handler.ListRows)
		r.Get("/transactions/fields", handler.ListFields)
		r.Post("/transactions/publish", handler.PublishRows)
		r.Post("/analyze", handler.Analyze)
		r.Post("/preview", handler.Preview)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
