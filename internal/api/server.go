// Package api exposes the HTTP surface of the risk engine.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates the API server around a fully wired handler.
func NewServer(cfg domain.ServerConfig, handler *Handler) *Server {
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/v1", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Scoring
		r.Post("/check", handler.Check)
		r.Post("/feedback", handler.Feedback)

		// Retrieval
		r.Get("/evaluations/{id}", handler.GetEvaluation)
		r.Get("/transactions/{id}", handler.GetTransaction)

		// Rule catalog and tenant rules
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{name}", handler.GetRule)
		r.Post("/rules", handler.CreateCustomRule)
		r.Post("/rules/reload", handler.ReloadCustomRules)

		// Vertical policies
		r.Get("/policies", handler.ListPolicies)
		r.Put("/policies/{vertical}", handler.UpdatePolicy)
		r.Post("/policies/reload", handler.ReloadPolicies)

		// Consortium admin
		r.Get("/consortium/stats", handler.ConsortiumStats)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
