// Package server wires the gin router, middleware and handlers into one
// HTTP server with a graceful shutdown path.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pricewatch/catalog-aggregator/internal/adapter"
	"github.com/pricewatch/catalog-aggregator/internal/api/executor"
	"github.com/pricewatch/catalog-aggregator/internal/api/middleware"
	"github.com/pricewatch/catalog-aggregator/internal/api/rest"
	"github.com/pricewatch/catalog-aggregator/internal/changes"
	"github.com/pricewatch/catalog-aggregator/internal/feed"
	"github.com/pricewatch/catalog-aggregator/internal/logger"
	"github.com/pricewatch/catalog-aggregator/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug          bool
	Host           string
	Port           int
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
	Auth           middleware.AuthConfig
	StaleThreshold time.Duration
	Feed           feed.Config
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	store      store.Store
	health     executor.HealthChecker
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, st store.Store, health executor.HealthChecker) *Server {
	return &Server{
		config: cfg,
		store:  st,
		health: health,
	}
}

// Start initializes and starts the HTTP server. SSE subscribers hold their
// connection open, so the write timeout must stay disabled for streaming to
// work; per-request deadlines come from the client side.
func (s *Server) Start() error {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	exec := executor.NewExecutor(s.store, changes.NewQuery(s.store), s.health)
	feedPublisher := feed.NewPublisher(changes.NewQuery(s.store), adapter.NewClock(), s.config.Feed)
	restHandler := rest.NewHandler(exec, feedPublisher, s.config.StaleThreshold)
	rest.SetupRoutes(router, restHandler, s.config.Auth)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: s.config.ReadTimeout,
		IdleTimeout: s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
