// Package api exposes the abstraction engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/cache"
	"github.com/therapy-abstraction-server/internal/config"
	"github.com/therapy-abstraction-server/internal/database"
	"github.com/therapy-abstraction-server/internal/engine"
	"github.com/therapy-abstraction-server/internal/knowledge"
	"github.com/therapy-abstraction-server/internal/middleware"
	"github.com/therapy-abstraction-server/internal/repository"
	"github.com/therapy-abstraction-server/internal/review"
)

// Dependencies holds the services the HTTP layer delegates to. Engine and
// Knowledge are required; the rest are optional and the corresponding
// endpoints degrade or disappear when absent.
type Dependencies struct {
	Engine    *engine.Engine
	Knowledge *knowledge.Base
	Cache     *cache.ResultCache
	Runs      *repository.AbstractionRepository
	Reviews   review.Store
	DB        *database.DB
}

// Server represents the HTTP server
type Server struct {
	configManager *config.Manager
	log           *logrus.Logger
	deps          Dependencies
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, configManager *config.Manager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.RateLimit(cfg.RateLimit))

	server := &Server{
		configManager: configManager,
		log:           logger,
		deps:          deps,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Router exposes the underlying handler, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/abstractions", s.handleAbstract)
		v1.GET("/protocols", s.handleListProtocols)

		if s.deps.Runs != nil {
			v1.GET("/abstractions/:patient_id", s.handleGetLatestAbstraction)
			v1.GET("/abstractions/:patient_id/runs", s.handleListAbstractionRuns)
		}

		if s.deps.Reviews != nil {
			v1.POST("/reviews", s.handleSaveReview)
			v1.GET("/reviews", s.handleListReviews)
			v1.GET("/reviews/:patient_id/:line_number", s.handleGetReview)
		}
	}
}

// handleHealth reports process liveness and, when a database is wired,
// its reachability.
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{
		"status":                 "healthy",
		"timestamp":              time.Now().UTC(),
		"engine_version":         engine.Version,
		"knowledge_base_version": s.deps.Knowledge.Version(),
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.Health(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}

	c.JSON(status, body)
}
