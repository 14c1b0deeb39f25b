package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/api"
	"github.com/therapy-abstraction-server/internal/cache"
	"github.com/therapy-abstraction-server/internal/config"
	"github.com/therapy-abstraction-server/internal/database"
	"github.com/therapy-abstraction-server/internal/domain"
	"github.com/therapy-abstraction-server/internal/engine"
	"github.com/therapy-abstraction-server/internal/knowledge"
	"github.com/therapy-abstraction-server/internal/repository"
	"github.com/therapy-abstraction-server/internal/review"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host":                   cfg.Server.Host,
		"port":                   cfg.Server.Port,
		"engine_version":         engine.Version,
		"knowledge_base_version": knowledge.BaseVersion,
	}).Info("Starting therapy abstraction server")

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	// Core abstraction services
	kb := knowledge.NewBase()
	deps := api.Dependencies{
		Engine:    engine.New(logger, kb, configManager.GetAbstractionConfig()),
		Knowledge: kb,
	}

	// Optional run persistence
	if cfg.Database.Enabled {
		runner, err := database.NewMigrationRunner(databaseURL(cfg.Database), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		deps.DB = db
		deps.Runs = repository.NewAbstractionRepository(db.Pool, logger)
	}

	// Optional result cache
	if cfg.Cache.Enabled {
		resultCache, err := cache.New(logger, cfg.Cache)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create result cache")
		}
		defer resultCache.Close()
		deps.Cache = resultCache
	}

	// Reviewer feedback store
	reviews, err := newReviewStore(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open review store")
	}
	defer reviews.Close()
	deps.Reviews = reviews

	// Start server
	server := api.NewServer(logger, configManager, deps)
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}

// newReviewStore selects the review store backend from configuration.
func newReviewStore(cfg *domain.Config) (review.Store, error) {
	switch cfg.Review.Backend {
	case "postgres":
		return review.NewPostgresStoreFromURL(databaseURL(cfg.Database))
	default:
		return review.NewSQLiteStore(cfg.Review.SQLitePath)
	}
}

// databaseURL renders the configured database as a connection URL, the form
// both golang-migrate and lib/pq accept.
func databaseURL(db domain.DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(db.Username), url.QueryEscape(db.Password),
		db.Host, db.Port, db.Database, db.SSLMode,
	)
}
