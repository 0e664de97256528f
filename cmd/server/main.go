package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/api"
	"github.com/clinical-reasoning-server/internal/audit"
	"github.com/clinical-reasoning-server/internal/config"
	"github.com/clinical-reasoning-server/internal/database"
	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
	"github.com/clinical-reasoning-server/internal/repository"
	"github.com/clinical-reasoning-server/internal/service"
	"github.com/clinical-reasoning-server/pkg/reasoning"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration; malformed config is fatal at startup
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting clinical reasoning server")

	// Knowledge tables are loaded once and read-only for the process
	// lifetime
	tables, err := knowledge.NewTables(&cfg.Knowledge, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load knowledge tables")
	}

	generator, err := reasoning.NewGenerator(cfg, tables, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create reasoning backend")
	}

	flagStore, err := audit.NewStore(&cfg.Audit)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open audit store")
	}
	defer flagStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Note persistence is optional; without a reachable database the
	// server still serves the pipeline and hands notes to the caller.
	var noteRepo *repository.NoteRepository
	if db, err := database.NewConnection(ctx, &cfg.Database, logger); err != nil {
		logger.WithError(err).Warn("Note repository unavailable, continuing without persistence")
	} else {
		defer db.Close()
		if runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger); err != nil {
			logger.WithError(err).Warn("Failed to create migration runner")
		} else {
			if err := runner.Up(); err != nil {
				logger.WithError(err).Warn("Failed to run migrations")
			}
			runner.Close()
		}
		noteRepo = repository.NewNoteRepository(db.Pool, logger)
	}

	pipeline := service.NewPipelineService(tables, generator, &cfg.Pipeline, flagStore, logger)
	toolRouter := service.NewRouterService(tables, logger)

	var notes domain.NoteRepository
	if noteRepo != nil {
		notes = noteRepo
	}
	server := api.NewServer(configManager, pipeline, toolRouter, flagStore, notes, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
