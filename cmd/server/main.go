package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/kccq-triage-server/internal/api"
	"github.com/kccq-triage-server/internal/config"
	"github.com/kccq-triage-server/internal/database"
	"github.com/kccq-triage-server/internal/domain"
	"github.com/kccq-triage-server/internal/questionbank"
	"github.com/kccq-triage-server/internal/repository"
	"github.com/kccq-triage-server/internal/service"
	"github.com/kccq-triage-server/pkg/llm"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup, err := newRecordStore(ctx, configManager, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize record store")
	}
	defer cleanup()

	cache, err := llm.NewCache(cfg.Cache, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize adaptation cache")
	}

	gateway := llm.NewGateway(llm.NewOpenAIClient(cfg.LLM), cfg.LLM, logger)

	bank := questionbank.New()
	scorer := service.NewScoringEngine(bank, logger)
	summarizer := service.NewSummaryGenerator(bank, gateway, cfg.LLM.MinSummaryLength, logger)
	adapter := service.NewQuestionAdapter(gateway, cache, logger)
	pipeline := service.NewPipeline(bank, scorer, summarizer, store, 0, logger)

	server := api.NewServer(cfg.Server, pipeline, bank, adapter, gateway, store, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting KCCQ triage server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

// newRecordStore selects the store backend and, for Postgres, applies the
// schema migrations before serving.
func newRecordStore(ctx context.Context, cm *config.Manager, cfg *domain.Config, logger *logrus.Logger) (domain.RecordStore, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		runner, err := database.NewMigrationRunner(cm.DatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := runner.Up(); err != nil {
			runner.Close()
			return nil, nil, err
		}
		runner.Close()

		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(db.Pool, logger), db.Close, nil
	default:
		store, err := repository.NewSQLiteStore(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}
	return logger
}
