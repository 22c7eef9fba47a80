package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/dataforge-io/dataforge-engine/pkg/config"
	"github.com/dataforge-io/dataforge-engine/pkg/database"
	"github.com/dataforge-io/dataforge-engine/pkg/grid"
	"github.com/dataforge-io/dataforge-engine/pkg/handlers"
	"github.com/dataforge-io/dataforge-engine/pkg/llm"
	"github.com/dataforge-io/dataforge-engine/pkg/middleware"
	"github.com/dataforge-io/dataforge-engine/pkg/repositories"
	"github.com/dataforge-io/dataforge-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load("config.yaml", Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database.Database),
		zap.String("inference_endpoint", cfg.Inference.Endpoint),
		zap.String("inference_model", cfg.Inference.Model))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	datasetRepo := repositories.NewDatasetRepository(db)
	columnRepo := repositories.NewColumnRepository(db)
	rowRepo := repositories.NewRowRepository(db)

	registry := grid.NewRegistry(cfg.Grid.PageCapacity)

	inferenceClient, err := llm.NewClient(&llm.Config{
		Endpoint:    cfg.Inference.Endpoint,
		Model:       cfg.Inference.Model,
		APIKey:      cfg.Inference.APIKey,
		Temperature: cfg.Inference.Temperature,
		MaxTokens:   cfg.Inference.MaxTokens,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create inference client", zap.Error(err))
	}

	generator := services.NewRowGenerator(inferenceClient, rowRepo, services.GeneratorConfig{
		Temperature:            cfg.Inference.Temperature,
		MaxTokens:              cfg.Inference.MaxTokens,
		FrequencyResetInterval: cfg.Generation.FrequencyResetInterval,
	}, logger)

	runController := services.NewRunController(generator, columnRepo, registry, cfg.Generation.MaxRowsPerRun, logger)
	runController.Start()
	defer runController.Stop()

	datasetService := services.NewDatasetService(datasetRepo, registry, logger)
	columnService := services.NewColumnService(columnRepo, registry, logger)
	rowService := services.NewRowService(rowRepo, registry, logger)
	exportService := services.NewExportService(datasetRepo, columnRepo, rowRepo, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDatasetsHandler(datasetService, exportService, logger).RegisterRoutes(mux)
	handlers.NewColumnsHandler(columnService, logger).RegisterRoutes(mux)
	handlers.NewRowsHandler(rowService, cfg.Grid.DefaultPageSize, logger).RegisterRoutes(mux)
	handlers.NewGenerationHandler(runController, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting dataforge-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
