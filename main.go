package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"sentiment-api/internal/config"
	"sentiment-api/internal/inference"
	"sentiment-api/internal/repository"
	"sentiment-api/internal/server"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Model runtime adapter, constructed once and shared across requests.
	runtime := inference.NewRuntimeClient(cfg.ModelRuntime.URL,
		time.Duration(cfg.ModelRuntime.RequestTimeout)*time.Second)
	adapter := inference.NewAdapter(runtime, cfg.ModelRuntime.ModelID,
		cfg.Analysis.MultiLabelThreshold, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Startup probe. A missing model is not fatal: the API keeps serving
	// and reports degraded health until the runtime recovers.
	probeCtx, probeCancel := context.WithTimeout(ctx, 10*time.Second)
	if adapter.Probe(probeCtx) {
		logger.Info("Sentiment model loaded", zap.String("model_id", cfg.ModelRuntime.ModelID))
	} else {
		logger.Warn("Starting without a loaded sentiment model",
			zap.String("runtime_url", cfg.ModelRuntime.URL))
	}
	probeCancel()

	srv := server.NewServer(db, cfg, adapter, logger, log)
	srv.Run(ctx, cfg.Server.Port)

	logger.Info("Application stopped.")
}
