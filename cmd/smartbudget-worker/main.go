package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"smartbudget/internal/amqp"
	"smartbudget/internal/config"
	"smartbudget/internal/ingest"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
	gsheet "smartbudget/internal/sheets/google"
	"smartbudget/internal/storage"
	"smartbudget/internal/worker"
)

// smartbudget-worker consumes pipeline run requests from AMQP and
// executes them against the embedded store.
func main() {
	_ = godotenv.Load()

	logger := log.Setup("smartbudget-worker", log.LevelFromEnv())

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sources []ingest.Source
	if cfg.GoogleSpreadsheetID != "" {
		sheetSource, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets source", "error", err)
			os.Exit(1)
		}
		sources = append(sources, sheetSource)
		logger.Info("Google Sheets source registered", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}
	if cfg.CSVPath != "" {
		sources = append(sources, ingest.NewCSVSource(cfg.CSVPath))
		logger.Info("CSV source registered", "path", cfg.CSVPath)
	}
	if len(sources) == 0 {
		logger.Error("No ingestion sources configured")
		os.Exit(1)
	}
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	pipelineWorker := worker.NewPipelineWorker(services.NewPipeline(repo), sources)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumePipelineRuns(gctx, pipelineWorker.HandleRunMessage(gctx))
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
