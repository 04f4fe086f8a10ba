package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"smartbudget/internal/amqp"
	"smartbudget/internal/config"
	"smartbudget/internal/core"
	"smartbudget/internal/ingest"
	"smartbudget/internal/log"
	"smartbudget/internal/services"
	gsheet "smartbudget/internal/sheets/google"
	"smartbudget/internal/storage"
)

// smartbudget-etl runs one full pipeline pass: stage raw rows from the
// configured source, transform into canonical expenses, score, and
// regenerate recommendations. Optionally notifies the worker queue so
// downstream consumers know a run completed.
func main() {
	_ = godotenv.Load()

	logger := log.Setup("smartbudget-etl", log.LevelFromEnv())

	notify := flag.Bool("notify", false, "publish a pipeline run notification to AMQP after the run")
	csvPath := flag.String("csv", "", "ingest from this CSV file instead of the configured source")
	flag.Parse()

	cfg := config.Load()
	if *csvPath != "" {
		cfg.SourceSystem = core.SourceCSV
		cfg.CSVPath = *csvPath
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var source ingest.Source
	switch cfg.SourceSystem {
	case core.SourceCSV:
		source = ingest.NewCSVSource(cfg.CSVPath)
	default:
		source, err = gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets source", "error", err)
			os.Exit(1)
		}
	}

	pipeline := services.NewPipeline(repo)
	summary, err := pipeline.Run(ctx, source)
	if err != nil {
		logger.Error("Pipeline run failed", "error", err, "source_system", source.System())
		os.Exit(1)
	}

	logger.Info("Pipeline run finished",
		"source_system", summary.SourceSystem,
		"staged", summary.Staged,
		"stored", summary.Stored,
		"invalid", summary.Invalid,
		"recommendations", summary.Recommendations)

	if *notify {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		if err := client.PublishPipelineRun(ctx, source.System()); err != nil {
			logger.Error("Failed to publish run notification", "error", err)
			os.Exit(1)
		}
	}
}
