package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"smartbudget/internal/amqp"
	"smartbudget/internal/ingest"
	"smartbudget/internal/services"
)

// PipelineWorker executes pipeline runs requested over AMQP. One run
// at a time: the store is a single shared resource and the stages are
// sequential by design.
type PipelineWorker struct {
	pipeline *services.Pipeline
	sources  map[string]ingest.Source

	mu sync.Mutex
}

func NewPipelineWorker(pipeline *services.Pipeline, sources []ingest.Source) *PipelineWorker {
	bySystem := make(map[string]ingest.Source, len(sources))
	for _, src := range sources {
		bySystem[src.System()] = src
	}
	return &PipelineWorker{pipeline: pipeline, sources: bySystem}
}

// HandleRunMessage runs the pipeline for the requested source system.
func (w *PipelineWorker) HandleRunMessage(ctx context.Context) func(*amqp.PipelineRunMessage) error {
	return func(msg *amqp.PipelineRunMessage) error {
		source, ok := w.sources[msg.SourceSystem]
		if !ok {
			// Unknown source is a permanent failure; retrying won't help,
			// but the caller logs it and the message is requeued at most
			// by broker policy.
			return fmt.Errorf("no source registered for system %q", msg.SourceSystem)
		}

		w.mu.Lock()
		defer w.mu.Unlock()

		slog.InfoContext(ctx, "Running pipeline",
			"source_system", msg.SourceSystem,
			"requested_at", msg.RequestedAt)

		summary, err := w.pipeline.Run(ctx, source)
		if err != nil {
			return fmt.Errorf("pipeline run for %s: %w", msg.SourceSystem, err)
		}

		if summary.Invalid > 0 {
			slog.WarnContext(ctx, "Pipeline run had invalid rows",
				"source_system", msg.SourceSystem,
				"invalid", summary.Invalid)
		}

		return nil
	}
}
