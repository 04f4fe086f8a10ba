package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"smartbudget/internal/core"
	"smartbudget/internal/ingest"
	"smartbudget/internal/recommend"
	"smartbudget/internal/resolver"
	"smartbudget/internal/scoring"
	"smartbudget/internal/storage"
	"smartbudget/internal/taxonomy"
)

// Pipeline runs the batch stages in order: stage raw rows, transform
// into canonical expenses, score, recommend. Single-threaded by
// design; each stage completes before the next begins. Safe to re-run:
// every write is an idempotent upsert keyed by a deterministic id.
//
// Taxonomy lifecycle operations (merge, split) must not run while a
// pipeline pass is in flight; callers serialize the two phases.
type Pipeline struct {
	store     *storage.Repository
	resolver  *resolver.Resolver
	taxonomy  *taxonomy.Taxonomy
	engine    *scoring.Engine
	generator *recommend.Generator
}

func NewPipeline(store *storage.Repository) *Pipeline {
	engine := scoring.New(store)
	return &Pipeline{
		store:     store,
		resolver:  resolver.New(store),
		taxonomy:  taxonomy.New(store),
		engine:    engine,
		generator: recommend.New(store, engine),
	}
}

// NewPipelineAt pins "now" across scoring and recommendation, for
// deterministic batch replays and tests.
func NewPipelineAt(store *storage.Repository, now func() time.Time) *Pipeline {
	engine := scoring.NewAt(store, now)
	return &Pipeline{
		store:     store,
		resolver:  resolver.New(store),
		taxonomy:  taxonomy.New(store),
		engine:    engine,
		generator: recommend.NewAt(store, engine, now),
	}
}

// RunSummary reports what one pipeline run did. Row errors are data,
// carried here rather than raised.
type RunSummary struct {
	SourceSystem    string
	Staged          int
	Stored          int
	Invalid         int
	Uncategorized   int
	Scored          int
	Recommendations int
	RowErrors       []ingest.RowError
}

// Run executes the full pipeline against one source.
func (p *Pipeline) Run(ctx context.Context, source ingest.Source) (*RunSummary, error) {
	rows, err := source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch rows from %s: %w", source.System(), err)
	}

	if err := p.store.ReplaceRawRows(ctx, source.System(), rows); err != nil {
		return nil, fmt.Errorf("stage rows: %w", err)
	}

	summary, err := p.Transform(ctx, source.System())
	if err != nil {
		return nil, err
	}
	summary.Staged = len(rows)

	if err := p.ScoreAndRecommend(ctx, summary); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Pipeline run complete",
		"source_system", summary.SourceSystem,
		"staged", summary.Staged,
		"stored", summary.Stored,
		"invalid", summary.Invalid,
		"uncategorized", summary.Uncategorized,
		"scored", summary.Scored,
		"recommendations", summary.Recommendations)

	return summary, nil
}

// Transform validates the staged rows for the source system and loads
// the valid ones into the canonical expense table, refreshing category
// resolution on every pass. Invalid rows are collected, not fatal.
func (p *Pipeline) Transform(ctx context.Context, sourceSystem string) (*RunSummary, error) {
	rawRows, err := p.store.ListRawRows(ctx, sourceSystem)
	if err != nil {
		return nil, fmt.Errorf("read staged rows: %w", err)
	}

	summary := &RunSummary{SourceSystem: sourceSystem}
	for _, raw := range rawRows {
		res := ingest.ValidateRow(raw)
		if !res.Valid() {
			summary.Invalid++
			summary.RowErrors = append(summary.RowErrors, *res.Err)
			slog.WarnContext(ctx, "Skipping invalid row",
				"source_system", sourceSystem,
				"row_id", res.Err.RowID,
				"reason", res.Err.Reason)
			continue
		}

		record := *res.Record
		if record.Price == nil {
			summary.Invalid++
			rowErr := ingest.RowError{RowID: raw.RowID, Reason: "missing price", Raw: raw}
			summary.RowErrors = append(summary.RowErrors, rowErr)
			slog.WarnContext(ctx, "Skipping row without price",
				"source_system", sourceSystem,
				"row_id", raw.RowID)
			continue
		}

		expense, err := p.buildExpense(ctx, sourceSystem, raw, record)
		if err != nil {
			return nil, err
		}
		if expense.CategoryID == nil {
			summary.Uncategorized++
		}

		if err := p.store.UpsertExpense(ctx, *expense); err != nil {
			return nil, fmt.Errorf("load expense: %w", err)
		}
		if err := p.taxonomy.AssignDefaultLabels(ctx, *expense); err != nil {
			return nil, fmt.Errorf("assign labels: %w", err)
		}
		summary.Stored++
	}

	return summary, nil
}

func (p *Pipeline) buildExpense(ctx context.Context, sourceSystem string, raw core.RawRow, record ingest.Record) (*core.Expense, error) {
	categoryID, err := p.resolver.Resolve(ctx, sourceSystem, record.Category, raw.IngestedAt)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}

	// Amount is quantity times unit price when the source carries
	// unit pricing, otherwise the price stands in as the amount.
	amount := *record.Price
	if record.Quantity != nil {
		amount = *record.Quantity * *record.Price
	}

	productName := record.Item
	if productName == "" {
		productName = record.Note
	}

	var paymentModeID *int64
	if record.PaymentMode != "" {
		pm, err := p.store.GetPaymentModeByName(ctx, record.PaymentMode)
		if err != nil {
			return nil, fmt.Errorf("resolve payment mode: %w", err)
		}
		if pm != nil {
			paymentModeID = &pm.ID
		}
	}

	var notes *string
	if record.Note != "" {
		notes = &record.Note
	}

	return &core.Expense{
		ID:            core.ExpenseID(sourceSystem, raw.RowID),
		OccurredAt:    record.Date,
		ProductName:   productName,
		Quantity:      record.Quantity,
		UnitPrice:     record.Price,
		Amount:        amount,
		CategoryID:    categoryID,
		PaymentModeID: paymentModeID,
		Notes:         notes,
		SourceSystem:  sourceSystem,
		SourceRowID:   raw.RowID,
	}, nil
}

// ScoreAndRecommend recomputes the scored view and regenerates the
// recommendation set. With nothing to normalize against, it reports
// zero candidates instead of propagating a division fault.
func (p *Pipeline) ScoreAndRecommend(ctx context.Context, summary *RunSummary) error {
	view, err := p.engine.View(ctx)
	if err != nil {
		if errors.Is(err, core.ErrNoScores) {
			slog.InfoContext(ctx, "No scored expenses; zero recommendation candidates")
			return nil
		}
		return fmt.Errorf("compute scored view: %w", err)
	}
	summary.Scored = len(view)

	count, err := p.generator.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate recommendations: %w", err)
	}
	summary.Recommendations = count
	return nil
}

// Taxonomy exposes the taxonomy for lifecycle administration. Callers
// must not interleave lifecycle operations with a running pipeline
// pass.
func (p *Pipeline) Taxonomy() *taxonomy.Taxonomy {
	return p.taxonomy
}
