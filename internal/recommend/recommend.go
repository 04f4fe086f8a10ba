package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartbudget/internal/core"
	"smartbudget/internal/scoring"
)

// Store persists advisory records.
type Store interface {
	UpsertRecommendation(ctx context.Context, rec core.Recommendation) error
}

// Generator turns the top quartile of the undecayed weighted ranking
// into idempotent advisory records.
type Generator struct {
	store  Store
	engine *scoring.Engine
	now    func() time.Time
}

func New(store Store, engine *scoring.Engine) *Generator {
	return &Generator{store: store, engine: engine, now: time.Now}
}

// NewAt pins "now" for deterministic generated_at values in tests.
func NewAt(store Store, engine *scoring.Engine, now func() time.Time) *Generator {
	return &Generator{store: store, engine: engine, now: now}
}

// Generate upserts one recommendation per quartile-1 expense, keyed by
// a deterministic id derived from the expense id. Re-running against
// an unchanged expense refreshes only generated_at and confidence.
//
// Confidence is the raw, undecayed weighted amount at generation time.
// It is not bounded to [0,1]: a relative ranking signal, not a
// probability.
func (g *Generator) Generate(ctx context.Context) (int, error) {
	entries, err := g.engine.QuartileRanks(ctx)
	if err != nil {
		return 0, fmt.Errorf("rank expenses: %w", err)
	}

	generatedAt := g.now()
	count := 0
	for _, entry := range entries {
		if entry.Quartile != 1 {
			continue
		}

		rec := core.Recommendation{
			ID:          core.RecommendationID(entry.ExpenseID),
			GeneratedAt: generatedAt,
			Message: fmt.Sprintf(
				"High priority spending detected on '%s' (Amount: $%.2f). Consider reviewing this expense.",
				entry.ProductName, entry.Amount),
			Confidence:       entry.Score,
			RelatedExpenseID: entry.ExpenseID,
		}
		if err := g.store.UpsertRecommendation(ctx, rec); err != nil {
			return count, fmt.Errorf("store recommendation for expense %d: %w", entry.ExpenseID, err)
		}
		count++
	}

	slog.InfoContext(ctx, "Generated recommendations", "count", count)
	return count, nil
}
