package storage

import (
	"context"
	"fmt"

	"smartbudget/internal/core"
)

// UpsertRecommendation inserts the advisory record or, when the
// deterministic id already exists, refreshes only generated_at and
// confidence.
func (r *Repository) UpsertRecommendation(ctx context.Context, rec core.Recommendation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recommendations (recommendation_id, generated_at, message, confidence, related_expense_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (recommendation_id) DO UPDATE SET
			generated_at = excluded.generated_at,
			confidence = excluded.confidence`,
		rec.ID, formatTime(rec.GeneratedAt), rec.Message, rec.Confidence, rec.RelatedExpenseID)
	if err != nil {
		return fmt.Errorf("upsert recommendation %d: %w", rec.ID, err)
	}
	return nil
}

func (r *Repository) ListRecommendations(ctx context.Context) ([]core.Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT recommendation_id, generated_at, message, confidence, related_expense_id
		FROM recommendations ORDER BY confidence DESC, recommendation_id`)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	var out []core.Recommendation
	for rows.Next() {
		var (
			rec         core.Recommendation
			generatedAt string
		)
		if err := rows.Scan(&rec.ID, &generatedAt, &rec.Message, &rec.Confidence, &rec.RelatedExpenseID); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		t, err := parseTime(generatedAt)
		if err != nil {
			return nil, err
		}
		rec.GeneratedAt = t
		out = append(out, rec)
	}
	return out, rows.Err()
}
