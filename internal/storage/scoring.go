package storage

import (
	"context"
	"fmt"
	"time"

	"smartbudget/internal/core"
)

// Joined rows feeding the two scoring passes. The joins live in SQL so
// the "currently active weight" filter (effective_to IS NULL) keeps
// the exact relational semantics; decay and ranking arithmetic happen
// in the scoring engine.

// ScoredLabelRow is one (expense, label) pair joined against the
// label's currently active weight. Expenses with no label, or a label
// with no active weight, fall back to the neutral weight so every
// stored expense participates in the decayed view.
type ScoredLabelRow struct {
	ExpenseID  int64
	Amount     float64
	Weight     float64
	OccurredAt time.Time
}

func (r *Repository) ScoredLabelRows(ctx context.Context) ([]ScoredLabelRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.expense_id, e.amount, COALESCE(lw.weight, ?), e.occurred_at
		FROM expenses e
		LEFT JOIN expense_labels el ON e.expense_id = el.expense_id
		LEFT JOIN label_weights lw ON el.label_id = lw.label_id AND lw.effective_to IS NULL`,
		core.NeutralWeight)
	if err != nil {
		return nil, fmt.Errorf("query scored label rows: %w", err)
	}
	defer rows.Close()

	var out []ScoredLabelRow
	for rows.Next() {
		var (
			row        ScoredLabelRow
			occurredAt string
		)
		if err := rows.Scan(&row.ExpenseID, &row.Amount, &row.Weight, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan scored label row: %w", err)
		}
		t, err := parseTime(occurredAt)
		if err != nil {
			return nil, err
		}
		row.OccurredAt = t
		out = append(out, row)
	}
	return out, rows.Err()
}

// WeightedExpenseRow is one (expense, label) pair for the undecayed
// quartile pass. Expenses with no label, or a label with no active
// weight, fall back to the neutral weight.
type WeightedExpenseRow struct {
	ExpenseID   int64
	ProductName string
	Amount      float64
	Weight      float64
}

func (r *Repository) WeightedExpenseRows(ctx context.Context) ([]WeightedExpenseRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.expense_id, e.product_name, e.amount, COALESCE(lw.weight, ?)
		FROM expenses e
		LEFT JOIN expense_labels el ON e.expense_id = el.expense_id
		LEFT JOIN label_weights lw ON el.label_id = lw.label_id AND lw.effective_to IS NULL`,
		core.NeutralWeight)
	if err != nil {
		return nil, fmt.Errorf("query weighted expense rows: %w", err)
	}
	defer rows.Close()

	var out []WeightedExpenseRow
	for rows.Next() {
		var row WeightedExpenseRow
		if err := rows.Scan(&row.ExpenseID, &row.ProductName, &row.Amount, &row.Weight); err != nil {
			return nil, fmt.Errorf("scan weighted expense row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
