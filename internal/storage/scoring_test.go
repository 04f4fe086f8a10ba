package storage

import (
	"context"
	"testing"
	"time"

	"smartbudget/internal/core"
)

func TestScoredLabelRowsUsesActiveWeightOnly(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	occurred := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)

	mustUpsertExpense(t, repo, testExpense(1, 100, occurred))
	if err := repo.AssignLabel(ctx, 1, 101); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.ScoredLabelRows(ctx)
	if err != nil {
		t.Fatalf("scored label rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.ExpenseID != 1 || row.Amount != 100 || row.Weight != 0.5 {
		t.Errorf("row = %+v, want expense 1, amount 100, seeded weight 0.5", row)
	}
	if !row.OccurredAt.Equal(occurred) {
		t.Errorf("occurred_at = %v, want %v", row.OccurredAt, occurred)
	}

	// After a weight update only the new active row feeds scoring.
	if err := repo.SetLabelWeight(ctx, 101, 0.9, occurred.AddDate(0, 1, 0)); err != nil {
		t.Fatal(err)
	}
	rows, err = repo.ScoredLabelRows(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Weight != 0.9 {
		t.Errorf("rows after weight update = %+v, want single row with weight 0.9", rows)
	}
}

func TestScoredLabelRowsNeutralFallback(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	occurred := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)

	// Unlabeled expense.
	mustUpsertExpense(t, repo, testExpense(1, 40, occurred))

	// Expense labeled with a label that has no weight rows.
	mustUpsertExpense(t, repo, testExpense(2, 70, occurred))
	if err := repo.SplitLabel(ctx, "essential", "seasonal", nil); err != nil {
		t.Fatal(err)
	}
	seasonal, err := repo.GetLabelByName(ctx, "seasonal")
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignLabel(ctx, 2, seasonal.ID); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.ScoredLabelRows(ctx)
	if err != nil {
		t.Fatalf("scored label rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (every expense scores)", len(rows))
	}
	for _, row := range rows {
		if row.Weight != core.NeutralWeight {
			t.Errorf("expense %d weight = %v, want neutral %v", row.ExpenseID, row.Weight, core.NeutralWeight)
		}
	}
}

func TestWeightedExpenseRowsNeutralFallback(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	occurred := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)

	labeled := testExpense(1, 100, occurred)
	labeled.ProductName = "Groceries run"
	mustUpsertExpense(t, repo, labeled)
	if err := repo.AssignLabel(ctx, 1, 102); err != nil {
		t.Fatal(err)
	}

	unlabeled := testExpense(2, 40, occurred)
	unlabeled.ProductName = "Mystery charge"
	mustUpsertExpense(t, repo, unlabeled)

	rows, err := repo.WeightedExpenseRows(ctx)
	if err != nil {
		t.Fatalf("weighted expense rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	byID := map[int64]WeightedExpenseRow{}
	for _, r := range rows {
		byID[r.ExpenseID] = r
	}
	if r := byID[1]; r.Weight != 1.5 || r.ProductName != "Groceries run" {
		t.Errorf("labeled row = %+v, want discretionary weight 1.5", r)
	}
	if r := byID[2]; r.Weight != core.NeutralWeight {
		t.Errorf("unlabeled row = %+v, want neutral weight %v", r, core.NeutralWeight)
	}
}
