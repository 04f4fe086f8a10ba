package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"smartbudget/internal/core"
	"smartbudget/internal/storage"
)

type fakeStore struct {
	scored   []storage.ScoredLabelRow
	weighted []storage.WeightedExpenseRow
	err      error
}

func (f *fakeStore) ScoredLabelRows(ctx context.Context) ([]storage.ScoredLabelRow, error) {
	return f.scored, f.err
}

func (f *fakeStore) WeightedExpenseRows(ctx context.Context) ([]storage.WeightedExpenseRow, error) {
	return f.weighted, f.err
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestViewDecayAndNormalization(t *testing.T) {
	now := fixedNow()
	// Two expenses, same amount and weight, two months apart. The
	// recent one scores 100*1.5 = 150; the older decays twice:
	// 100*1.5*0.6^2 = 54.
	store := &fakeStore{scored: []storage.ScoredLabelRow{
		{ExpenseID: 1, Amount: 100, Weight: 1.5, OccurredAt: now},
		{ExpenseID: 2, Amount: 100, Weight: 1.5, OccurredAt: now.AddDate(0, -2, 0)},
	}}

	view, err := NewAt(store, fixedNow).View(context.Background())
	if err != nil {
		t.Fatalf("View() error: %v", err)
	}
	if len(view) != 2 {
		t.Fatalf("view size = %d, want 2", len(view))
	}

	recent := view[1]
	if !almostEqual(recent.PriorityScore, 150) {
		t.Errorf("recent score = %v, want 150", recent.PriorityScore)
	}
	if !almostEqual(recent.ScoreNorm, 1.0) || recent.Bucket != core.BucketHigh {
		t.Errorf("recent norm/bucket = %v/%s, want 1.0/High", recent.ScoreNorm, recent.Bucket)
	}

	older := view[2]
	if !almostEqual(older.PriorityScore, 54) {
		t.Errorf("older score = %v, want 54", older.PriorityScore)
	}
	if !almostEqual(older.ScoreNorm, 0.36) || older.Bucket != core.BucketLow {
		t.Errorf("older norm/bucket = %v/%s, want 0.36/Low", older.ScoreNorm, older.Bucket)
	}
}

func TestViewSumsMultipleLabels(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{scored: []storage.ScoredLabelRow{
		{ExpenseID: 1, Amount: 100, Weight: 0.5, OccurredAt: now},
		{ExpenseID: 1, Amount: 100, Weight: 1.5, OccurredAt: now},
	}}

	view, err := NewAt(store, fixedNow).View(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := view[1].PriorityScore; !almostEqual(got, 200) {
		t.Errorf("summed score = %v, want 200 (50 + 150)", got)
	}
}

func TestViewRecencyMonotonic(t *testing.T) {
	now := fixedNow()
	store := &fakeStore{scored: []storage.ScoredLabelRow{
		{ExpenseID: 1, Amount: 80, Weight: 1.0, OccurredAt: now},
		{ExpenseID: 2, Amount: 80, Weight: 1.0, OccurredAt: now.AddDate(0, -1, 0)},
		{ExpenseID: 3, Amount: 80, Weight: 1.0, OccurredAt: now.AddDate(0, -4, 0)},
	}}

	view, err := NewAt(store, fixedNow).View(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !(view[1].PriorityScore > view[2].PriorityScore && view[2].PriorityScore > view[3].PriorityScore) {
		t.Errorf("scores not monotonically decreasing with age: %v > %v > %v expected",
			view[1].PriorityScore, view[2].PriorityScore, view[3].PriorityScore)
	}
}

func TestViewNoScores(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
	}{
		{"no labeled expenses", &fakeStore{}},
		{"all zero amounts", &fakeStore{scored: []storage.ScoredLabelRow{
			{ExpenseID: 1, Amount: 0, Weight: 1.5, OccurredAt: fixedNow()},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAt(tt.store, fixedNow).View(context.Background())
			if !errors.Is(err, core.ErrNoScores) {
				t.Errorf("err = %v, want ErrNoScores", err)
			}
		})
	}
}

func TestQuartileRanks(t *testing.T) {
	t.Run("orders by weighted amount and fills top down", func(t *testing.T) {
		store := &fakeStore{weighted: []storage.WeightedExpenseRow{
			{ExpenseID: 1, ProductName: "a", Amount: 10, Weight: 1},
			{ExpenseID: 2, ProductName: "b", Amount: 40, Weight: 1},
			{ExpenseID: 3, ProductName: "c", Amount: 20, Weight: 1},
			{ExpenseID: 4, ProductName: "d", Amount: 30, Weight: 1},
			{ExpenseID: 5, ProductName: "e", Amount: 5, Weight: 1},
		}}

		entries, err := NewAt(store, fixedNow).QuartileRanks(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 5 {
			t.Fatalf("entries = %d, want 5", len(entries))
		}

		// 5 entries over 4 buckets: the first bucket takes the extra.
		wantIDs := []int64{2, 4, 3, 1, 5}
		wantQuartiles := []int{1, 1, 2, 3, 4}
		for i, e := range entries {
			if e.ExpenseID != wantIDs[i] {
				t.Errorf("entries[%d].ExpenseID = %d, want %d", i, e.ExpenseID, wantIDs[i])
			}
			if e.Quartile != wantQuartiles[i] {
				t.Errorf("entries[%d].Quartile = %d, want %d", i, e.Quartile, wantQuartiles[i])
			}
		}
	})

	t.Run("weight lifts an expense over a larger amount", func(t *testing.T) {
		store := &fakeStore{weighted: []storage.WeightedExpenseRow{
			{ExpenseID: 1, ProductName: "dinner", Amount: 60, Weight: 1.5},
			{ExpenseID: 2, ProductName: "rent", Amount: 80, Weight: 1.0},
		}}

		entries, err := NewAt(store, fixedNow).QuartileRanks(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if entries[0].ExpenseID != 1 {
			t.Errorf("top entry = %d, want weighted dinner (score 90 vs 80)", entries[0].ExpenseID)
		}
		if !almostEqual(entries[0].Score, 90) {
			t.Errorf("top score = %v, want 90", entries[0].Score)
		}
	})

	t.Run("multi-label expense sums pair scores once per label", func(t *testing.T) {
		store := &fakeStore{weighted: []storage.WeightedExpenseRow{
			{ExpenseID: 1, ProductName: "laptop", Amount: 100, Weight: 0.8},
			{ExpenseID: 1, ProductName: "laptop", Amount: 100, Weight: 1.5},
		}}

		entries, err := NewAt(store, fixedNow).QuartileRanks(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Fatalf("entries = %d, want 1 aggregated expense", len(entries))
		}
		if !almostEqual(entries[0].Score, 230) {
			t.Errorf("aggregated score = %v, want 230", entries[0].Score)
		}
	})

	t.Run("empty store yields no entries", func(t *testing.T) {
		entries, err := NewAt(&fakeStore{}, fixedNow).QuartileRanks(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("entries = %d, want 0", len(entries))
		}
	})
}

func TestAssignQuartilesDistribution(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{1, []int{1}},
		{2, []int{1, 2}},
		{3, []int{1, 2, 3}},
		{4, []int{1, 2, 3, 4}},
		{6, []int{1, 1, 2, 2, 3, 4}},
		{8, []int{1, 1, 2, 2, 3, 3, 4, 4}},
	}

	for _, tt := range tests {
		entries := make([]QuartileEntry, tt.n)
		assignQuartiles(entries)
		for i, e := range entries {
			if e.Quartile != tt.want[i] {
				t.Errorf("n=%d entries[%d].Quartile = %d, want %d", tt.n, i, e.Quartile, tt.want[i])
			}
		}
	}
}
