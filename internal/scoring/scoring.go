package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"smartbudget/internal/core"
	"smartbudget/internal/storage"
)

// Store provides the joined rows both scoring passes read.
type Store interface {
	ScoredLabelRows(ctx context.Context) ([]storage.ScoredLabelRow, error)
	WeightedExpenseRows(ctx context.Context) ([]storage.WeightedExpenseRow, error)
}

// Engine derives scored views over the expense store. It owns no
// persistent state: every invocation recomputes from scratch.
//
// Two distinct passes exist on purpose. View applies recency decay and
// normalization and backs the High/Medium/Low reporting buckets;
// QuartileRanks ranks by undecayed amount*weight and selects
// recommendation candidates. They are not interchangeable.
type Engine struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewAt pins "now" for deterministic scoring, used by tests and
// replayable batch runs.
func NewAt(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// ScoredExpense is one entry of the decayed, normalized view.
type ScoredExpense struct {
	ExpenseID     int64
	PriorityScore float64
	ScoreNorm     float64
	Bucket        string
}

// View computes the decayed priority score per expense and normalizes
// against the maximum. Unlabeled expenses score at the neutral weight.
// Returns core.ErrNoScores when no expense has a positive score;
// callers must report zero candidates instead of dividing by zero.
func (e *Engine) View(ctx context.Context) (map[int64]ScoredExpense, error) {
	rows, err := e.store.ScoredLabelRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("scored label rows: %w", err)
	}

	now := e.now()
	scores := make(map[int64]float64)
	for _, row := range rows {
		months := core.MonthsBetween(row.OccurredAt, now)
		scores[row.ExpenseID] += row.Amount * row.Weight * math.Pow(core.DecayRate, float64(months))
	}

	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore <= 0 {
		return nil, core.ErrNoScores
	}

	view := make(map[int64]ScoredExpense, len(scores))
	for id, s := range scores {
		norm := s / maxScore
		view[id] = ScoredExpense{
			ExpenseID:     id,
			PriorityScore: s,
			ScoreNorm:     norm,
			Bucket:        core.BucketFor(norm),
		}
	}
	return view, nil
}

// QuartileEntry is one expense ranked by undecayed weighted amount.
// Quartile 1 holds the top quarter by score.
type QuartileEntry struct {
	ExpenseID   int64
	ProductName string
	Amount      float64
	Score       float64
	Quartile    int
}

// QuartileRanks assigns every expense to one of four equal-population
// buckets ordered by descending amount*weight, neutral weight 1.0 for
// unlabeled expenses. No time decay is applied in this pass.
func (e *Engine) QuartileRanks(ctx context.Context) ([]QuartileEntry, error) {
	rows, err := e.store.WeightedExpenseRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("weighted expense rows: %w", err)
	}

	type agg struct {
		productName string
		amount      float64
		score       float64
	}
	byExpense := make(map[int64]*agg)
	order := make([]int64, 0, len(rows))
	for _, row := range rows {
		a, ok := byExpense[row.ExpenseID]
		if !ok {
			a = &agg{productName: row.ProductName, amount: row.Amount}
			byExpense[row.ExpenseID] = a
			order = append(order, row.ExpenseID)
		}
		a.score += row.Amount * row.Weight
	}

	entries := make([]QuartileEntry, 0, len(order))
	for _, id := range order {
		a := byExpense[id]
		entries = append(entries, QuartileEntry{
			ExpenseID:   id,
			ProductName: a.productName,
			Amount:      a.amount,
			Score:       a.score,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ExpenseID < entries[j].ExpenseID
	})

	assignQuartiles(entries)
	return entries, nil
}

// assignQuartiles distributes n sorted entries over 4 buckets the way
// NTILE(4) does: earlier buckets take the remainder.
func assignQuartiles(entries []QuartileEntry) {
	n := len(entries)
	if n == 0 {
		return
	}
	base := n / 4
	rem := n % 4
	idx := 0
	for q := 1; q <= 4; q++ {
		size := base
		if q <= rem {
			size++
		}
		for i := 0; i < size && idx < n; i++ {
			entries[idx].Quartile = q
			idx++
		}
	}
}
