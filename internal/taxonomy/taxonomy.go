package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"smartbudget/internal/core"
)

// DefaultLabelRules is the closed, data-driven mapping from canonical
// category name to the label it implies. Not a rules engine.
var DefaultLabelRules = map[string]string{
	"Groceries": "essential",
	"Dining":    "discretionary",
}

// Store is the persistence the taxonomy needs. Lifecycle operations
// are transactional at the storage layer.
type Store interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetLabelByName(ctx context.Context, name string) (*core.Label, error)
	AssignLabel(ctx context.Context, expenseID, labelID int64) error
	RenameLabel(ctx context.Context, oldName, newName string) error
	MergeLabels(ctx context.Context, sourceNames []string, targetName string) error
	SplitLabel(ctx context.Context, sourceName, newName string, expenseIDs []int64) error
	SetLabelWeight(ctx context.Context, labelID int64, weight float64, effectiveFrom time.Time) error
}

// Taxonomy owns labels and their effective-dated weights, and applies
// the default label rules during transform.
type Taxonomy struct {
	store Store

	// categoryNames caches category id -> name for rule lookup; the
	// reference data is seeded by migrations and rarely mutated.
	categoryNames map[int64]string
}

func New(store Store) *Taxonomy {
	return &Taxonomy{store: store}
}

// AssignDefaultLabels derives label assignments from the expense's
// resolved category. Additive and idempotent: re-running never
// duplicates an association. Uncategorized expenses get nothing.
func (t *Taxonomy) AssignDefaultLabels(ctx context.Context, expense core.Expense) error {
	if expense.CategoryID == nil {
		return nil
	}

	if t.categoryNames == nil {
		categories, err := t.store.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		t.categoryNames = make(map[int64]string, len(categories))
		for _, c := range categories {
			t.categoryNames[c.ID] = c.Name
		}
	}

	labelName, ok := DefaultLabelRules[t.categoryNames[*expense.CategoryID]]
	if !ok {
		return nil
	}

	label, err := t.store.GetLabelByName(ctx, labelName)
	if err != nil {
		return fmt.Errorf("lookup rule label %q: %w", labelName, err)
	}
	if label == nil {
		slog.WarnContext(ctx, "Rule label missing from taxonomy", "label", labelName)
		return nil
	}

	if err := t.store.AssignLabel(ctx, expense.ID, label.ID); err != nil {
		return fmt.Errorf("assign default label: %w", err)
	}
	return nil
}

// Rename updates the label name in place; associations and weight
// history are untouched.
func (t *Taxonomy) Rename(ctx context.Context, oldName, newName string) error {
	return t.store.RenameLabel(ctx, oldName, newName)
}

// Merge re-points every association from the source labels to the
// target, then removes the sources. Atomic: a missing label leaves
// everything unchanged. Source weight history is abandoned; the
// target's own history governs future scoring.
func (t *Taxonomy) Merge(ctx context.Context, sourceNames []string, targetName string) error {
	return t.store.MergeLabels(ctx, sourceNames, targetName)
}

// Split creates newName if absent and moves exactly the given expense
// ids onto it. That the expenses currently hold sourceName is a caller
// contract, not checked here.
func (t *Taxonomy) Split(ctx context.Context, sourceName, newName string, expenseIDs []int64) error {
	return t.store.SplitLabel(ctx, sourceName, newName, expenseIDs)
}

// SetWeight closes the label's active weight row and opens a new one
// effective from the given time.
func (t *Taxonomy) SetWeight(ctx context.Context, labelID int64, weight float64, effectiveFrom time.Time) error {
	return t.store.SetLabelWeight(ctx, labelID, weight, effectiveFrom)
}
