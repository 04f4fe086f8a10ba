package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"smartbudget/internal/core"
)

// Label taxonomy persistence. Lifecycle operations (rename, merge,
// split, set weight) each run in a single transaction: they either
// complete fully or leave the taxonomy untouched.

func (r *Repository) GetLabelByName(ctx context.Context, name string) (*core.Label, error) {
	var l core.Label
	err := r.db.QueryRowContext(ctx,
		`SELECT label_id, name FROM labels WHERE name = ?`, name).Scan(&l.ID, &l.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get label %q: %w", name, err)
	}
	return &l, nil
}

func (r *Repository) ListLabels(ctx context.Context) ([]core.Label, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT label_id, name FROM labels ORDER BY label_id`)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	var labels []core.Label
	for rows.Next() {
		var l core.Label
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

// RenameLabel updates the label name in place. Associations and weight
// history are untouched.
func (r *Repository) RenameLabel(ctx context.Context, oldName, newName string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE labels SET name = ? WHERE name = ?`, newName, oldName)
	if err != nil {
		return fmt.Errorf("rename label %q: %w", oldName, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename label rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rename label %q: %w", oldName, core.ErrLabelNotFound)
	}

	slog.InfoContext(ctx, "Renamed label", "old", oldName, "new", newName)
	return nil
}

// MergeLabels repoints every association from the source labels to the
// target label, then removes the sources. Weight history of the
// sources is abandoned on purpose: the target label's own history
// governs future scoring.
func (r *Repository) MergeLabels(ctx context.Context, sourceNames []string, targetName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback()

	targetID, err := labelIDByName(ctx, tx, targetName)
	if err != nil {
		return err
	}

	sourceIDs := make([]int64, 0, len(sourceNames))
	for _, name := range sourceNames {
		id, err := labelIDByName(ctx, tx, name)
		if err != nil {
			return err
		}
		sourceIDs = append(sourceIDs, id)
	}
	if len(sourceIDs) == 0 {
		return tx.Commit()
	}

	ph := placeholders(len(sourceIDs))
	args := int64Args(sourceIDs)

	// INSERT OR IGNORE keeps the pair primary key intact when an
	// expense already holds the target label; the result is the union
	// of the source and target associations.
	insertArgs := append([]any{targetID}, args...)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR IGNORE INTO expense_labels (expense_id, label_id)
		SELECT expense_id, ? FROM expense_labels WHERE label_id IN (%s)`, ph), insertArgs...); err != nil {
		return fmt.Errorf("repoint associations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM expense_labels WHERE label_id IN (%s)`, ph), args...); err != nil {
		return fmt.Errorf("drop source associations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM labels WHERE label_id IN (%s)`, ph), args...); err != nil {
		return fmt.Errorf("drop source labels: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge: %w", err)
	}

	slog.InfoContext(ctx, "Merged labels", "sources", sourceNames, "target", targetName)
	return nil
}

// SplitLabel creates newName if absent and repoints the associations
// of exactly the given expense ids toward it. Whether those expenses
// currently hold sourceName is a caller contract, not checked here.
func (r *Repository) SplitLabel(ctx context.Context, sourceName, newName string, expenseIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin split tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := labelIDByName(ctx, tx, sourceName); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO labels (name) VALUES (?)`, newName); err != nil {
		return fmt.Errorf("create label %q: %w", newName, err)
	}
	newID, err := labelIDByName(ctx, tx, newName)
	if err != nil {
		return err
	}

	if len(expenseIDs) == 0 {
		return tx.Commit()
	}

	ph := placeholders(len(expenseIDs))
	args := int64Args(expenseIDs)

	insertArgs := append([]any{newID}, args...)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT OR IGNORE INTO expense_labels (expense_id, label_id)
		SELECT DISTINCT expense_id, ? FROM expense_labels WHERE expense_id IN (%s)`, ph), insertArgs...); err != nil {
		return fmt.Errorf("attach split label: %w", err)
	}
	deleteArgs := append(args, newID)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM expense_labels WHERE expense_id IN (%s) AND label_id != ?`, ph), deleteArgs...); err != nil {
		return fmt.Errorf("detach previous labels: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit split: %w", err)
	}

	slog.InfoContext(ctx, "Split label", "source", sourceName, "new", newName, "moved", len(expenseIDs))
	return nil
}

// SetLabelWeight closes the currently active weight row and inserts a
// new open-ended one. At most one row per label ever has a null
// effective_to.
func (r *Repository) SetLabelWeight(ctx context.Context, labelID int64, weight float64, effectiveFrom time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin weight tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE label_weights SET effective_to = ?
		WHERE label_id = ? AND effective_to IS NULL`,
		formatTime(effectiveFrom), labelID); err != nil {
		return fmt.Errorf("close active weight: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO label_weights (label_id, weight, effective_from, effective_to)
		VALUES (?, ?, ?, NULL)`,
		labelID, weight, formatTime(effectiveFrom)); err != nil {
		return fmt.Errorf("insert weight: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit weight: %w", err)
	}

	slog.InfoContext(ctx, "Set label weight", "label_id", labelID, "weight", weight)
	return nil
}

// ActiveWeight returns the label's open-ended weight row, or nil if
// none is active. The open-ended row is the sole source of truth, not
// recency of effective_from.
func (r *Repository) ActiveWeight(ctx context.Context, labelID int64) (*core.LabelWeight, error) {
	var (
		w    core.LabelWeight
		from string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT label_id, weight, effective_from FROM label_weights
		WHERE label_id = ? AND effective_to IS NULL`, labelID).Scan(&w.LabelID, &w.Weight, &from)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active weight for label %d: %w", labelID, err)
	}
	t, err := parseTime(from)
	if err != nil {
		return nil, err
	}
	w.EffectiveFrom = t
	return &w, nil
}

func (r *Repository) ListWeights(ctx context.Context, labelID int64) ([]core.LabelWeight, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT label_id, weight, effective_from, effective_to FROM label_weights
		WHERE label_id = ? ORDER BY effective_from`, labelID)
	if err != nil {
		return nil, fmt.Errorf("list weights: %w", err)
	}
	defer rows.Close()

	var weights []core.LabelWeight
	for rows.Next() {
		var (
			w    core.LabelWeight
			from string
			to   *string
		)
		if err := rows.Scan(&w.LabelID, &w.Weight, &from, &to); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		t, err := parseTime(from)
		if err != nil {
			return nil, err
		}
		w.EffectiveFrom = t
		if to != nil {
			tt, err := parseTime(*to)
			if err != nil {
				return nil, err
			}
			w.EffectiveTo = &tt
		}
		weights = append(weights, w)
	}
	return weights, rows.Err()
}

// AssignLabel adds an expense-label association. Additive and
// idempotent: re-running never duplicates the pair.
func (r *Repository) AssignLabel(ctx context.Context, expenseID, labelID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO expense_labels (expense_id, label_id) VALUES (?, ?)`,
		expenseID, labelID)
	if err != nil {
		return fmt.Errorf("assign label %d to expense %d: %w", labelID, expenseID, err)
	}
	return nil
}

func (r *Repository) ExpenseIDsForLabel(ctx context.Context, labelID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT expense_id FROM expense_labels WHERE label_id = ? ORDER BY expense_id`, labelID)
	if err != nil {
		return nil, fmt.Errorf("expense ids for label %d: %w", labelID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func labelIDByName(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT label_id FROM labels WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("label %q: %w", name, core.ErrLabelNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup label %q: %w", name, err)
	}
	return id, nil
}
