package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smartbudget/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout is the storage format for all timestamps: naive local
// time, no zone. Matches what datetime('now','localtime') produces.
const timeLayout = "2006-01-02 15:04:05"

// Repository is the single embedded analytical store shared by every
// pipeline stage. One connection per run; stages are sequential.
type Repository struct {
	db *sql.DB
}

func Open(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// placeholders returns "?, ?, ..." for n parameters. Id collections
// are always bound as parameters, never formatted into the query.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// UpsertExpense inserts the expense or, on a conflicting id, refreshes
// occurrence timestamp, product name, amount and category id. The
// remaining columns stay as first written, caller-controlled.
func (r *Repository) UpsertExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (expense_id, occurred_at, product_name, quantity, unit_price,
			amount, category_id, payment_mode_id, notes, source_system, source_row_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (expense_id) DO UPDATE SET
			occurred_at = excluded.occurred_at,
			product_name = excluded.product_name,
			amount = excluded.amount,
			category_id = excluded.category_id`,
		e.ID, formatTime(e.OccurredAt), e.ProductName, e.Quantity, e.UnitPrice,
		e.Amount, e.CategoryID, e.PaymentModeID, e.Notes, e.SourceSystem, e.SourceRowID)
	if err != nil {
		return fmt.Errorf("upsert expense %d: %w", e.ID, err)
	}
	return nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT expense_id, occurred_at, product_name, quantity, unit_price,
			amount, category_id, payment_mode_id, notes, source_system, source_row_id
		FROM expenses WHERE expense_id = ?`, id)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT expense_id, occurred_at, product_name, quantity, unit_price,
			amount, category_id, payment_mode_id, notes, source_system, source_row_id
		FROM expenses ORDER BY occurred_at, expense_id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (r *Repository) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (*core.Expense, error) {
	var (
		e          core.Expense
		occurredAt string
	)
	err := s.Scan(&e.ID, &occurredAt, &e.ProductName, &e.Quantity, &e.UnitPrice,
		&e.Amount, &e.CategoryID, &e.PaymentModeID, &e.Notes, &e.SourceSystem, &e.SourceRowID)
	if err != nil {
		return nil, err
	}
	t, err := parseTime(occurredAt)
	if err != nil {
		return nil, err
	}
	e.OccurredAt = t
	return &e, nil
}

// ReplaceRawRows replaces the staged raw rows for one source system,
// so transform always reads the latest ingestion run.
func (r *Repository) ReplaceRawRows(ctx context.Context, sourceSystem string, rows []core.RawRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin raw rows tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_rows WHERE source_system = ?`, sourceSystem); err != nil {
		return fmt.Errorf("clear raw rows: %w", err)
	}

	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO raw_rows (source_system, row_id, ingested_at, date, item,
				category, quantity, price, notes, payment_mode)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sourceSystem, row.RowID, formatTime(row.IngestedAt), row.Date, row.Item,
			row.Category, row.Quantity, row.Price, row.Notes, row.PaymentMode)
		if err != nil {
			return fmt.Errorf("stage raw row %s: %w", row.RowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit raw rows: %w", err)
	}

	slog.InfoContext(ctx, "Staged raw rows", "source_system", sourceSystem, "count", len(rows))
	return nil
}

func (r *Repository) ListRawRows(ctx context.Context, sourceSystem string) ([]core.RawRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT row_id, ingested_at, date, item, category, quantity, price, notes, payment_mode
		FROM raw_rows WHERE source_system = ? ORDER BY row_id`, sourceSystem)
	if err != nil {
		return nil, fmt.Errorf("list raw rows: %w", err)
	}
	defer rows.Close()

	var out []core.RawRow
	for rows.Next() {
		var (
			row        core.RawRow
			ingestedAt string
		)
		if err := rows.Scan(&row.RowID, &ingestedAt, &row.Date, &row.Item,
			&row.Category, &row.Quantity, &row.Price, &row.Notes, &row.PaymentMode); err != nil {
			return nil, fmt.Errorf("scan raw row: %w", err)
		}
		t, err := parseTime(ingestedAt)
		if err != nil {
			return nil, err
		}
		row.IngestedAt = t
		row.SourceSystem = sourceSystem
		out = append(out, row)
	}
	return out, rows.Err()
}
