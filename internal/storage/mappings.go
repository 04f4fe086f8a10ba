package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"smartbudget/internal/core"
)

// Category reference data and the (source system, raw value) mapping
// table consulted by the resolver.

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_id, name, description FROM categories ORDER BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// LookupCategory returns the mapped category id for a raw source
// value, or nil when no mapping exists.
func (r *Repository) LookupCategory(ctx context.Context, sourceSystem, rawValue string) (*int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		SELECT category_id FROM category_mappings
		WHERE source_system = ? AND raw_value = ?`, sourceSystem, rawValue).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup category mapping %s/%s: %w", sourceSystem, rawValue, err)
	}
	return &id, nil
}

// AddCategoryMapping registers a mapping. An entry here retroactively
// resolves previously unmapped rows on the next transform run.
func (r *Repository) AddCategoryMapping(ctx context.Context, sourceSystem, rawValue string, categoryID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO category_mappings (source_system, raw_value, category_id)
		VALUES (?, ?, ?)
		ON CONFLICT (source_system, raw_value) DO UPDATE SET category_id = excluded.category_id`,
		sourceSystem, rawValue, categoryID)
	if err != nil {
		return fmt.Errorf("add category mapping %s/%s: %w", sourceSystem, rawValue, err)
	}
	return nil
}

// RecordUnmappedCategory appends to the write-once audit trail. A
// second identical observation leaves the first-seen timestamp alone.
func (r *Repository) RecordUnmappedCategory(ctx context.Context, rawValue, sourceSystem string, seenAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO unmapped_categories (raw_value, source_system, first_seen_at)
		VALUES (?, ?, ?)
		ON CONFLICT (raw_value, source_system) DO NOTHING`,
		rawValue, sourceSystem, formatTime(seenAt))
	if err != nil {
		return fmt.Errorf("record unmapped category %q: %w", rawValue, err)
	}
	return nil
}

// GetPaymentModeByName returns the payment mode, or nil when the name
// is unknown. Payment modes are static reference data.
func (r *Repository) GetPaymentModeByName(ctx context.Context, name string) (*core.PaymentMode, error) {
	var pm core.PaymentMode
	err := r.db.QueryRowContext(ctx,
		`SELECT payment_mode_id, name FROM payment_modes WHERE name = ?`, name).Scan(&pm.ID, &pm.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment mode %q: %w", name, err)
	}
	return &pm, nil
}

func (r *Repository) ListUnmappedCategories(ctx context.Context) ([]core.UnmappedCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT raw_value, source_system, first_seen_at FROM unmapped_categories
		ORDER BY source_system, raw_value`)
	if err != nil {
		return nil, fmt.Errorf("list unmapped categories: %w", err)
	}
	defer rows.Close()

	var out []core.UnmappedCategory
	for rows.Next() {
		var (
			u    core.UnmappedCategory
			seen string
		)
		if err := rows.Scan(&u.RawValue, &u.SourceSystem, &seen); err != nil {
			return nil, fmt.Errorf("scan unmapped category: %w", err)
		}
		t, err := parseTime(seen)
		if err != nil {
			return nil, err
		}
		u.FirstSeenAt = t
		out = append(out, u)
	}
	return out, rows.Err()
}
