package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the persistence the resolver needs.
type Store interface {
	LookupCategory(ctx context.Context, sourceSystem, rawValue string) (*int64, error)
	RecordUnmappedCategory(ctx context.Context, rawValue, sourceSystem string, seenAt time.Time) error
}

// Resolver maps raw source-specific category strings to canonical
// category ids. Unresolved values are recorded, never raised: an
// unmapped category must not block ingestion.
type Resolver struct {
	store Store
}

func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the mapped category id, or nil when the value has no
// mapping. A missing mapping is durably audited keyed by (raw value,
// source system) with the earliest observation as first-seen. Empty
// raw values are simply uncategorized, with no audit entry.
//
// Resolution is not cached against the expense: re-running transform
// after a mapping is added resolves previously unmapped rows.
func (r *Resolver) Resolve(ctx context.Context, sourceSystem, rawValue string, observedAt time.Time) (*int64, error) {
	rawValue = strings.TrimSpace(rawValue)
	if rawValue == "" {
		return nil, nil
	}

	id, err := r.store.LookupCategory(ctx, sourceSystem, rawValue)
	if err != nil {
		return nil, fmt.Errorf("resolve category %q: %w", rawValue, err)
	}
	if id != nil {
		return id, nil
	}

	if err := r.store.RecordUnmappedCategory(ctx, rawValue, sourceSystem, observedAt); err != nil {
		return nil, fmt.Errorf("audit unmapped category %q: %w", rawValue, err)
	}

	slog.DebugContext(ctx, "Unmapped category observed",
		"raw_value", rawValue,
		"source_system", sourceSystem)

	return nil, nil
}
