package ingest

import (
	"context"

	"smartbudget/internal/core"
)

// Source is the port for raw-row producers (CSV file, Google Sheets,
// in-memory fixtures). A source hands back untyped rows; validation
// and typing happen downstream.
type Source interface {
	// System identifies the source system the rows belong to.
	System() string

	// Fetch returns the current raw rows of the source.
	Fetch(ctx context.Context) ([]core.RawRow, error)
}
