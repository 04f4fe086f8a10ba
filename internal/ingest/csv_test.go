package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"smartbudget/internal/core"
)

func TestCSVSourceFetch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expenses.csv")
	content := `Date,Item,Category,Qty,Price,Notes
2025-06-01,Milk,supermarket,2,1.50,
2025-06-02,Dinner,restaurant,,35.00,team night out
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewCSVSource(path)
	if source.System() != core.SourceCSV {
		t.Errorf("System() = %q, want %q", source.System(), core.SourceCSV)
	}

	rows, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.RowID != "1" || first.Item != "Milk" || first.Quantity != "2" || first.Price != "1.50" {
		t.Errorf("first row = %+v", first)
	}
	second := rows[1]
	if second.RowID != "2" || second.Notes != "team night out" || second.Quantity != "" {
		t.Errorf("second row = %+v", second)
	}
	for _, row := range rows {
		if row.SourceSystem != core.SourceCSV {
			t.Errorf("row %s source = %q", row.RowID, row.SourceSystem)
		}
	}
}

func TestCSVSourceFetchMissingFile(t *testing.T) {
	source := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"))
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
