package ingest

import (
	"strings"
	"testing"
	"time"

	"smartbudget/internal/core"
)

func floatPtr(v float64) *float64 { return &v }

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name       string
		row        core.RawRow
		wantValid  bool
		wantReason string
		check      func(t *testing.T, rec *Record)
	}{
		{
			name: "valid row with quantity and price",
			row: core.RawRow{
				RowID: "1", Date: "2025-06-01", Item: "Milk", Category: "supermarket",
				Quantity: "2", Price: "1.50",
			},
			wantValid: true,
			check: func(t *testing.T, rec *Record) {
				if rec.Item != "Milk" {
					t.Errorf("Item = %q", rec.Item)
				}
				if rec.Quantity == nil || *rec.Quantity != 2 {
					t.Errorf("Quantity = %v, want 2", rec.Quantity)
				}
				if rec.Price == nil || *rec.Price != 1.5 {
					t.Errorf("Price = %v, want 1.5", rec.Price)
				}
			},
		},
		{
			name: "currency symbol and float quantity accepted",
			row: core.RawRow{
				RowID: "2", Date: "2025-06-01", Item: "Dinner",
				Quantity: "3.0", Price: "$10.50",
			},
			wantValid: true,
			check: func(t *testing.T, rec *Record) {
				if rec.Quantity == nil || *rec.Quantity != 3 {
					t.Errorf("Quantity = %v, want 3", rec.Quantity)
				}
				if rec.Price == nil || *rec.Price != 10.5 {
					t.Errorf("Price = %v, want 10.5", rec.Price)
				}
			},
		},
		{
			name: "slash date layout accepted",
			row: core.RawRow{
				RowID: "3", Date: "15/06/2025", Item: "Bus ticket", Price: "2",
			},
			wantValid: true,
			check: func(t *testing.T, rec *Record) {
				want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.Local)
				if !rec.Date.Equal(want) {
					t.Errorf("Date = %v, want %v", rec.Date, want)
				}
			},
		},
		{
			name: "note stands in for missing item",
			row: core.RawRow{
				RowID: "4", Date: "2025-06-01", Notes: "parking meter", Price: "1",
			},
			wantValid: true,
			check: func(t *testing.T, rec *Record) {
				if rec.Item != "" || rec.Note != "parking meter" {
					t.Errorf("Item = %q, Note = %q", rec.Item, rec.Note)
				}
			},
		},
		{
			name:       "missing date",
			row:        core.RawRow{RowID: "5", Item: "Milk", Price: "1"},
			wantValid:  false,
			wantReason: "missing date",
		},
		{
			name:       "unparseable date",
			row:        core.RawRow{RowID: "6", Date: "June 1st", Item: "Milk", Price: "1"},
			wantValid:  false,
			wantReason: "invalid date format",
		},
		{
			name:       "item and note both empty",
			row:        core.RawRow{RowID: "7", Date: "2025-06-01", Price: "1"},
			wantValid:  false,
			wantReason: "either item or note",
		},
		{
			name:       "negative quantity",
			row:        core.RawRow{RowID: "8", Date: "2025-06-01", Item: "Milk", Quantity: "-1", Price: "1"},
			wantValid:  false,
			wantReason: "quantity cannot be negative",
		},
		{
			name:       "negative price",
			row:        core.RawRow{RowID: "9", Date: "2025-06-01", Item: "Refund?", Price: "-5"},
			wantValid:  false,
			wantReason: "price cannot be negative",
		},
		{
			name:       "garbage quantity",
			row:        core.RawRow{RowID: "10", Date: "2025-06-01", Item: "Milk", Quantity: "two", Price: "1"},
			wantValid:  false,
			wantReason: "invalid quantity",
		},
		{
			name:       "garbage price",
			row:        core.RawRow{RowID: "11", Date: "2025-06-01", Item: "Milk", Price: "free"},
			wantValid:  false,
			wantReason: "invalid price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateRow(tt.row)
			if res.Valid() != tt.wantValid {
				t.Fatalf("Valid() = %v, want %v (err: %+v)", res.Valid(), tt.wantValid, res.Err)
			}
			if !tt.wantValid {
				if res.Err.RowID != tt.row.RowID {
					t.Errorf("RowID = %q, want %q", res.Err.RowID, tt.row.RowID)
				}
				if !strings.Contains(res.Err.Reason, tt.wantReason) {
					t.Errorf("Reason = %q, want substring %q", res.Err.Reason, tt.wantReason)
				}
				return
			}
			if tt.check != nil {
				tt.check(t, res.Record)
			}
		})
	}
}

func TestValidateRowsSplitsBatch(t *testing.T) {
	rows := []core.RawRow{
		{RowID: "1", Date: "2025-06-01", Item: "Milk", Price: "1"},
		{RowID: "2", Item: "Bread", Price: "1"},
		{RowID: "3", Date: "2025-06-02", Item: "Eggs", Price: "2"},
	}

	valid, invalid := ValidateRows(rows)
	if len(valid) != 2 {
		t.Errorf("valid count = %d, want 2", len(valid))
	}
	if len(invalid) != 1 {
		t.Fatalf("invalid count = %d, want 1", len(invalid))
	}
	if invalid[0].RowID != "2" {
		t.Errorf("invalid RowID = %q, want %q", invalid[0].RowID, "2")
	}
}

func TestMapHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    Columns
	}{
		{
			name:    "canonical names",
			headers: []string{"Date", "Item", "Category", "Quantity", "Price", "Notes", "Payment Mode"},
			want:    Columns{Date: 0, Item: 1, Category: 2, Quantity: 3, Price: 4, Notes: 5, PaymentMode: 6},
		},
		{
			name:    "aliases and unknowns",
			headers: []string{"date", "product", "qty", "amount", "owner", "payment_method"},
			want:    Columns{Date: 0, Item: 1, Category: -1, Quantity: 2, Price: 3, Notes: -1, PaymentMode: 5},
		},
		{
			name:    "empty header",
			headers: nil,
			want:    Columns{Date: -1, Item: -1, Category: -1, Quantity: -1, Price: -1, Notes: -1, PaymentMode: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapHeaders(tt.headers); got != tt.want {
				t.Errorf("MapHeaders() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestColumnsRowHandlesShortRecords(t *testing.T) {
	cols := MapHeaders([]string{"Date", "Item", "Price", "Notes"})
	ingested := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)

	row := cols.Row("csv", "4", []string{"2025-06-01", "Milk"}, ingested)
	if row.Date != "2025-06-01" || row.Item != "Milk" {
		t.Errorf("mapped fields wrong: %+v", row)
	}
	if row.Price != "" || row.Notes != "" {
		t.Errorf("out-of-range columns should be empty: %+v", row)
	}
	if row.SourceSystem != "csv" || row.RowID != "4" || !row.IngestedAt.Equal(ingested) {
		t.Errorf("row metadata wrong: %+v", row)
	}
}
