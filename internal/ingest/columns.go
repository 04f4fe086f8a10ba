package ingest

import (
	"strings"
	"time"

	"smartbudget/internal/core"
)

// Columns maps the logical ingestion columns to their positions in a
// source's header row. Column names vary by source; aliasing is the
// reader's responsibility, so every known alias resolves here.
type Columns struct {
	Date        int
	Item        int
	Category    int
	Quantity    int
	Price       int
	Notes       int
	PaymentMode int
}

var columnAliases = map[string]string{
	"date":           "date",
	"item":           "item",
	"product":        "item",
	"description":    "item",
	"category":       "category",
	"quantity":       "quantity",
	"qty":            "quantity",
	"price":          "price",
	"amount":         "price",
	"note":           "notes",
	"notes":          "notes",
	"payment method": "payment_mode",
	"payment_method": "payment_mode",
	"payment mode":   "payment_mode",
	"payment_mode":   "payment_mode",
}

// MapHeaders resolves a header row to column positions. Unknown
// headers are ignored; missing logical columns stay at -1.
func MapHeaders(headers []string) Columns {
	cols := Columns{Date: -1, Item: -1, Category: -1, Quantity: -1, Price: -1, Notes: -1, PaymentMode: -1}
	for i, h := range headers {
		logical, ok := columnAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		switch logical {
		case "date":
			cols.Date = i
		case "item":
			cols.Item = i
		case "category":
			cols.Category = i
		case "quantity":
			cols.Quantity = i
		case "price":
			cols.Price = i
		case "notes":
			cols.Notes = i
		case "payment_mode":
			cols.PaymentMode = i
		}
	}
	return cols
}

// Row builds a RawRow from one record using the mapped positions.
func (c Columns) Row(sourceSystem, rowID string, values []string, ingestedAt time.Time) core.RawRow {
	get := func(idx int) string {
		if idx < 0 || idx >= len(values) {
			return ""
		}
		return values[idx]
	}
	return core.RawRow{
		SourceSystem: sourceSystem,
		RowID:        rowID,
		IngestedAt:   ingestedAt,
		Date:         get(c.Date),
		Item:         get(c.Item),
		Category:     get(c.Category),
		Quantity:     get(c.Quantity),
		Price:        get(c.Price),
		Notes:        get(c.Notes),
		PaymentMode:  get(c.PaymentMode),
	}
}
