package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"smartbudget/internal/core"
)

// Row validation is data, not control flow: every raw row yields a
// tagged Result carrying either a typed Record or a RowError. Invalid
// rows are skipped by the caller, never fatal to the batch.

type (
	// Record is a raw row that passed type and business-rule checks.
	Record struct {
		Date        time.Time
		Item        string
		Category    string
		Quantity    *float64
		Price       *float64
		Note        string
		PaymentMode string
	}

	// RowError carries the original row and a human-readable reason.
	RowError struct {
		RowID  string
		Reason string
		Raw    core.RawRow
	}

	Result struct {
		Record *Record
		Err    *RowError
	}
)

func (r Result) Valid() bool { return r.Err == nil }

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2006/01/02",
}

// ValidateRow applies the cleaning and business rules to one raw row.
func ValidateRow(row core.RawRow) Result {
	fail := func(reason string) Result {
		return Result{Err: &RowError{RowID: row.RowID, Reason: reason, Raw: row}}
	}

	date, err := parseDate(row.Date)
	if err != nil {
		return fail(err.Error())
	}

	quantity, err := parseQuantity(row.Quantity)
	if err != nil {
		return fail(err.Error())
	}

	price, err := parsePrice(row.Price)
	if err != nil {
		return fail(err.Error())
	}

	item := cleanText(row.Item)
	note := cleanText(row.Notes)

	if item == "" && note == "" {
		return fail("either item or note must be provided")
	}
	if quantity != nil && *quantity < 0 {
		return fail("quantity cannot be negative")
	}
	if price != nil && *price < 0 {
		return fail("price cannot be negative")
	}

	return Result{Record: &Record{
		Date:        date,
		Item:        item,
		Category:    cleanText(row.Category),
		Quantity:    quantity,
		Price:       price,
		Note:        note,
		PaymentMode: cleanText(row.PaymentMode),
	}}
}

// ValidateRows splits a batch into valid records and error records,
// keeping the input order within each slice.
func ValidateRows(rows []core.RawRow) (valid []Record, invalid []RowError) {
	for _, row := range rows {
		res := ValidateRow(row)
		if res.Valid() {
			valid = append(valid, *res.Record)
		} else {
			invalid = append(invalid, *res.Err)
		}
	}
	return valid, invalid
}

func cleanText(s string) string {
	return strings.TrimSpace(s)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format: %q", s)
}

// parseQuantity accepts integer and float spellings ("3", "3.0"),
// which spreadsheets produce interchangeably.
func parseQuantity(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity: %q", s)
	}
	return &q, nil
}

// parsePrice strips currency symbols and separators before parsing,
// accepting spellings like "$10.50" or "10.5".
func parsePrice(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	p, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price: %q", s)
	}
	return &p, nil
}
