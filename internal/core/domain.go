package core

import (
	"errors"
	"time"
)

// Priority buckets over the normalized decayed score.
const (
	BucketHigh   = "High"
	BucketMedium = "Medium"
	BucketLow    = "Low"
)

// Source systems known to the pipeline.
const (
	SourceGoogleSheets = "google_sheets"
	SourceCSV          = "csv"
)

type (
	// Expense is the canonical expense row. The id is derived from the
	// source row's natural key, so re-ingestion upserts instead of
	// duplicating.
	Expense struct {
		ID            int64
		OccurredAt    time.Time
		ProductName   string
		Quantity      *float64
		UnitPrice     *float64
		Amount        float64
		CategoryID    *int64
		PaymentModeID *int64
		Notes         *string
		SourceSystem  string
		SourceRowID   string
	}

	Category struct {
		ID          int64
		Name        string
		Description *string
	}

	// Label is free-standing taxonomy, independent of category.
	Label struct {
		ID   int64
		Name string
	}

	// LabelWeight is one effective-dated weight row. EffectiveTo nil
	// marks the currently active row; at most one per label.
	LabelWeight struct {
		LabelID       int64
		Weight        float64
		EffectiveFrom time.Time
		EffectiveTo   *time.Time
	}

	PaymentMode struct {
		ID   int64
		Name string
	}

	// UnmappedCategory is a write-once audit row for raw category
	// values with no mapping at ingestion time.
	UnmappedCategory struct {
		RawValue     string
		SourceSystem string
		FirstSeenAt  time.Time
	}

	// RawRow is one untyped row as staged by an ingestion source.
	// Values are kept verbatim; typing happens in row validation.
	RawRow struct {
		SourceSystem string
		RowID        string
		IngestedAt   time.Time
		Date         string
		Item         string
		Category     string
		Quantity     string
		Price        string
		Notes        string
		PaymentMode  string
	}

	Recommendation struct {
		ID               int64
		GeneratedAt      time.Time
		Message          string
		Confidence       float64
		RelatedExpenseID int64
	}
)

var (
	// ErrLabelNotFound is returned by taxonomy lifecycle operations
	// that reference a label name that does not exist.
	ErrLabelNotFound = errors.New("label not found")

	// ErrNoScores signals that normalization is undefined because no
	// expense has a positive priority score.
	ErrNoScores = errors.New("no scored expenses to normalize")
)

// NeutralWeight applies when an expense has no labeled weight.
const NeutralWeight = 1.0

// DecayRate is the per-month recency decay applied to priority scores.
const DecayRate = 0.6

// Bucket thresholds over the normalized score. Fixed, not per-run.
const (
	HighThreshold   = 0.7
	MediumThreshold = 0.4
)

// BucketFor maps a normalized score to its priority bucket.
func BucketFor(scoreNorm float64) string {
	switch {
	case scoreNorm > HighThreshold:
		return BucketHigh
	case scoreNorm > MediumThreshold:
		return BucketMedium
	default:
		return BucketLow
	}
}

// MonthsBetween counts calendar month boundaries crossed between from
// and now, clamped at zero for future-dated rows.
func MonthsBetween(from, now time.Time) int {
	months := (now.Year()-from.Year())*12 + int(now.Month()) - int(from.Month())
	if months < 0 {
		return 0
	}
	return months
}
