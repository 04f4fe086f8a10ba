package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"smartbudget/internal/core"
	"smartbudget/internal/ingest"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Source reads raw expense rows from a Google Sheets tab. Row ids are
// the 1-based data row positions within the sheet, which together with
// the source system form the expense natural key.
type Source struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	now           func() time.Time
}

var _ ingest.Source = (*Source)(nil)

// NewFromEnv creates a Sheets source using environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Auth comes from
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Expense Tracker").
func NewFromEnv(ctx context.Context) (*Source, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Expense Tracker"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Source{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		now:           time.Now,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if credFile == "" {
		credFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsReadonlyScope)}
	if credFile != "" {
		opts = append(opts, goption.WithCredentialsFile(credFile))
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (s *Source) System() string { return core.SourceGoogleSheets }

// Fetch reads the whole sheet and maps it through the shared header
// aliasing. The first row must be the header.
func (s *Source) Fetch(ctx context.Context) ([]core.RawRow, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", s.sheetName, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	cols := ingest.MapHeaders(toStrings(resp.Values[0]))
	ingestedAt := s.now()

	rows := make([]core.RawRow, 0, len(resp.Values)-1)
	for i, values := range resp.Values[1:] {
		rows = append(rows, cols.Row(s.System(), strconv.Itoa(i+1), toStrings(values), ingestedAt))
	}

	slog.InfoContext(ctx, "Fetched raw rows from Google Sheets",
		"spreadsheet_id", s.spreadsheetID,
		"sheet", s.sheetName,
		"count", len(rows))

	return rows, nil
}

func toStrings(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%v", v)
	}
	return out
}
