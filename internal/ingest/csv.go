package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"smartbudget/internal/core"
)

// CSVSource reads raw rows from a local CSV export. The first line is
// the header; row ids are the 1-based data row positions, which is the
// natural key the expense id derives from.
type CSVSource struct {
	path string
	now  func() time.Time
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path, now: time.Now}
}

func (s *CSVSource) System() string { return core.SourceCSV }

func (s *CSVSource) Fetch(ctx context.Context) ([]core.RawRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", s.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := MapHeaders(records[0])
	ingestedAt := s.now()

	rows := make([]core.RawRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows = append(rows, cols.Row(s.System(), strconv.Itoa(i+1), record, ingestedAt))
	}
	return rows, nil
}
