package memory

import (
	"context"
	"sync"

	"smartbudget/internal/core"
	"smartbudget/internal/ingest"
)

// Source is an in-memory raw-row source for tests and local runs
// without external credentials.
type Source struct {
	mu     sync.Mutex
	system string
	rows   []core.RawRow
}

var _ ingest.Source = (*Source)(nil)

func New(system string, rows []core.RawRow) *Source {
	copied := append([]core.RawRow(nil), rows...)
	for i := range copied {
		copied[i].SourceSystem = system
	}
	return &Source{system: system, rows: copied}
}

func (s *Source) System() string { return s.system }

func (s *Source) Fetch(_ context.Context) ([]core.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.RawRow(nil), s.rows...), nil
}

// Replace swaps the source content, simulating a fresh export.
func (s *Source) Replace(rows []core.RawRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := append([]core.RawRow(nil), rows...)
	for i := range copied {
		copied[i].SourceSystem = s.system
	}
	s.rows = copied
}
