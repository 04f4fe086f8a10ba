package worker

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartbudget/internal/amqp"
	"smartbudget/internal/core"
	"smartbudget/internal/ingest"
	"smartbudget/internal/services"
	"smartbudget/internal/sheets/memory"
	"smartbudget/internal/storage"
)

func newTestWorker(t *testing.T) (*PipelineWorker, *storage.Repository) {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	source := memory.New(core.SourceGoogleSheets, []core.RawRow{
		{RowID: "1", IngestedAt: time.Now(), Date: "2025-06-01", Item: "Weekly shop",
			Category: "supermarket", Price: "30"},
	})
	pipeline := services.NewPipeline(repo)
	return NewPipelineWorker(pipeline, []ingest.Source{source}), repo
}

func TestHandleRunMessage(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	handler := w.HandleRunMessage(ctx)

	msg := amqp.NewPipelineRunMessage(core.SourceGoogleSheets)
	if err := handler(msg); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	count, err := repo.CountExpenses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expense count = %d, want 1 after handled run", count)
	}
}

func TestHandleRunMessageUnknownSource(t *testing.T) {
	w, _ := newTestWorker(t)
	handler := w.HandleRunMessage(context.Background())

	err := handler(amqp.NewPipelineRunMessage("ledger"))
	if err == nil || !strings.Contains(err.Error(), "no source registered") {
		t.Errorf("err = %v, want unknown-source failure", err)
	}
}
