package http

import (
	"context"
	"net/http"
	"time"

	"smartbudget/internal/core"
)

// ExpenseStore is the persistence surface the record API needs.
type ExpenseStore interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	UpsertExpense(ctx context.Context, e core.Expense) error
}

// NewServer builds the record API server. The surface is deliberately
// minimal: list expenses, append one expense. No category resolution
// happens at this boundary; an enrichment pass runs before scoring
// sees the record.
func NewServer(addr string, store ExpenseStore) *http.Server {
	s := &server{store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/expenses", s.handleExpenses)

	return &http.Server{
		Addr:           addr,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
}

type server struct {
	store ExpenseStore
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListExpenses(w, r)
	case http.MethodPost:
		s.handleAppendExpense(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
