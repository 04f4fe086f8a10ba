package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"smartbudget/internal/core"
)

// apiTimeLayout matches the persisted naive local timestamp format.
const apiTimeLayout = "2006-01-02 15:04:05"

type expensePayload struct {
	OccurredAt    string   `json:"occurred_at"`
	ProductName   string   `json:"product_name"`
	Quantity      *float64 `json:"quantity,omitempty"`
	UnitPrice     *float64 `json:"unit_price,omitempty"`
	Amount        float64  `json:"amount"`
	CategoryID    *int64   `json:"category_id,omitempty"`
	PaymentModeID *int64   `json:"payment_mode_id,omitempty"`
	Notes         *string  `json:"notes,omitempty"`
	SourceSystem  string   `json:"source_system"`
	SourceRowID   string   `json:"source_row_id"`
}

type expenseResponse struct {
	ID int64 `json:"id"`
	expensePayload
}

func toResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID: e.ID,
		expensePayload: expensePayload{
			OccurredAt:    e.OccurredAt.Format(apiTimeLayout),
			ProductName:   e.ProductName,
			Quantity:      e.Quantity,
			UnitPrice:     e.UnitPrice,
			Amount:        e.Amount,
			CategoryID:    e.CategoryID,
			PaymentModeID: e.PaymentModeID,
			Notes:         e.Notes,
			SourceSystem:  e.SourceSystem,
			SourceRowID:   e.SourceRowID,
		},
	}
}

func (s *server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.ListExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List expenses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list expenses failed")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleAppendExpense(w http.ResponseWriter, r *http.Request) {
	var payload expensePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if reason := validatePayload(payload); reason != "" {
		writeError(w, http.StatusUnprocessableEntity, reason)
		return
	}

	occurredAt, err := parseOccurredAt(payload.OccurredAt)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid occurred_at")
		return
	}

	expense := core.Expense{
		ID:            core.ExpenseID(payload.SourceSystem, payload.SourceRowID),
		OccurredAt:    occurredAt,
		ProductName:   payload.ProductName,
		Quantity:      payload.Quantity,
		UnitPrice:     payload.UnitPrice,
		Amount:        payload.Amount,
		CategoryID:    payload.CategoryID,
		PaymentModeID: payload.PaymentModeID,
		Notes:         payload.Notes,
		SourceSystem:  payload.SourceSystem,
		SourceRowID:   payload.SourceRowID,
	}

	if err := s.store.UpsertExpense(r.Context(), expense); err != nil {
		slog.ErrorContext(r.Context(), "Append expense failed", "error", err, "id", expense.ID)
		writeError(w, http.StatusInternalServerError, "store expense failed")
		return
	}

	slog.InfoContext(r.Context(), "Expense appended",
		"id", expense.ID,
		"product_name", expense.ProductName,
		"amount", expense.Amount)

	writeJSON(w, http.StatusCreated, toResponse(expense))
}

func validatePayload(p expensePayload) string {
	if strings.TrimSpace(p.ProductName) == "" {
		return "product_name is required"
	}
	if p.Amount <= 0 {
		return "amount must be positive"
	}
	if strings.TrimSpace(p.SourceSystem) == "" {
		return "source_system is required"
	}
	if strings.TrimSpace(p.SourceRowID) == "" {
		return "source_row_id is required"
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return "quantity cannot be negative"
	}
	if p.UnitPrice != nil && *p.UnitPrice < 0 {
		return "unit_price cannot be negative"
	}
	return ""
}

func parseOccurredAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(apiTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
