package http

import (
	"net/http"

	"gastos/internal/core"
	applog "gastos/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, s.store.Today())
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	if category := sanitizeInput(r.URL.Query().Get("category")); category != "" {
		d := s.store.CategoryExpenses(category, month, accountQuery(r))
		NewJSONResponse().Data(newExpenseViews(d.Expenses)).Write(w)
		return
	}
	xs := s.store.Expenses(month, accountQuery(r))
	NewJSONResponse().Data(newExpenseViews(xs)).Write(w)
}

// handleCreateExpense stores one expense, or a run of monthly installments
// when "installments" is present.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	ctx := r.Context()
	date := mustDate(req.Date)
	category := sanitizeInput(req.Category)
	desc := sanitizeInput(req.Description)
	account := sanitizeInput(req.AccountID)

	if req.Installments > 0 {
		xs, err := s.store.AddInstallmentExpense(ctx, req.Amount.Money(), category, desc, req.Installments, date, account)
		if err != nil {
			s.logWriteError(r, "Failed to save installment expense", applog.OpCreate, err)
			ErrorFromDomain(err).Write(w)
			return
		}
		applog.FromContext(ctx).InfoContext(ctx, "Installment expense created",
			applog.FieldCategory, category,
			applog.FieldAmountCents, req.Amount.Money().Cents,
			applog.FieldCount, len(xs))
		NewJSONResponse().Status(http.StatusCreated).Data(newExpenseViews(xs)).Write(w)
		return
	}

	e, err := s.store.AddExpense(ctx, core.Expense{
		Amount:      req.Amount.Money(),
		Category:    category,
		Description: desc,
		Date:        date,
		AccountID:   account,
	})
	if err != nil {
		s.logWriteError(r, "Failed to save expense", applog.OpCreate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Expense created",
		applog.FieldRecordID, e.ID,
		applog.FieldMonth, e.Date.MonthKey(),
		applog.FieldAmountCents, e.Amount.Cents)
	NewJSONResponse().Status(http.StatusCreated).Data(newExpenseView(e)).Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	if req.Installments > 0 {
		ErrorFromDomain(&ValidationError{Fields: map[string]string{
			"installments": "cannot be changed on an existing expense",
		}}).Write(w)
		return
	}

	e, err := s.store.UpdateExpense(r.Context(), core.Expense{
		ID:          r.PathValue("id"),
		Amount:      req.Amount.Money(),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        mustDate(req.Date),
		AccountID:   sanitizeInput(req.AccountID),
	})
	if err != nil {
		s.logWriteError(r, "Failed to update expense", applog.OpUpdate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Data(newExpenseView(e)).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		s.logWriteError(r, "Failed to delete expense", applog.OpDelete, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
