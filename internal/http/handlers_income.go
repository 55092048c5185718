package http

import (
	"net/http"

	"gastos/internal/core"
	applog "gastos/internal/log"
)

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, s.store.Today())
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	xs := s.store.Incomes(month, accountQuery(r))
	NewJSONResponse().Data(newIncomeViews(xs)).Write(w)
}

// handleIncomeHistory returns every income grouped by month, newest first.
func (s *Server) handleIncomeHistory(w http.ResponseWriter, r *http.Request) {
	h := s.store.IncomeHistory(accountQuery(r))
	NewJSONResponse().Data(newIncomeHistoryView(h)).Write(w)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	ctx := r.Context()
	in, err := s.store.AddIncome(ctx, core.Income{
		Amount:      req.Amount.Money(),
		Description: sanitizeInput(req.Description),
		Date:        mustDate(req.Date),
		AccountID:   sanitizeInput(req.AccountID),
	})
	if err != nil {
		s.logWriteError(r, "Failed to save income", applog.OpCreate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Income created",
		applog.FieldRecordID, in.ID,
		applog.FieldMonth, in.Date.MonthKey(),
		applog.FieldAmountCents, in.Amount.Cents)
	NewJSONResponse().Status(http.StatusCreated).Data(newIncomeView(in)).Write(w)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	in, err := s.store.UpdateIncome(r.Context(), core.Income{
		ID:          r.PathValue("id"),
		Amount:      req.Amount.Money(),
		Description: sanitizeInput(req.Description),
		Date:        mustDate(req.Date),
		AccountID:   sanitizeInput(req.AccountID),
	})
	if err != nil {
		s.logWriteError(r, "Failed to update income", applog.OpUpdate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Data(newIncomeView(in)).Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteIncome(r.Context(), r.PathValue("id")); err != nil {
		s.logWriteError(r, "Failed to delete income", applog.OpDelete, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleTransfer records a movement between two accounts as a paired
// expense and income.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}

	ctx := r.Context()
	e, in, err := s.store.Transfer(ctx, req.From, req.To, req.Amount.Money(), sanitizeInput(req.Description), mustDate(req.Date))
	if err != nil {
		s.logWriteError(r, "Failed to record transfer", applog.OpTransfer, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Transfer recorded",
		applog.FieldAccountID, req.From,
		"to_account_id", req.To,
		applog.FieldAmountCents, e.Amount.Cents)
	NewJSONResponse().Status(http.StatusCreated).Data(transferView{
		Expense: newExpenseView(e),
		Income:  newIncomeView(in),
	}).Write(w)
}
