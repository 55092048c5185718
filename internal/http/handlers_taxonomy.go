package http

import (
	"cmp"
	"net/http"
	"slices"

	"gastos/internal/core"
	applog "gastos/internal/log"
)

// Categories

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.store.Categories()
	out := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryView(c))
	}
	NewJSONResponse().Data(out).Write(w)
}

// handleCategoryExpenses lists a category's expenses for ?month= with their
// total.
func (s *Server) handleCategoryExpenses(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonthQuery(r, s.store.Today())
	if err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	cats := s.store.Categories()
	i := slices.IndexFunc(cats, func(c core.Category) bool { return c.ID == r.PathValue("id") })
	if i < 0 {
		NotFoundError("category not found").Write(w)
		return
	}
	d := s.store.CategoryExpenses(cats[i].Name, month, accountQuery(r))
	NewJSONResponse().Data(categoryDetailView{
		Category: newCategoryView(cats[i]),
		Month:    d.Month,
		Total:    newAmountView(d.Total),
		Expenses: newExpenseViews(d.Expenses),
	}).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	c, err := s.store.AddCategory(r.Context(), sanitizeInput(req.Name), req.Color, sanitizeInput(req.Icon))
	if err != nil {
		s.logWriteError(r, "Failed to create category", applog.OpCreate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(newCategoryView(c)).Write(w)
}

// handleUpdateCategory renames or recolors a category. Expenses filed under
// the old name follow the rename.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	c := core.Category{
		ID:    r.PathValue("id"),
		Name:  sanitizeInput(req.Name),
		Color: req.Color,
		Icon:  sanitizeInput(req.Icon),
	}
	// Omitted color and icon keep their stored values.
	cats := s.store.Categories()
	if i := slices.IndexFunc(cats, func(x core.Category) bool { return x.ID == c.ID }); i >= 0 {
		c.Color = cmp.Or(c.Color, cats[i].Color)
		c.Icon = cmp.Or(c.Icon, cats[i].Icon)
	}
	c, err := s.store.UpdateCategory(r.Context(), c)
	if err != nil {
		s.logWriteError(r, "Failed to update category", applog.OpUpdate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Data(newCategoryView(c)).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		s.logWriteError(r, "Failed to delete category", applog.OpDelete, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// Accounts

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accs := s.store.Accounts()
	out := make([]accountView, 0, len(accs))
	for _, a := range accs {
		out = append(out, newAccountView(a))
	}
	NewJSONResponse().Data(out).Write(w)
}

func (s *Server) handleAccountSummaries(w http.ResponseWriter, r *http.Request) {
	sums := s.store.AccountSummaries()
	out := make([]accountSummaryView, 0, len(sums))
	for _, sum := range sums {
		out = append(out, accountSummaryView{
			Account:      newAccountView(sum.Account),
			Total:        newAmountView(sum.Total),
			ExpenseCount: sum.ExpenseCount,
		})
	}
	NewJSONResponse().Data(out).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	a, err := s.store.AddAccount(r.Context(), sanitizeInput(req.Name), req.Color)
	if err != nil {
		s.logWriteError(r, "Failed to create account", applog.OpCreate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(newAccountView(a)).Write(w)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	a := core.Account{
		ID:    r.PathValue("id"),
		Name:  sanitizeInput(req.Name),
		Color: req.Color,
	}
	accs := s.store.Accounts()
	if i := slices.IndexFunc(accs, func(x core.Account) bool { return x.ID == a.ID }); i >= 0 {
		a.Color = cmp.Or(a.Color, accs[i].Color)
	}
	a, err := s.store.UpdateAccount(r.Context(), a)
	if err != nil {
		s.logWriteError(r, "Failed to update account", applog.OpUpdate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Data(newAccountView(a)).Write(w)
}

func (s *Server) handleSetDefaultAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.SetDefaultAccount(r.Context(), r.PathValue("id")); err != nil {
		s.logWriteError(r, "Failed to set default account", applog.OpUpdate, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		s.logWriteError(r, "Failed to delete account", applog.OpDelete, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
