package http

import "gastos/internal/core"

// JSON shapes returned by the API. Amounts are sent both as cents and as a
// plain decimal string so clients never do float math.

type amountView struct {
	Cents   int64  `json:"cents"`
	Decimal string `json:"decimal"`
	Display string `json:"display"`
}

func newAmountView(m core.Money) amountView {
	return amountView{Cents: m.Cents, Decimal: m.String(), Display: m.Format()}
}

type installmentView struct {
	Current        int        `json:"current"`
	Total          int        `json:"total"`
	OriginalAmount amountView `json:"originalAmount"`
}

type expenseView struct {
	ID          string           `json:"id"`
	Amount      amountView       `json:"amount"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Date        string           `json:"date"`
	AccountID   string           `json:"accountId"`
	Installment *installmentView `json:"installment,omitempty"`
}

func newExpenseView(e core.Expense) expenseView {
	v := expenseView{
		ID:          e.ID,
		Amount:      newAmountView(e.Amount),
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.String(),
		AccountID:   e.AccountID,
	}
	if in, ok := e.InstallmentInfo(); ok {
		v.Installment = &installmentView{
			Current:        in.Current,
			Total:          in.Total,
			OriginalAmount: newAmountView(in.OriginalAmount),
		}
	}
	return v
}

func newExpenseViews(xs []core.Expense) []expenseView {
	out := make([]expenseView, 0, len(xs))
	for _, e := range xs {
		out = append(out, newExpenseView(e))
	}
	return out
}

type incomeView struct {
	ID          string     `json:"id"`
	Amount      amountView `json:"amount"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
	AccountID   string     `json:"accountId"`
}

func newIncomeView(in core.Income) incomeView {
	return incomeView{
		ID:          in.ID,
		Amount:      newAmountView(in.Amount),
		Description: in.Description,
		Date:        in.Date.String(),
		AccountID:   in.AccountID,
	}
}

func newIncomeViews(xs []core.Income) []incomeView {
	out := make([]incomeView, 0, len(xs))
	for _, in := range xs {
		out = append(out, newIncomeView(in))
	}
	return out
}

type categoryView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon,omitempty"`
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon}
}

type categoryDetailView struct {
	Category categoryView  `json:"category"`
	Month    string        `json:"month"`
	Total    amountView    `json:"total"`
	Expenses []expenseView `json:"expenses"`
}

type incomeMonthView struct {
	Month   string       `json:"month"`
	Total   amountView   `json:"total"`
	Incomes []incomeView `json:"incomes"`
}

type incomeHistoryView struct {
	Months []incomeMonthView `json:"months"`
	Total  amountView        `json:"total"`
	Count  int               `json:"count"`
}

func newIncomeHistoryView(h core.IncomeHistory) incomeHistoryView {
	out := incomeHistoryView{
		Months: make([]incomeMonthView, 0, len(h.Months)),
		Total:  newAmountView(h.Total),
		Count:  h.Count,
	}
	for _, m := range h.Months {
		out.Months = append(out.Months, incomeMonthView{
			Month:   m.Month,
			Total:   newAmountView(m.Total),
			Incomes: newIncomeViews(m.Incomes),
		})
	}
	return out
}

type accountView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Default bool   `json:"default"`
}

func newAccountView(a core.Account) accountView {
	return accountView{ID: a.ID, Name: a.Name, Color: a.Color, Default: a.Default}
}

type accountSummaryView struct {
	Account      accountView `json:"account"`
	Total        amountView  `json:"total"`
	ExpenseCount int         `json:"expenseCount"`
}

type categoryTotalView struct {
	Category categoryView `json:"category"`
	Total    amountView   `json:"total"`
}

type overviewView struct {
	Month      string              `json:"month"`
	AccountID  string              `json:"accountId,omitempty"`
	Income     amountView          `json:"income"`
	Expenses   amountView          `json:"expenses"`
	Balance    amountView          `json:"balance"`
	ByCategory []categoryTotalView `json:"byCategory"`
}

func newOverviewView(ov core.MonthOverview) overviewView {
	v := overviewView{
		Month:      core.NewDate(ov.Year, ov.Month, 1).MonthKey(),
		AccountID:  ov.AccountID,
		Income:     newAmountView(ov.Income),
		Expenses:   newAmountView(ov.Expenses),
		Balance:    newAmountView(ov.Balance),
		ByCategory: make([]categoryTotalView, 0, len(ov.ByCategory)),
	}
	for _, ct := range ov.ByCategory {
		v.ByCategory = append(v.ByCategory, categoryTotalView{
			Category: newCategoryView(ct.Category),
			Total:    newAmountView(ct.Total),
		})
	}
	return v
}

type monthTotalView struct {
	Month  string      `json:"month"`
	Total  amountView  `json:"total"`
	Period core.Period `json:"period"`
}

type projectionView struct {
	AccountID string           `json:"accountId,omitempty"`
	Months    []monthTotalView `json:"months"`
	Past      amountView       `json:"past"`
	Current   amountView       `json:"current"`
	Future    amountView       `json:"future"`
}

type transferView struct {
	Expense expenseView `json:"expense"`
	Income  incomeView  `json:"income"`
}

type sessionView struct {
	UserID           string `json:"userId,omitempty"`
	SignedIn         bool   `json:"signedIn"`
	DefaultAccountID string `json:"defaultAccountId,omitempty"`
}
