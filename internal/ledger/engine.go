// Package ledger holds the aggregation engine: pure functions over a user's
// records that derive month totals, category breakdowns and projections, plus
// the Store that owns the signed-in user's records.
package ledger

import (
	"sort"

	"gastos/internal/core"
)

// AllAccounts disables the account filter.
const AllAccounts = ""

// Default projection window: 6 months back through 5 months ahead.
const (
	ProjectionBack  = 6
	ProjectionAhead = 5
)

func inScope(d core.Date, accountID string, month core.Date, recordAccount string) bool {
	if !d.SameMonth(month) {
		return false
	}
	return accountID == AllAccounts || recordAccount == accountID
}

// ExpensesForMonth returns the expenses dated in month's calendar month. The
// day of month is ignored.
func ExpensesForMonth(xs []core.Expense, month core.Date) []core.Expense {
	return ExpensesForMonthByAccount(xs, month, AllAccounts)
}

// ExpensesForMonthByAccount narrows ExpensesForMonth to one account.
func ExpensesForMonthByAccount(xs []core.Expense, month core.Date, accountID string) []core.Expense {
	var out []core.Expense
	for _, e := range xs {
		if inScope(e.Date, accountID, month, e.AccountID) {
			out = append(out, e)
		}
	}
	return out
}

// IncomesForMonth returns the incomes dated in month's calendar month.
func IncomesForMonth(xs []core.Income, month core.Date) []core.Income {
	return IncomesForMonthByAccount(xs, month, AllAccounts)
}

// IncomesForMonthByAccount narrows IncomesForMonth to one account.
func IncomesForMonthByAccount(xs []core.Income, month core.Date, accountID string) []core.Income {
	var out []core.Income
	for _, in := range xs {
		if inScope(in.Date, accountID, month, in.AccountID) {
			out = append(out, in)
		}
	}
	return out
}

// TotalForMonth sums the expenses of a month, optionally for one account.
func TotalForMonth(xs []core.Expense, month core.Date, accountID string) core.Money {
	var total core.Money
	for _, e := range xs {
		if inScope(e.Date, accountID, month, e.AccountID) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// TotalIncomeForMonth sums the incomes of a month, optionally for one account.
func TotalIncomeForMonth(xs []core.Income, month core.Date, accountID string) core.Money {
	var total core.Money
	for _, in := range xs {
		if inScope(in.Date, accountID, month, in.AccountID) {
			total = total.Add(in.Amount)
		}
	}
	return total
}

// Balance is income minus expenses for the month. It may be negative.
func Balance(incomes []core.Income, expenses []core.Expense, month core.Date, accountID string) core.Money {
	return TotalIncomeForMonth(incomes, month, accountID).Sub(TotalForMonth(expenses, month, accountID))
}

// CategoriesWithTotals joins the month's expenses to the category list by
// name. Categories without expenses in the month are left out; the rest are
// ordered by total, largest first, keeping category list order on ties.
// Expenses whose category name matches no category are not reported.
func CategoriesWithTotals(categories []core.Category, xs []core.Expense, month core.Date, accountID string) []core.CategoryTotal {
	sums := map[string]core.Money{}
	for _, e := range xs {
		if inScope(e.Date, accountID, month, e.AccountID) {
			sums[e.Category] = sums[e.Category].Add(e.Amount)
		}
	}

	out := make([]core.CategoryTotal, 0, len(sums))
	for _, c := range categories {
		total, ok := sums[c.Name]
		if !ok || total.IsZero() {
			continue
		}
		out = append(out, core.CategoryTotal{Category: c, Total: total})
		// A name listed twice must not be counted twice.
		delete(sums, c.Name)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// MonthOverview bundles the month's income, expenses, balance and category
// breakdown.
func MonthOverview(categories []core.Category, incomes []core.Income, expenses []core.Expense, month core.Date, accountID string) core.MonthOverview {
	income := TotalIncomeForMonth(incomes, month, accountID)
	spent := TotalForMonth(expenses, month, accountID)
	return core.MonthOverview{
		Year:       month.Year(),
		Month:      month.Month(),
		AccountID:  accountID,
		Income:     income,
		Expenses:   spent,
		Balance:    income.Sub(spent),
		ByCategory: CategoriesWithTotals(categories, expenses, month, accountID),
	}
}

// ProjectedTotals buckets every expense by its YYYY-MM month. Nothing is
// extrapolated: future months only hold installments already materialized.
func ProjectedTotals(xs []core.Expense, accountID string) map[string]core.Money {
	out := map[string]core.Money{}
	for _, e := range xs {
		if accountID != AllAccounts && e.AccountID != accountID {
			continue
		}
		k := e.Date.MonthKey()
		out[k] = out[k].Add(e.Amount)
	}
	return out
}

// ProjectionWindow reads totals for the months from back months before now
// through ahead months after it. Missing months count as zero.
func ProjectionWindow(totals map[string]core.Money, now core.Date, back, ahead int) []core.MonthTotal {
	if back < 0 {
		back = 0
	}
	if ahead < 0 {
		ahead = 0
	}
	first := now.FirstOfMonth()
	out := make([]core.MonthTotal, 0, back+ahead+1)
	for i := -back; i <= ahead; i++ {
		key := first.AddMonths(i).MonthKey()
		period := core.PeriodCurrent
		switch {
		case i < 0:
			period = core.PeriodPast
		case i > 0:
			period = core.PeriodFuture
		}
		out = append(out, core.MonthTotal{Month: key, Total: totals[key], Period: period})
	}
	return out
}

// SummarizeWindow adds up a projection window by period.
func SummarizeWindow(window []core.MonthTotal) core.WindowSummary {
	var s core.WindowSummary
	for _, m := range window {
		switch m.Period {
		case core.PeriodPast:
			s.Past = s.Past.Add(m.Total)
		case core.PeriodCurrent:
			s.Current = s.Current.Add(m.Total)
		case core.PeriodFuture:
			s.Future = s.Future.Add(m.Total)
		}
	}
	return s
}

// CategoryExpenses returns the month's expenses filed under category, newest
// first, with their total. Category names match exactly, as stored.
func CategoryExpenses(xs []core.Expense, category string, month core.Date, accountID string) core.CategoryDetail {
	d := core.CategoryDetail{Category: category, Month: month.MonthKey()}
	for _, e := range ExpensesForMonthByAccount(xs, month, accountID) {
		if e.Category == category {
			d.Expenses = append(d.Expenses, e)
			d.Total = d.Total.Add(e.Amount)
		}
	}
	SortExpensesByDateDesc(d.Expenses)
	return d
}

// GroupIncomesByMonth buckets incomes by YYYY-MM, newest month first and
// newest income first within a month.
func GroupIncomesByMonth(xs []core.Income, accountID string) core.IncomeHistory {
	var h core.IncomeHistory
	idx := map[string]int{}
	for _, in := range xs {
		if accountID != AllAccounts && in.AccountID != accountID {
			continue
		}
		k := in.Date.MonthKey()
		i, ok := idx[k]
		if !ok {
			i = len(h.Months)
			idx[k] = i
			h.Months = append(h.Months, core.MonthIncomes{Month: k})
		}
		h.Months[i].Incomes = append(h.Months[i].Incomes, in)
		h.Months[i].Total = h.Months[i].Total.Add(in.Amount)
		h.Total = h.Total.Add(in.Amount)
		h.Count++
	}
	sort.Slice(h.Months, func(i, j int) bool { return h.Months[i].Month > h.Months[j].Month })
	for _, m := range h.Months {
		SortIncomesByDateDesc(m.Incomes)
	}
	return h
}
