package core

// CategoryTotal is a category joined with the sum of its expenses for a month.
type CategoryTotal struct {
	Category Category
	Total    Money
}

// MonthOverview is a compact summary for a specific year+month, optionally
// restricted to one account.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	AccountID  string
	Income     Money
	Expenses   Money
	Balance    Money
	ByCategory []CategoryTotal
}

// AccountSummary is the per-account rollup shown on the accounts page.
type AccountSummary struct {
	Account      Account
	Total        Money
	ExpenseCount int
}

// Period classifies a month relative to the current one.
type Period string

const (
	PeriodPast    Period = "past"
	PeriodCurrent Period = "current"
	PeriodFuture  Period = "future"
)

// MonthTotal is one month of a projection window.
type MonthTotal struct {
	Month  string // YYYY-MM
	Total  Money
	Period Period
}

// WindowSummary splits a projection window's totals by period.
type WindowSummary struct {
	Past    Money
	Current Money
	Future  Money
}

// CategoryDetail is one category's expenses for a month, newest first.
type CategoryDetail struct {
	Category string
	Month    string // YYYY-MM
	Expenses []Expense
	Total    Money
}

// MonthIncomes groups the incomes filed under one month.
type MonthIncomes struct {
	Month   string // YYYY-MM
	Incomes []Income
	Total   Money
}

// IncomeHistory is every income grouped by month, newest month first.
type IncomeHistory struct {
	Months []MonthIncomes
	Total  Money
	Count  int
}
