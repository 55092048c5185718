// Package persistence defines the port the ledger store writes through and
// the shared shapes every backend speaks.
package persistence

import (
	"context"

	"gastos/internal/core"
)

// Record kinds, also used on the wire by the change publisher.
const (
	KindExpense  = "expense"
	KindIncome   = "income"
	KindCategory = "category"
	KindAccount  = "account"
)

type (
	// Snapshot is everything stored for one user.
	Snapshot struct {
		Expenses   []core.Expense
		Incomes    []core.Income
		Categories []core.Category
		Accounts   []core.Account
	}

	// RecordKey addresses an expense or income. Month is the YYYY-MM bucket
	// the record is filed under.
	RecordKey struct {
		Month string
		ID    string
	}

	// ChangeSet is one atomic unit of writes. Puts are upserts.
	ChangeSet struct {
		PutExpenses      []core.Expense
		DeleteExpenses   []RecordKey
		PutIncomes       []core.Income
		DeleteIncomes    []RecordKey
		PutCategories    []core.Category
		DeleteCategories []string
		PutAccounts      []core.Account
		DeleteAccounts   []string
	}

	// Repository is the persistence port. Apply must be all-or-nothing: when
	// it returns an error nothing in the change set was stored.
	Repository interface {
		Load(ctx context.Context, userID string) (Snapshot, error)
		Apply(ctx context.Context, userID string, cs ChangeSet) error
	}
)

// KeyOf returns the storage key of an expense.
func KeyOf(e core.Expense) RecordKey {
	return RecordKey{Month: e.Date.MonthKey(), ID: e.ID}
}

// IncomeKeyOf returns the storage key of an income.
func IncomeKeyOf(i core.Income) RecordKey {
	return RecordKey{Month: i.Date.MonthKey(), ID: i.ID}
}

// Empty reports whether the change set carries no writes.
func (cs ChangeSet) Empty() bool {
	return len(cs.PutExpenses) == 0 && len(cs.DeleteExpenses) == 0 &&
		len(cs.PutIncomes) == 0 && len(cs.DeleteIncomes) == 0 &&
		len(cs.PutCategories) == 0 && len(cs.DeleteCategories) == 0 &&
		len(cs.PutAccounts) == 0 && len(cs.DeleteAccounts) == 0
}

// Size is the number of individual writes in the change set.
func (cs ChangeSet) Size() int {
	return len(cs.PutExpenses) + len(cs.DeleteExpenses) +
		len(cs.PutIncomes) + len(cs.DeleteIncomes) +
		len(cs.PutCategories) + len(cs.DeleteCategories) +
		len(cs.PutAccounts) + len(cs.DeleteAccounts)
}
