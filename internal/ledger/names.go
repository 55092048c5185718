package ledger

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"gastos/internal/core"
)

// foldName is the comparison key for name uniqueness: trimmed and case folded.
func foldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func checkName(name string, taken func(key string) bool) error {
	if strings.TrimSpace(name) == "" {
		return core.ErrEmptyName
	}
	if taken(foldName(name)) {
		return fmt.Errorf("%q: %w", strings.TrimSpace(name), core.ErrDuplicateName)
	}
	return nil
}

// CheckCategoryName rejects empty names and names that collide,
// case-insensitively, with a category other than exceptID.
func CheckCategoryName(categories []core.Category, name, exceptID string) error {
	return checkName(name, func(key string) bool {
		return slices.ContainsFunc(categories, func(c core.Category) bool {
			return c.ID != exceptID && foldName(c.Name) == key
		})
	})
}

// CheckAccountName is CheckCategoryName for accounts.
func CheckAccountName(accounts []core.Account, name, exceptID string) error {
	return checkName(name, func(key string) bool {
		return slices.ContainsFunc(accounts, func(a core.Account) bool {
			return a.ID != exceptID && foldName(a.Name) == key
		})
	})
}

// RenameCategory renames category id and rewrites the category of every
// expense filed under the old name. Expenses join categories by name, so the
// cascade is what keeps past months aggregating correctly. The inputs are not
// modified; only the changed expenses are returned in renamed.
func RenameCategory(categories []core.Category, expenses []core.Expense, id, newName string) (cats []core.Category, renamed []core.Expense, err error) {
	i := slices.IndexFunc(categories, func(c core.Category) bool { return c.ID == id })
	if i < 0 {
		return nil, nil, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err := CheckCategoryName(categories, newName, id); err != nil {
		return nil, nil, err
	}
	if err := (core.Category{Name: newName}).Validate(); err != nil {
		return nil, nil, err
	}

	newName = strings.TrimSpace(newName)
	oldName := categories[i].Name
	cats = slices.Clone(categories)
	cats[i].Name = newName
	if oldName == newName {
		return cats, nil, nil
	}
	for _, e := range expenses {
		if e.Category == oldName {
			e.Category = newName
			renamed = append(renamed, e)
		}
	}
	return cats, renamed, nil
}

// ApplyRenamed replaces expenses by id with their renamed versions.
func ApplyRenamed(expenses, renamed []core.Expense) []core.Expense {
	if len(renamed) == 0 {
		return expenses
	}
	byID := make(map[string]core.Expense, len(renamed))
	for _, e := range renamed {
		byID[e.ID] = e
	}
	out := slices.Clone(expenses)
	for i, e := range out {
		if r, ok := byID[e.ID]; ok {
			out[i] = r
		}
	}
	return out
}

// DeleteCategory removes category id unless an expense still references it
// by name, in which case a *core.DependentsError is returned. Expenses are
// never deleted along with it.
func DeleteCategory(categories []core.Category, expenses []core.Expense, id string) ([]core.Category, error) {
	i := slices.IndexFunc(categories, func(c core.Category) bool { return c.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	name := categories[i].Name
	n := countFunc(expenses, func(e core.Expense) bool { return e.Category == name })
	if n > 0 {
		return nil, &core.DependentsError{Kind: "category", Ref: name, Count: n}
	}
	return slices.Delete(slices.Clone(categories), i, i+1), nil
}

// DeleteAccount removes account id unless it is the default account or an
// expense still references it.
func DeleteAccount(accounts []core.Account, expenses []core.Expense, id string) ([]core.Account, error) {
	i := slices.IndexFunc(accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if accounts[i].Default {
		return nil, core.ErrDefaultAccount
	}
	n := countFunc(expenses, func(e core.Expense) bool { return e.AccountID == id })
	if n > 0 {
		return nil, &core.DependentsError{Kind: "account", Ref: id, Count: n}
	}
	return slices.Delete(slices.Clone(accounts), i, i+1), nil
}

// DefaultAccountID returns the id of the account flagged as default, or "".
func DefaultAccountID(accounts []core.Account) string {
	for _, a := range accounts {
		if a.Default {
			return a.ID
		}
	}
	return ""
}

// SortAccountsByName orders accounts by name using Spanish collation,
// ignoring case and accents, so "árbol" sorts next to "arroz".
func SortAccountsByName(accounts []core.Account) {
	col := collate.New(language.Spanish, collate.IgnoreCase, collate.IgnoreDiacritics)
	sort.SliceStable(accounts, func(i, j int) bool {
		return col.CompareString(accounts[i].Name, accounts[j].Name) < 0
	})
}

// SortExpensesByDateDesc orders newest first; same-day records keep their order.
func SortExpensesByDateDesc(xs []core.Expense) {
	sort.SliceStable(xs, func(i, j int) bool { return xs[i].Date.After(xs[j].Date.Time) })
}

func SortIncomesByDateDesc(xs []core.Income) {
	sort.SliceStable(xs, func(i, j int) bool { return xs[i].Date.After(xs[j].Date.Time) })
}

// AccountSummaries totals every expense per account, in account order.
func AccountSummaries(accounts []core.Account, expenses []core.Expense) []core.AccountSummary {
	idx := make(map[string]int, len(accounts))
	out := make([]core.AccountSummary, len(accounts))
	for i, a := range accounts {
		idx[a.ID] = i
		out[i].Account = a
	}
	for _, e := range expenses {
		if i, ok := idx[e.AccountID]; ok {
			out[i].Total = out[i].Total.Add(e.Amount)
			out[i].ExpenseCount++
		}
	}
	return out
}

func countFunc[T any](xs []T, f func(T) bool) int {
	n := 0
	for _, x := range xs {
		if f(x) {
			n++
		}
	}
	return n
}
