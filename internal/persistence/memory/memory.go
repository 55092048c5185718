// Package memory is an in-process persistence backend laid out like the
// hosted document store: users hold categories and accounts, and their
// movements are filed under YYYY-MM month buckets.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"gastos/internal/core"
	"gastos/internal/persistence"
)

type userData struct {
	categories []core.Category
	accounts   []core.Account
	expenses   map[string][]core.Expense // month -> records
	incomes    map[string][]core.Income
}

func newUserData() *userData {
	return &userData{
		expenses: map[string][]core.Expense{},
		incomes:  map[string][]core.Income{},
	}
}

// Store keeps every user's records in memory. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	users map[string]*userData
}

var _ persistence.Repository = (*Store)(nil)

func New() *Store {
	return &Store{users: map[string]*userData{}}
}

// Load returns a copy of the user's records, months in ascending order.
func (s *Store) Load(ctx context.Context, userID string) (persistence.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap persistence.Snapshot
	u, ok := s.users[userID]
	if !ok {
		return snap, nil
	}
	snap.Categories = slices.Clone(u.categories)
	snap.Accounts = slices.Clone(u.accounts)
	for _, m := range sortedKeys(u.expenses) {
		snap.Expenses = append(snap.Expenses, u.expenses[m]...)
	}
	for _, m := range sortedKeys(u.incomes) {
		snap.Incomes = append(snap.Incomes, u.incomes[m]...)
	}
	return snap, nil
}

// Apply writes the change set atomically. Deleting a record that does not
// exist fails the whole change set with core.ErrNotFound.
func (s *Store) Apply(ctx context.Context, userID string, cs persistence.ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" {
		return core.ErrNoUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		u = newUserData()
	}
	if err := u.checkDeletes(cs); err != nil {
		return err
	}

	for _, k := range cs.DeleteExpenses {
		u.expenses[k.Month] = slices.DeleteFunc(u.expenses[k.Month], func(e core.Expense) bool { return e.ID == k.ID })
	}
	for _, k := range cs.DeleteIncomes {
		u.incomes[k.Month] = slices.DeleteFunc(u.incomes[k.Month], func(i core.Income) bool { return i.ID == k.ID })
	}
	for _, id := range cs.DeleteCategories {
		u.categories = slices.DeleteFunc(u.categories, func(c core.Category) bool { return c.ID == id })
	}
	for _, id := range cs.DeleteAccounts {
		u.accounts = slices.DeleteFunc(u.accounts, func(a core.Account) bool { return a.ID == id })
	}

	for _, e := range cs.PutExpenses {
		e.UserID = userID
		m := e.Date.MonthKey()
		u.expenses[m] = upsert(u.expenses[m], e, func(x core.Expense) bool { return x.ID == e.ID })
	}
	for _, in := range cs.PutIncomes {
		in.UserID = userID
		m := in.Date.MonthKey()
		u.incomes[m] = upsert(u.incomes[m], in, func(x core.Income) bool { return x.ID == in.ID })
	}
	for _, c := range cs.PutCategories {
		u.categories = upsert(u.categories, c, func(x core.Category) bool { return x.ID == c.ID })
	}
	for _, a := range cs.PutAccounts {
		u.accounts = upsert(u.accounts, a, func(x core.Account) bool { return x.ID == a.ID })
	}

	s.users[userID] = u
	return nil
}

// Ping always succeeds while ctx is live.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (u *userData) checkDeletes(cs persistence.ChangeSet) error {
	for _, k := range cs.DeleteExpenses {
		if !slices.ContainsFunc(u.expenses[k.Month], func(e core.Expense) bool { return e.ID == k.ID }) {
			return fmt.Errorf("expense %s/%s: %w", k.Month, k.ID, core.ErrNotFound)
		}
	}
	for _, k := range cs.DeleteIncomes {
		if !slices.ContainsFunc(u.incomes[k.Month], func(i core.Income) bool { return i.ID == k.ID }) {
			return fmt.Errorf("income %s/%s: %w", k.Month, k.ID, core.ErrNotFound)
		}
	}
	for _, id := range cs.DeleteCategories {
		if !slices.ContainsFunc(u.categories, func(c core.Category) bool { return c.ID == id }) {
			return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
		}
	}
	for _, id := range cs.DeleteAccounts {
		if !slices.ContainsFunc(u.accounts, func(a core.Account) bool { return a.ID == id }) {
			return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
		}
	}
	return nil
}

func upsert[T any](xs []T, v T, match func(T) bool) []T {
	if i := slices.IndexFunc(xs, match); i >= 0 {
		xs[i] = v
		return xs
	}
	return append(xs, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
