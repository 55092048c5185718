package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gastos/internal/cache"
	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/persistence"
)

// PersistError reports that the repository rejected a write or read. The
// store's in-memory state is unchanged when it is returned.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string { return fmt.Sprintf("persist %s: %v", e.Op, e.Err) }
func (e *PersistError) Unwrap() error { return e.Err }

// Store owns the signed-in user's records. Every mutation is written through
// the repository first and applied in memory only once the write succeeded.
// It is safe for concurrent use.
type Store struct {
	repo   persistence.Repository
	logger *applog.Logger
	newID  func() string
	now    func() time.Time
	seed   []core.Category
	views  cache.Cache[[]core.CategoryTotal]

	mu         sync.RWMutex
	userID     string
	expenses   []core.Expense
	incomes    []core.Income
	categories []core.Category
	accounts   []core.Account
}

type Option func(*Store)

func WithLogger(l *applog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultCategories sets the categories seeded for users that have none.
func WithDefaultCategories(cats []core.Category) Option {
	return func(s *Store) { s.seed = slices.Clone(cats) }
}

// WithViewCache sets the cache serving CategoriesWithTotals.
func WithViewCache(c cache.Cache[[]core.CategoryTotal]) Option {
	return func(s *Store) { s.views = c }
}

func NewStore(repo persistence.Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: applog.New(applog.DefaultConfig()),
		newID:  newUUID,
		now:    time.Now,
		seed:   core.DefaultCategories(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.views == nil {
		s.views = cache.NewLRUCache[[]core.CategoryTotal](64, 5*time.Minute)
	}
	s.logger = s.logger.WithComponent(applog.ComponentLedger)
	return s
}

func newUUID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Load replaces the store's contents with userID's records. Users without
// categories get the default set and users without accounts get a default
// account; both are persisted before Load returns.
func (s *Store) Load(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrNoUser
	}
	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		return &PersistError{Op: applog.OpLoad, Err: err}
	}

	var cs persistence.ChangeSet
	if len(snap.Categories) == 0 {
		snap.Categories = slices.Clone(s.seed)
		cs.PutCategories = snap.Categories
	}
	switch {
	case len(snap.Accounts) == 0:
		acc := core.Account{ID: s.newID(), Name: core.DefaultAccountName, Color: "#3B82F6", Default: true}
		snap.Accounts = []core.Account{acc}
		cs.PutAccounts = snap.Accounts
	case DefaultAccountID(snap.Accounts) == "":
		// Accounts stored before defaults existed: promote the first one.
		snap.Accounts[0].Default = true
		cs.PutAccounts = snap.Accounts[:1]
	}
	if !cs.Empty() {
		if err := s.repo.Apply(ctx, userID, cs); err != nil {
			return &PersistError{Op: applog.OpSeed, Err: err}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.expenses = snap.Expenses
	s.incomes = snap.Incomes
	s.categories = snap.Categories
	s.accounts = snap.Accounts
	s.views.Purge()

	s.logger.InfoContext(ctx, "Ledger loaded",
		applog.FieldUserID, userID,
		"expenses", len(s.expenses),
		"incomes", len(s.incomes),
		"seeded", cs.Size())
	return nil
}

// Clear forgets the current user and all their records.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = ""
	s.expenses = nil
	s.incomes = nil
	s.categories = nil
	s.accounts = nil
	s.views.Purge()
}

// UserID returns the signed-in user, or "" when none.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// commit writes cs and, on success, runs apply. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, op string, cs persistence.ChangeSet, apply func()) error {
	if err := s.repo.Apply(ctx, s.userID, cs); err != nil {
		s.logger.ErrorContext(ctx, "Ledger write failed",
			applog.FieldUserID, s.userID,
			applog.FieldOperation, op,
			applog.FieldError, err)
		return &PersistError{Op: op, Err: err}
	}
	apply()
	s.views.Purge()
	s.logger.DebugContext(ctx, "Ledger write applied",
		applog.FieldUserID, s.userID,
		applog.FieldOperation, op,
		applog.FieldCount, cs.Size())
	return nil
}

func (s *Store) lockUser() error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return core.ErrNoUser
	}
	return nil
}

// resolveAccount returns accountID, or the default account when empty.
func (s *Store) resolveAccount(accountID string) (string, error) {
	if accountID == "" {
		if id := DefaultAccountID(s.accounts); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("default account: %w", core.ErrNotFound)
	}
	if !slices.ContainsFunc(s.accounts, func(a core.Account) bool { return a.ID == accountID }) {
		return "", fmt.Errorf("account %s: %w", accountID, core.ErrNotFound)
	}
	return accountID, nil
}

// AddExpense records a new expense. An empty AccountID files it under the
// default account.
func (s *Store) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := s.lockUser(); err != nil {
		return core.Expense{}, err
	}
	defer s.mu.Unlock()

	acc, err := s.resolveAccount(e.AccountID)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = s.newID()
	e.UserID = s.userID
	e.AccountID = acc
	e.Description = strings.TrimSpace(e.Description)
	if err := core.ValidateDescription(e.Description); err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	err = s.commit(ctx, applog.OpCreate, persistence.ChangeSet{PutExpenses: []core.Expense{e}}, func() {
		s.expenses = append(s.expenses, e)
	})
	return e, err
}

// AddInstallmentExpense splits total into count monthly expenses starting at
// start and stores them in one write.
func (s *Store) AddInstallmentExpense(ctx context.Context, total core.Money, category, description string, count int, start core.Date, accountID string) ([]core.Expense, error) {
	if count < core.MinInstallments || count > core.MaxInstallments {
		return nil, core.ErrInvalidInstallments
	}
	if err := total.Validate(); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if err := core.ValidateDescription(description); err != nil {
		return nil, err
	}
	if err := s.lockUser(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	acc, err := s.resolveAccount(accountID)
	if err != nil {
		return nil, err
	}
	xs := ExpandInstallments(total, category, description, count, start)
	for i := range xs {
		xs[i].ID = s.newID()
		xs[i].UserID = s.userID
		xs[i].AccountID = acc
		if err := xs[i].Validate(); err != nil {
			return nil, err
		}
	}

	err = s.commit(ctx, applog.OpCreate, persistence.ChangeSet{PutExpenses: xs}, func() {
		s.expenses = append(s.expenses, xs...)
	})
	if err != nil {
		return nil, err
	}
	return xs, nil
}

// UpdateExpense replaces expense e.ID. A nil Plan keeps the stored plan. When
// the date moves to another month the record is refiled under that month.
func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := s.lockUser(); err != nil {
		return core.Expense{}, err
	}
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.expenses, func(x core.Expense) bool { return x.ID == e.ID })
	if i < 0 {
		return core.Expense{}, fmt.Errorf("expense %s: %w", e.ID, core.ErrNotFound)
	}
	old := s.expenses[i]
	acc, err := s.resolveAccount(e.AccountID)
	if err != nil {
		return core.Expense{}, err
	}
	e.UserID = s.userID
	e.AccountID = acc
	e.Description = strings.TrimSpace(e.Description)
	if e.Plan == nil {
		e.Plan = old.Plan
	}
	// An unchanged stored description may already carry an installment or
	// transfer marker and is only held to the record limit.
	if e.Description != old.Description {
		if err := core.ValidateDescription(e.Description); err != nil {
			return core.Expense{}, err
		}
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	cs := persistence.ChangeSet{PutExpenses: []core.Expense{e}}
	if !old.Date.SameMonth(e.Date) {
		cs.DeleteExpenses = []persistence.RecordKey{persistence.KeyOf(old)}
	}
	err = s.commit(ctx, applog.OpUpdate, cs, func() {
		s.expenses[i] = e
	})
	return e, err
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	if err := s.lockUser(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.expenses, func(x core.Expense) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	cs := persistence.ChangeSet{DeleteExpenses: []persistence.RecordKey{persistence.KeyOf(s.expenses[i])}}
	return s.commit(ctx, applog.OpDelete, cs, func() {
		s.expenses = slices.Delete(s.expenses, i, i+1)
	})
}

// AddIncome records a new income. An empty AccountID files it under the
// default account.
func (s *Store) AddIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := s.lockUser(); err != nil {
		return core.Income{}, err
	}
	defer s.mu.Unlock()

	acc, err := s.resolveAccount(in.AccountID)
	if err != nil {
		return core.Income{}, err
	}
	in.ID = s.newID()
	in.UserID = s.userID
	in.AccountID = acc
	in.Description = strings.TrimSpace(in.Description)
	if err := core.ValidateDescription(in.Description); err != nil {
		return core.Income{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}

	err = s.commit(ctx, applog.OpCreate, persistence.ChangeSet{PutIncomes: []core.Income{in}}, func() {
		s.incomes = append(s.incomes, in)
	})
	return in, err
}

func (s *Store) UpdateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := s.lockUser(); err != nil {
		return core.Income{}, err
	}
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.incomes, func(x core.Income) bool { return x.ID == in.ID })
	if i < 0 {
		return core.Income{}, fmt.Errorf("income %s: %w", in.ID, core.ErrNotFound)
	}
	old := s.incomes[i]
	acc, err := s.resolveAccount(in.AccountID)
	if err != nil {
		return core.Income{}, err
	}
	in.UserID = s.userID
	in.AccountID = acc
	in.Description = strings.TrimSpace(in.Description)
	if in.Description != old.Description {
		if err := core.ValidateDescription(in.Description); err != nil {
			return core.Income{}, err
		}
	}
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}

	cs := persistence.ChangeSet{PutIncomes: []core.Income{in}}
	if !old.Date.SameMonth(in.Date) {
		cs.DeleteIncomes = []persistence.RecordKey{persistence.IncomeKeyOf(old)}
	}
	err = s.commit(ctx, applog.OpUpdate, cs, func() {
		s.incomes[i] = in
	})
	return in, err
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	if err := s.lockUser(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.incomes, func(x core.Income) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("income %s: %w", id, core.ErrNotFound)
	}
	cs := persistence.ChangeSet{DeleteIncomes: []persistence.RecordKey{persistence.IncomeKeyOf(s.incomes[i])}}
	return s.commit(ctx, applog.OpDelete, cs, func() {
		s.incomes = slices.Delete(s.incomes, i, i+1)
	})
}

func (s *Store) AddCategory(ctx context.Context, name, color, icon string) (core.Category, error) {
	if err := s.lockUser(); err != nil {
		return core.Category{}, err
	}
	defer s.mu.Unlock()

	if err := CheckCategoryName(s.categories, name, ""); err != nil {
		return core.Category{}, err
	}
	c := core.Category{ID: s.newID(), Name: strings.TrimSpace(name), Color: color, Icon: icon}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	err := s.commit(ctx, applog.OpCreate, persistence.ChangeSet{PutCategories: []core.Category{c}}, func() {
		s.categories = append(s.categories, c)
	})
	return c, err
}

// UpdateCategory changes a category's name, color and icon. A rename is
// cascaded to every expense filed under the old name in the same write.
func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := s.lockUser(); err != nil {
		return core.Category{}, err
	}
	defer s.mu.Unlock()

	cats, renamed, err := RenameCategory(s.categories, s.expenses, c.ID, c.Name)
	if err != nil {
		return core.Category{}, err
	}
	i := slices.IndexFunc(cats, func(x core.Category) bool { return x.ID == c.ID })
	cats[i].Color = c.Color
	cats[i].Icon = c.Icon
	updated := cats[i]

	cs := persistence.ChangeSet{PutCategories: []core.Category{updated}, PutExpenses: renamed}
	err = s.commit(ctx, applog.OpUpdate, cs, func() {
		s.categories = cats
		s.expenses = ApplyRenamed(s.expenses, renamed)
	})
	if err == nil && len(renamed) > 0 {
		s.logger.InfoContext(ctx, "Category rename cascaded",
			applog.FieldCategory, updated.Name,
			applog.FieldCount, len(renamed))
	}
	return updated, err
}

// DeleteCategory removes a category that no expense references.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	if err := s.lockUser(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	cats, err := DeleteCategory(s.categories, s.expenses, id)
	if err != nil {
		return err
	}
	return s.commit(ctx, applog.OpDelete, persistence.ChangeSet{DeleteCategories: []string{id}}, func() {
		s.categories = cats
	})
}

// AddAccount creates an account. The user's first account becomes the default.
func (s *Store) AddAccount(ctx context.Context, name, color string) (core.Account, error) {
	if err := s.lockUser(); err != nil {
		return core.Account{}, err
	}
	defer s.mu.Unlock()

	if err := CheckAccountName(s.accounts, name, ""); err != nil {
		return core.Account{}, err
	}
	a := core.Account{
		ID:      s.newID(),
		Name:    strings.TrimSpace(name),
		Color:   color,
		Default: DefaultAccountID(s.accounts) == "",
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	err := s.commit(ctx, applog.OpCreate, persistence.ChangeSet{PutAccounts: []core.Account{a}}, func() {
		s.accounts = append(s.accounts, a)
	})
	return a, err
}

// UpdateAccount changes an account's name and color. The default flag is
// only changed through SetDefaultAccount.
func (s *Store) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := s.lockUser(); err != nil {
		return core.Account{}, err
	}
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.accounts, func(x core.Account) bool { return x.ID == a.ID })
	if i < 0 {
		return core.Account{}, fmt.Errorf("account %s: %w", a.ID, core.ErrNotFound)
	}
	if err := CheckAccountName(s.accounts, a.Name, a.ID); err != nil {
		return core.Account{}, err
	}
	a.Name = strings.TrimSpace(a.Name)
	a.Default = s.accounts[i].Default
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	err := s.commit(ctx, applog.OpUpdate, persistence.ChangeSet{PutAccounts: []core.Account{a}}, func() {
		s.accounts[i] = a
	})
	return a, err
}

// SetDefaultAccount makes id the account new movements fall back to.
func (s *Store) SetDefaultAccount(ctx context.Context, id string) error {
	if err := s.lockUser(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	next := slices.Clone(s.accounts)
	var changed []core.Account
	found := false
	for i := range next {
		want := next[i].ID == id
		found = found || want
		if next[i].Default != want {
			next[i].Default = want
			changed = append(changed, next[i])
		}
	}
	if !found {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	if len(changed) == 0 {
		return nil
	}
	return s.commit(ctx, applog.OpUpdate, persistence.ChangeSet{PutAccounts: changed}, func() {
		s.accounts = next
	})
}

// DeleteAccount removes an account no expense references. Incomes filed
// under it keep their account id. The default account cannot be removed.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if err := s.lockUser(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	accs, err := DeleteAccount(s.accounts, s.expenses, id)
	if err != nil {
		return err
	}
	return s.commit(ctx, applog.OpDelete, persistence.ChangeSet{DeleteAccounts: []string{id}}, func() {
		s.accounts = accs
	})
}

// Transfer moves amount between two accounts as an expense on from (category
// core.TransferCategory) and an income on to, written together.
func (s *Store) Transfer(ctx context.Context, from, to string, amount core.Money, description string, date core.Date) (core.Expense, core.Income, error) {
	if from == to {
		return core.Expense{}, core.Income{}, core.ErrSameAccount
	}
	if err := s.lockUser(); err != nil {
		return core.Expense{}, core.Income{}, err
	}
	defer s.mu.Unlock()

	src, ok := s.account(from)
	if !ok {
		return core.Expense{}, core.Income{}, fmt.Errorf("account %s: %w", from, core.ErrNotFound)
	}
	dst, ok := s.account(to)
	if !ok {
		return core.Expense{}, core.Income{}, fmt.Errorf("account %s: %w", to, core.ErrNotFound)
	}
	description = strings.TrimSpace(description)
	if err := core.ValidateDescription(description); err != nil {
		return core.Expense{}, core.Income{}, err
	}

	e := core.Expense{
		ID:          s.newID(),
		UserID:      s.userID,
		Amount:      amount,
		Category:    core.TransferCategory,
		Description: fmt.Sprintf("Transferencia a %s: %s", dst.Name, description),
		Date:        date,
		AccountID:   src.ID,
	}
	in := core.Income{
		ID:          s.newID(),
		UserID:      s.userID,
		Amount:      amount,
		Description: fmt.Sprintf("Transferencia de %s: %s", src.Name, description),
		Date:        date,
		AccountID:   dst.ID,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.Income{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, core.Income{}, err
	}

	cs := persistence.ChangeSet{PutExpenses: []core.Expense{e}, PutIncomes: []core.Income{in}}
	err := s.commit(ctx, applog.OpTransfer, cs, func() {
		s.expenses = append(s.expenses, e)
		s.incomes = append(s.incomes, in)
	})
	if err != nil {
		return core.Expense{}, core.Income{}, err
	}
	return e, in, nil
}

func (s *Store) account(id string) (core.Account, bool) {
	i := slices.IndexFunc(s.accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return core.Account{}, false
	}
	return s.accounts[i], true
}

// Expenses lists the month's expenses, newest first.
func (s *Store) Expenses(month core.Date, accountID string) []core.Expense {
	s.mu.RLock()
	xs := ExpensesForMonthByAccount(s.expenses, month, accountID)
	s.mu.RUnlock()
	SortExpensesByDateDesc(xs)
	return xs
}

// AllExpenses returns a copy of every expense across all months.
func (s *Store) AllExpenses() []core.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.expenses)
}

// Incomes lists the month's incomes, newest first.
func (s *Store) Incomes(month core.Date, accountID string) []core.Income {
	s.mu.RLock()
	xs := IncomesForMonthByAccount(s.incomes, month, accountID)
	s.mu.RUnlock()
	SortIncomesByDateDesc(xs)
	return xs
}

// CategoryExpenses lists one category's expenses for the month with their
// total.
func (s *Store) CategoryExpenses(category string, month core.Date, accountID string) core.CategoryDetail {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CategoryExpenses(s.expenses, category, month, accountID)
}

// IncomeHistory groups every income by month, newest first.
func (s *Store) IncomeHistory(accountID string) core.IncomeHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GroupIncomesByMonth(s.incomes, accountID)
}

func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// Accounts lists accounts ordered by name.
func (s *Store) Accounts() []core.Account {
	s.mu.RLock()
	out := slices.Clone(s.accounts)
	s.mu.RUnlock()
	SortAccountsByName(out)
	return out
}

func (s *Store) DefaultAccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DefaultAccountID(s.accounts)
}

// CategoriesWithTotals is the month's category breakdown, served from the
// view cache until the next write.
func (s *Store) CategoriesWithTotals(month core.Date, accountID string) []core.CategoryTotal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoryTotals(month, accountID)
}

// categoryTotals expects s.mu held.
func (s *Store) categoryTotals(month core.Date, accountID string) []core.CategoryTotal {
	key := s.userID + "|" + month.MonthKey() + "|" + accountID
	if v, ok := s.views.Get(key); ok {
		return slices.Clone(v)
	}
	v := CategoriesWithTotals(s.categories, s.expenses, month, accountID)
	s.views.Set(key, v)
	return slices.Clone(v)
}

func (s *Store) Overview(month core.Date, accountID string) core.MonthOverview {
	s.mu.RLock()
	defer s.mu.RUnlock()
	income := TotalIncomeForMonth(s.incomes, month, accountID)
	spent := TotalForMonth(s.expenses, month, accountID)
	return core.MonthOverview{
		Year:       month.Year(),
		Month:      month.Month(),
		AccountID:  accountID,
		Income:     income,
		Expenses:   spent,
		Balance:    income.Sub(spent),
		ByCategory: s.categoryTotals(month, accountID),
	}
}

// Projection returns the default window of monthly expense totals around now.
func (s *Store) Projection(accountID string, now core.Date) []core.MonthTotal {
	s.mu.RLock()
	totals := ProjectedTotals(s.expenses, accountID)
	s.mu.RUnlock()
	return ProjectionWindow(totals, now, ProjectionBack, ProjectionAhead)
}

// Today is the store clock's current date.
func (s *Store) Today() core.Date {
	return core.DateOf(s.now())
}

func (s *Store) AccountSummaries() []core.AccountSummary {
	s.mu.RLock()
	accs := slices.Clone(s.accounts)
	out := AccountSummaries(accs, s.expenses)
	s.mu.RUnlock()
	SortAccountsByName(accs)
	order := make(map[string]int, len(accs))
	for i, a := range accs {
		order[a.ID] = i
	}
	slices.SortStableFunc(out, func(a, b core.AccountSummary) int {
		return order[a.Account.ID] - order[b.Account.ID]
	})
	return out
}
