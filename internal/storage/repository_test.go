package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/persistence"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "gastos.db"), applog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.Ping(ctx))

	plan := core.Installment{Total: 3, Current: 2, OriginalAmount: core.Money{Cents: 30000}}
	cs := persistence.ChangeSet{
		PutExpenses: []core.Expense{
			{ID: "e2", Amount: core.Money{Cents: 10000}, Category: "Casa", Description: "Sofa (Cuota 2/3)", Date: core.NewDate(2024, 2, 29), AccountID: "a1", Plan: plan},
			{ID: "e1", Amount: core.Money{Cents: 500}, Category: "Comida", Description: "Pan", Date: core.NewDate(2024, 1, 3), AccountID: "a1"},
		},
		PutIncomes:    []core.Income{{ID: "i1", Amount: core.Money{Cents: 90000}, Description: "Sueldo", Date: core.NewDate(2024, 1, 1), AccountID: "a1"}},
		PutCategories: []core.Category{{ID: "2", Name: "Comida", Color: "#10B981", Icon: "🍽️"}, {ID: "1", Name: "Casa"}},
		PutAccounts:   []core.Account{{ID: "a1", Name: "General", Color: "#3B82F6", Default: true}},
	}
	require.NoError(t, repo.Apply(ctx, "u1", cs))

	snap, err := repo.Load(ctx, "u1")
	require.NoError(t, err)

	require.Len(t, snap.Expenses, 2)
	assert.Equal(t, "e1", snap.Expenses[0].ID, "ordered by month bucket")
	assert.Nil(t, snap.Expenses[0].Plan)
	got, ok := snap.Expenses[1].InstallmentInfo()
	require.True(t, ok)
	assert.Equal(t, plan, got)
	assert.Equal(t, "2024-02-29", snap.Expenses[1].Date.String())
	assert.Equal(t, "u1", snap.Expenses[1].UserID)

	require.Len(t, snap.Incomes, 1)
	assert.Equal(t, int64(90000), snap.Incomes[0].Amount.Cents)

	require.Len(t, snap.Categories, 2)
	assert.Equal(t, "Comida", snap.Categories[0].Name, "insertion order is kept")
	assert.Equal(t, "🍽️", snap.Categories[0].Icon)

	require.Len(t, snap.Accounts, 1)
	assert.True(t, snap.Accounts[0].Default)

	other, err := repo.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other.Expenses)
	assert.Empty(t, other.Categories)
}

func TestSQLiteUpsertAndMove(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e := core.Expense{ID: "e1", Amount: core.Money{Cents: 500}, Category: "Comida", Description: "Pan", Date: core.NewDate(2024, 1, 3), AccountID: "a1"}
	require.NoError(t, repo.Apply(ctx, "u1", persistence.ChangeSet{PutExpenses: []core.Expense{e}}))

	e.Category = "Super"
	require.NoError(t, repo.Apply(ctx, "u1", persistence.ChangeSet{PutExpenses: []core.Expense{e}}))

	moved := e
	moved.Date = core.NewDate(2024, 4, 1)
	require.NoError(t, repo.Apply(ctx, "u1", persistence.ChangeSet{
		DeleteExpenses: []persistence.RecordKey{persistence.KeyOf(e)},
		PutExpenses:    []core.Expense{moved},
	}))

	snap, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, snap.Expenses, 1)
	assert.Equal(t, "Super", snap.Expenses[0].Category)
	assert.Equal(t, "2024-04-01", snap.Expenses[0].Date.String())
}

func TestSQLiteApplyRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.Apply(ctx, "u1", persistence.ChangeSet{
		PutCategories:  []core.Category{{ID: "1", Name: "Casa"}},
		DeleteAccounts: []string{"missing"},
	})
	require.ErrorIs(t, err, core.ErrNotFound)

	snap, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, snap.Categories)

	assert.ErrorIs(t, repo.Apply(ctx, "", persistence.ChangeSet{}), core.ErrNoUser)
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gastos.db")
	first, err := NewSQLiteRepository(path, applog.Discard())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteRepository(path, applog.Discard())
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestRunMigrationsReportsVersion(t *testing.T) {
	dsn := dsnFor(filepath.Join(t.TempDir(), "gastos.db"))

	v, err := RunMigrations(dsn)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	again, err := RunMigrations(dsn)
	require.NoError(t, err)
	assert.Equal(t, v, again)
}
