// Package storage is the SQLite persistence backend.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/persistence"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements persistence.Repository on a single SQLite file.
type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

var _ persistence.Repository = (*SQLiteRepository)(nil)

func dsnFor(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dsnFor(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	version, err := RunMigrations(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentStorage)
	logger.Debug("Ledger schema ready", "schema_version", version, "db_path", dbPath)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load reads the four record tables concurrently.
func (r *SQLiteRepository) Load(ctx context.Context, userID string) (persistence.Snapshot, error) {
	var snap persistence.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Expenses, err = r.loadExpenses(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Incomes, err = r.loadIncomes(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Categories, err = r.loadCategories(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Accounts, err = r.loadAccounts(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return persistence.Snapshot{}, err
	}
	return snap, nil
}

func (r *SQLiteRepository) loadExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, description, amount_cents, category, account_id,
		       installment_total, installment_current, installment_original_cents
		FROM expenses WHERE user_id = ? ORDER BY month, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e                    core.Expense
			date                 string
			total, current, orig sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &e.Amount.Cents, &e.Category, &e.AccountID, &total, &current, &orig); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense %s: %w", e.ID, err)
		}
		e.UserID = userID
		if total.Valid {
			e.Plan = core.Installment{Total: int(total.Int64), Current: int(current.Int64), OriginalAmount: core.Money{Cents: orig.Int64}}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadIncomes(ctx context.Context, userID string) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, description, amount_cents, account_id
		FROM incomes WHERE user_id = ? ORDER BY month, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			in   core.Income
			date string
		)
		if err := rows.Scan(&in.ID, &date, &in.Description, &in.Amount.Cents, &in.AccountID); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if in.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("income %s: %w", in.ID, err)
		}
		in.UserID = userID
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, icon FROM categories WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color, &c.Icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, color, is_default FROM accounts WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Color, &a.Default); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Apply writes the change set in one transaction. Deleting a missing record
// rolls everything back with core.ErrNotFound.
func (r *SQLiteRepository) Apply(ctx context.Context, userID string, cs persistence.ChangeSet) error {
	if userID == "" {
		return core.ErrNoUser
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, k := range cs.DeleteExpenses {
		if err := execOne(ctx, tx, "expense "+k.ID,
			`DELETE FROM expenses WHERE user_id = ? AND month = ? AND id = ?`, userID, k.Month, k.ID); err != nil {
			return err
		}
	}
	for _, k := range cs.DeleteIncomes {
		if err := execOne(ctx, tx, "income "+k.ID,
			`DELETE FROM incomes WHERE user_id = ? AND month = ? AND id = ?`, userID, k.Month, k.ID); err != nil {
			return err
		}
	}
	for _, id := range cs.DeleteCategories {
		if err := execOne(ctx, tx, "category "+id,
			`DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id); err != nil {
			return err
		}
	}
	for _, id := range cs.DeleteAccounts {
		if err := execOne(ctx, tx, "account "+id,
			`DELETE FROM accounts WHERE user_id = ? AND id = ?`, userID, id); err != nil {
			return err
		}
	}

	for _, e := range cs.PutExpenses {
		var total, current, orig sql.NullInt64
		if in, ok := e.InstallmentInfo(); ok {
			total = sql.NullInt64{Int64: int64(in.Total), Valid: true}
			current = sql.NullInt64{Int64: int64(in.Current), Valid: true}
			orig = sql.NullInt64{Int64: in.OriginalAmount.Cents, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (user_id, month, id, date, description, amount_cents, category, account_id,
			                      installment_total, installment_current, installment_original_cents)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, month, id) DO UPDATE SET
				date = excluded.date,
				description = excluded.description,
				amount_cents = excluded.amount_cents,
				category = excluded.category,
				account_id = excluded.account_id,
				installment_total = excluded.installment_total,
				installment_current = excluded.installment_current,
				installment_original_cents = excluded.installment_original_cents`,
			userID, e.Date.MonthKey(), e.ID, e.Date.String(), e.Description, e.Amount.Cents, e.Category, e.AccountID,
			total, current, orig)
		if err != nil {
			return fmt.Errorf("upsert expense %s: %w", e.ID, err)
		}
	}
	for _, in := range cs.PutIncomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO incomes (user_id, month, id, date, description, amount_cents, account_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, month, id) DO UPDATE SET
				date = excluded.date,
				description = excluded.description,
				amount_cents = excluded.amount_cents,
				account_id = excluded.account_id`,
			userID, in.Date.MonthKey(), in.ID, in.Date.String(), in.Description, in.Amount.Cents, in.AccountID)
		if err != nil {
			return fmt.Errorf("upsert income %s: %w", in.ID, err)
		}
	}
	for _, c := range cs.PutCategories {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (user_id, id, name, color, icon) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, id) DO UPDATE SET
				name = excluded.name, color = excluded.color, icon = excluded.icon`,
			userID, c.ID, c.Name, c.Color, c.Icon)
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", c.ID, err)
		}
	}
	for _, a := range cs.PutAccounts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (user_id, id, name, color, is_default) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, id) DO UPDATE SET
				name = excluded.name, color = excluded.color, is_default = excluded.is_default`,
			userID, a.ID, a.Name, a.Color, a.Default)
		if err != nil {
			return fmt.Errorf("upsert account %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.DebugContext(ctx, "Change set committed",
		applog.FieldUserID, userID,
		applog.FieldCount, cs.Size())
	return nil
}

func execOne(ctx context.Context, tx *sql.Tx, what, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}
