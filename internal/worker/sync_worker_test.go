package worker

import (
	"context"
	"errors"
	"testing"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/persistence"
	pmemory "gastos/internal/persistence/memory"
	"gastos/internal/sheets"
	smemory "gastos/internal/sheets/memory"
)

type failingMirror struct {
	err     error
	upserts int
	deletes int
}

func (f *failingMirror) UpsertRecord(context.Context, sheets.Row) error {
	f.upserts++
	return f.err
}

func (f *failingMirror) DeleteRecord(context.Context, int, string) error {
	f.deletes++
	return f.err
}

func expense(id string, y, m, d int, cents int64) core.Expense {
	return core.Expense{
		ID:          id,
		Amount:      core.Money{Cents: cents},
		Category:    "Comida",
		Description: "Almuerzo",
		Date:        core.NewDate(y, m, d),
		AccountID:   "acc-1",
	}
}

func TestHandleMessage_ExpensePutAndDelete(t *testing.T) {
	ctx := context.Background()
	mirror := smemory.New()
	w := NewSyncWorker(mirror, nil, nil)

	if err := w.HandleMessage(ctx, amqp.NewExpensePut("u1", expense("e1", 2024, 3, 10, 1250))); err != nil {
		t.Fatalf("put: %v", err)
	}
	rows := mirror.Rows(2024)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Type != sheets.TypeExpense || r.Category != "Comida" || r.Account != "acc-1" || r.Amount.Cents != 1250 {
		t.Errorf("unexpected row: %+v", r)
	}

	// A second put replaces the row instead of duplicating it.
	if err := w.HandleMessage(ctx, amqp.NewExpensePut("u1", expense("e1", 2024, 3, 11, 900))); err != nil {
		t.Fatalf("second put: %v", err)
	}
	if rows := mirror.Rows(2024); len(rows) != 1 || rows[0].Amount.Cents != 900 {
		t.Fatalf("expected replaced row, got %+v", rows)
	}

	if err := w.HandleMessage(ctx, amqp.NewDelete(persistence.KindExpense, "u1", "2024-03", "e1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := len(mirror.Rows(2024)); n != 0 {
		t.Errorf("expected no rows after delete, got %d", n)
	}
}

func TestHandleMessage_IncomePut(t *testing.T) {
	mirror := smemory.New()
	w := NewSyncWorker(mirror, nil, nil)

	in := core.Income{ID: "i1", Amount: core.Money{Cents: 500000}, Description: "Sueldo", Date: core.NewDate(2025, 1, 1), AccountID: "acc-1"}
	if err := w.HandleMessage(context.Background(), amqp.NewIncomePut("u1", in)); err != nil {
		t.Fatal(err)
	}
	rows := mirror.Rows(2025)
	if len(rows) != 1 || rows[0].Type != sheets.TypeIncome || rows[0].Category != "" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestHandleMessage_SkipsCategoriesAndAccounts(t *testing.T) {
	mirror := &failingMirror{}
	w := NewSyncWorker(mirror, nil, nil)
	ctx := context.Background()

	msgs := []*amqp.RecordChangedMessage{
		amqp.NewCategoryPut("u1", core.Category{ID: "c1", Name: "Casa"}),
		amqp.NewAccountPut("u1", core.Account{ID: "a1", Name: "General"}),
		amqp.NewDelete(persistence.KindCategory, "u1", "", "c1"),
	}
	for _, m := range msgs {
		if err := w.HandleMessage(ctx, m); err != nil {
			t.Errorf("%s %s: unexpected error %v", m.Kind, m.Op, err)
		}
	}
	if mirror.upserts != 0 || mirror.deletes != 0 {
		t.Errorf("mirror should not be touched, got %d upserts %d deletes", mirror.upserts, mirror.deletes)
	}
}

func TestHandleMessage_MirrorErrorIsReturned(t *testing.T) {
	mirror := &failingMirror{err: errors.New("quota exceeded")}
	w := NewSyncWorker(mirror, nil, nil)
	ctx := context.Background()

	if err := w.HandleMessage(ctx, amqp.NewExpensePut("u1", expense("e1", 2024, 3, 10, 100))); err == nil {
		t.Error("expected put error so the message is requeued")
	}
	if err := w.HandleMessage(ctx, amqp.NewDelete(persistence.KindIncome, "u1", "2024-03", "i1")); err == nil {
		t.Error("expected delete error so the message is requeued")
	}
}

func TestHandleMessage_DropsUnusableMessages(t *testing.T) {
	mirror := &failingMirror{err: errors.New("should not be called")}
	w := NewSyncWorker(mirror, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *amqp.RecordChangedMessage
	}{
		{"delete without month", amqp.NewDelete(persistence.KindExpense, "u1", "", "e1")},
		{"put without payload", &amqp.RecordChangedMessage{Kind: persistence.KindExpense, Op: amqp.OpPut, ID: "e1"}},
		{"put with bad date", &amqp.RecordChangedMessage{Kind: persistence.KindExpense, Op: amqp.OpPut, ID: "e1",
			Record: &amqp.RecordPayload{Date: "not-a-date"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.HandleMessage(ctx, tt.msg); err != nil {
				t.Errorf("expected message to be dropped without error, got %v", err)
			}
		})
	}
	if mirror.upserts != 0 || mirror.deletes != 0 {
		t.Errorf("mirror should not be touched")
	}
}

func TestResync(t *testing.T) {
	ctx := context.Background()
	repo := pmemory.New()
	err := repo.Apply(ctx, "u1", persistence.ChangeSet{
		PutExpenses: []core.Expense{expense("e1", 2024, 3, 1, 100), expense("e2", 2025, 1, 2, 200)},
		PutIncomes:  []core.Income{{ID: "i1", Amount: core.Money{Cents: 300}, Description: "Sueldo", Date: core.NewDate(2024, 3, 5), AccountID: "acc-1"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	mirror := smemory.New()
	w := NewSyncWorker(mirror, repo, nil)
	if err := w.Resync(ctx, "u1", "nobody"); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if n := len(mirror.Rows(2024)); n != 2 {
		t.Errorf("expected 2 rows in 2024, got %d", n)
	}
	if n := len(mirror.Rows(2025)); n != 1 {
		t.Errorf("expected 1 row in 2025, got %d", n)
	}
}

func TestResync_RequiresRepository(t *testing.T) {
	w := NewSyncWorker(smemory.New(), nil, nil)
	if err := w.Resync(context.Background(), "u1"); err == nil {
		t.Error("expected error without repository")
	}
}
