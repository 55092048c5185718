package memory

import (
	"context"
	"testing"

	"gastos/internal/core"
	ports "gastos/internal/sheets"
)

func row(id string, y, m, d int, cents int64) ports.Row {
	return ports.Row{
		Date:        core.NewDate(y, m, d),
		Type:        ports.TypeExpense,
		Description: "t",
		Amount:      core.Money{Cents: cents},
		ID:          id,
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.UpsertRecord(ctx, row("e1", 2024, 3, 1, 100)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertRecord(ctx, row("e1", 2024, 3, 2, 250)); err != nil {
		t.Fatal(err)
	}

	rows := s.Rows(2024)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Amount.Cents != 250 || rows[0].Date.Day() != 2 {
		t.Errorf("row not replaced: %+v", rows[0])
	}
}

func TestUpsertMovesAcrossYears(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpsertRecord(ctx, row("e1", 2024, 12, 31, 100))
	_ = s.UpsertRecord(ctx, row("e1", 2025, 1, 1, 100))

	if n := len(s.Rows(2024)); n != 0 {
		t.Errorf("expected 2024 to be empty, got %d rows", n)
	}
	if n := len(s.Rows(2025)); n != 1 {
		t.Errorf("expected 1 row in 2025, got %d", n)
	}
}

func TestDeleteRecord(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpsertRecord(ctx, row("e1", 2024, 3, 1, 100))
	_ = s.UpsertRecord(ctx, row("e2", 2024, 2, 1, 100))

	if err := s.DeleteRecord(ctx, 2024, "e1"); err != nil {
		t.Fatal(err)
	}
	// Missing ids and years are ignored.
	if err := s.DeleteRecord(ctx, 2030, "nope"); err != nil {
		t.Fatal(err)
	}
	rows := s.Rows(2024)
	if len(rows) != 1 || rows[0].ID != "e2" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestRowsOrderedByDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpsertRecord(ctx, row("b", 2024, 5, 1, 1))
	_ = s.UpsertRecord(ctx, row("a", 2024, 5, 1, 1))
	_ = s.UpsertRecord(ctx, row("c", 2024, 1, 9, 1))

	rows := s.Rows(2024)
	got := []string{rows[0].ID, rows[1].ID, rows[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
