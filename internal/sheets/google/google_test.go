package google

import (
	"context"
	"strings"
	"testing"

	"gastos/internal/core"
	ports "gastos/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "", nil)
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-id", "", nil)
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadCredentials_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/credentials.json")

	_, err := loadCredentials()
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadCredentials_PrefersInlineJSON(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/credentials.json")

	b, err := loadCredentials()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != `{"type":"service_account"}` {
		t.Errorf("got %q", b)
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: DefaultSheetBase}
	row := ports.Row{Date: core.NewDate(2024, 3, 1), ID: "e1"}

	if err := c.UpsertRecord(context.Background(), row); err == nil {
		t.Error("expected error for uninitialized service")
	}
	if err := c.DeleteRecord(context.Background(), 2024, "e1"); err == nil {
		t.Error("expected error for uninitialized service")
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"Fecha", "Tipo", "Descripción", "Categoría", "Cuenta", "Monto", "ID"},
		{"2024-03-01", "Gasto", "Pan", "Comida", "a1", "10.00", "e1"},
		{},
		{"2024-03-02", "Ingreso", "Sueldo", "", "a1", "1000.00", " e2 "},
		{"2024-03-03", "Gasto", "short row"},
	}

	tests := []struct {
		id   string
		want int
	}{
		{"e1", 2},
		{"e2", 4},
		{"missing", 0},
		{"", 0},
		{"ID", 0}, // header is skipped
	}
	for _, tt := range tests {
		if got := findRow(values, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestRowRange(t *testing.T) {
	if got := rowRange("2024 Movimientos", 7); got != "2024 Movimientos!A7:G7" {
		t.Errorf("rowRange = %q", got)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Movimientos", 2025, "2025 Movimientos"},
		{"  Movimientos ", 2024, "2024 Movimientos"},
		{"", 2023, ""},
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
		{"1800 Not A Year", 2024, "2024 1800 Not A Year"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]interface{}{" a ", 12, 3.5, nil})
	want := []string{"a", "12", "3.5", "<nil>"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toStrings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
