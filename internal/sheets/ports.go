// Package sheets defines the spreadsheet mirror that receives every movement
// written to a ledger.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/persistence"
)

// Movement types shown in the Tipo column.
const (
	TypeExpense = "Gasto"
	TypeIncome  = "Ingreso"
)

// Header is the first row of every mirror sheet.
var Header = []string{"Fecha", "Tipo", "Descripción", "Categoría", "Cuenta", "Monto", "ID"}

var ErrNotMovement = errors.New("record is not a movement")

// Row is one mirrored movement.
type Row struct {
	Date        core.Date
	Type        string
	Description string
	Category    string
	Account     string
	Amount      core.Money
	ID          string
}

// Values returns the row cells in Header order.
func (r Row) Values() []any {
	return []any{r.Date.String(), r.Type, r.Description, r.Category, r.Account, r.Amount.String(), r.ID}
}

// Ports for outbound adapters.
type (
	// RecordMirror keeps one row per movement id.
	RecordMirror interface {
		// UpsertRecord replaces any row carrying row.ID, then appends row.
		UpsertRecord(ctx context.Context, row Row) error
		// DeleteRecord clears the row carrying id in the given year's sheet.
		// A missing row is not an error.
		DeleteRecord(ctx context.Context, year int, id string) error
	}
)

// RowFromMessage converts an expense or income put into a Row.
func RowFromMessage(msg *amqp.RecordChangedMessage) (Row, error) {
	if msg.Kind != persistence.KindExpense && msg.Kind != persistence.KindIncome {
		return Row{}, ErrNotMovement
	}
	if msg.Op != amqp.OpPut || msg.Record == nil {
		return Row{}, fmt.Errorf("%s %s has no record payload", msg.Kind, msg.ID)
	}
	date, err := core.ParseDate(msg.Record.Date)
	if err != nil {
		return Row{}, fmt.Errorf("record %s: %w", msg.ID, err)
	}
	row := Row{
		Date:        date,
		Type:        TypeExpense,
		Description: msg.Record.Description,
		Category:    msg.Record.Category,
		Account:     msg.Record.AccountID,
		Amount:      core.Money{Cents: msg.Record.AmountCents},
		ID:          msg.ID,
	}
	if msg.Kind == persistence.KindIncome {
		row.Type = TypeIncome
	}
	return row, nil
}

// RowFromExpense mirrors a stored expense.
func RowFromExpense(e core.Expense) Row {
	return Row{
		Date:        e.Date,
		Type:        TypeExpense,
		Description: e.Description,
		Category:    e.Category,
		Account:     e.AccountID,
		Amount:      e.Amount,
		ID:          e.ID,
	}
}

// RowFromIncome mirrors a stored income. Incomes carry no category.
func RowFromIncome(in core.Income) Row {
	return Row{
		Date:        in.Date,
		Type:        TypeIncome,
		Description: in.Description,
		Account:     in.AccountID,
		Amount:      in.Amount,
		ID:          in.ID,
	}
}

// YearOfMonth extracts the year from a "YYYY-MM" month key.
func YearOfMonth(month string) (int, error) {
	d, err := core.ParseMonth(month)
	if err != nil {
		return 0, err
	}
	return d.Year(), nil
}
