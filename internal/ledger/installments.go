package ledger

import (
	"fmt"

	"gastos/internal/core"
)

// ExpandInstallments splits a purchase of total into count monthly records.
// Each record carries total.Split(count); the rounding remainder is not
// redistributed. Record i is dated start.AddMonths(i), so a start day missing
// from a later month is clamped to that month's last day.
//
// Callers validate total > 0 and MinInstallments <= count <= MaxInstallments.
// The returned records have no ID, user or account.
func ExpandInstallments(total core.Money, category, description string, count int, start core.Date) []core.Expense {
	if count <= 0 {
		return nil
	}
	per := total.Split(count)
	out := make([]core.Expense, count)
	for i := range out {
		out[i] = core.Expense{
			Amount:      per,
			Category:    category,
			Description: InstallmentDescription(description, i+1, count),
			Date:        start.AddMonths(i),
			Plan:        core.Installment{Total: count, Current: i + 1, OriginalAmount: total},
		}
	}
	return out
}

// InstallmentDescription renders "desc (Cuota n/total)".
func InstallmentDescription(description string, n, total int) string {
	return fmt.Sprintf("%s (Cuota %d/%d)", description, n, total)
}
