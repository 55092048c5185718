package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"gastos/internal/core"
	"gastos/internal/ledger"
	"gastos/internal/persistence"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func monthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show income, expenses and the category breakdown of a month",
		Example: `  gastos-report month --user u1 --month 2025-03
  gastos-report month --user u1 --account acc-1`,
		RunE: runMonth,
	}
	cmd.Flags().String("month", "", "month as YYYY-MM (default: current month)")
	return cmd
}

func runMonth(cmd *cobra.Command, _ []string) error {
	raw, _ := cmd.Flags().GetString("month")
	month := core.DateOf(time.Now()).FirstOfMonth()
	if raw != "" {
		m, err := core.ParseMonth(raw)
		if err != nil {
			return fmt.Errorf("--month: %w", err)
		}
		month = m
	}
	account, _ := cmd.Flags().GetString("account")

	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}
	return renderMonth(cmd.OutOrStdout(), snap, month, account)
}

func projectionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projection",
		Short: "Show monthly expense totals around the current month",
		Long: `Lists expense totals from six months back to five months ahead.
Future months only hold installments already recorded.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, _ := cmd.Flags().GetString("account")
			snap, err := loadSnapshot(cmd)
			if err != nil {
				return err
			}
			return renderProjection(cmd.OutOrStdout(), snap, core.DateOf(time.Now()), account)
		},
	}
}

func renderMonth(out io.Writer, snap persistence.Snapshot, month core.Date, account string) error {
	ov := ledger.MonthOverview(snap.Categories, snap.Incomes, snap.Expenses, month, account)

	fmt.Fprintln(out, titleStyle.Render("Resumen "+month.MonthKey()))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	if account != "" {
		fmt.Fprintf(w, "Cuenta\t%s\t\n", accountName(snap.Accounts, account))
	}
	fmt.Fprintf(w, "Ingresos\t%s\t\n", ov.Income.Format())
	fmt.Fprintf(w, "Gastos\t%s\t\n", ov.Expenses.Format())
	fmt.Fprintf(w, "Balance\t%s\t\n", ov.Balance.Format())
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	if ov.Expenses.IsZero() {
		fmt.Fprintln(out, mutedStyle.Render("(sin gastos)"))
		return nil
	}
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Categoría\tTotal\t%%\n")
	fmt.Fprintf(w, "%s\t%s\t%s\n", strings.Repeat("─", 14), strings.Repeat("─", 12), strings.Repeat("─", 4))
	for _, ct := range ov.ByCategory {
		if ct.Total.IsZero() {
			continue
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\n", ct.Category.Icon, ct.Category.Name, ct.Total.Format(), share(ct.Total, ov.Expenses))
	}
	return w.Flush()
}

func renderProjection(out io.Writer, snap persistence.Snapshot, today core.Date, account string) error {
	totals := ledger.ProjectedTotals(snap.Expenses, account)
	window := ledger.ProjectionWindow(totals, today, ledger.ProjectionBack, ledger.ProjectionAhead)
	sum := ledger.SummarizeWindow(window)

	title := "Proyección"
	if account != "" {
		title += " · " + accountName(snap.Accounts, account)
	}
	fmt.Fprintln(out, titleStyle.Render(title))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Mes\tTotal\tPeríodo\n")
	for _, m := range window {
		marker := ""
		if m.Period == core.PeriodCurrent {
			marker = " ←"
		}
		fmt.Fprintf(w, "%s\t%s\t%s%s\n", m.Month, m.Total.Format(), m.Period, marker)
	}
	fmt.Fprintf(w, "\t\t\n")
	fmt.Fprintf(w, "Pasado\t%s\t\n", sum.Past.Format())
	fmt.Fprintf(w, "Actual\t%s\t\n", sum.Current.Format())
	fmt.Fprintf(w, "Futuro\t%s\t\n", sum.Future.Format())
	return w.Flush()
}

func accountName(accounts []core.Account, id string) string {
	for _, a := range accounts {
		if a.ID == id {
			return a.Name
		}
	}
	return id
}

// share renders part as a whole-number percentage of total.
func share(part, total core.Money) string {
	if total.Cents == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", (part.Cents*100+total.Cents/2)/total.Cents)
}
