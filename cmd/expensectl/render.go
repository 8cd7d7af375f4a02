package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"expensetracker/internal/core"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func renderExpenses(out io.Writer, expenses []core.ExpenseRecord) error {
	if len(expenses) == 0 {
		_, err := fmt.Fprintln(out, "No expenses recorded.")
		return err
	}

	tw := newTable(out)
	fmt.Fprintln(tw, "Date\tProduct Purchased\tPrice\tPayee")
	for _, e := range expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Date, e.Product, e.Price, e.Payee)
	}
	return tw.Flush()
}

// renderSummary prints the settlement table. The final row names the payee
// to be reimbursed, or is blank when everyone is even.
func renderSummary(out io.Writer, s core.ExpenseSummary) error {
	tw := newTable(out)
	fmt.Fprintf(tw, "Total:\t%s\n", s.TotalExpense)
	for _, p := range s.ExpenseMadeByPayee {
		fmt.Fprintf(tw, "%s Paid:\t%s\n", p.Payee, p.Expense)
	}
	fmt.Fprintf(tw, "Pay %s\t%s\n", s.RemainingAmountToBePaid.Payee, s.RemainingAmountToBePaid.Expense)
	return tw.Flush()
}
