package ports

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for the persistence boundary.
type (
	// ExpenseWriter persists a new expense and returns it with its assigned ID.
	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error)
	}

	// ExpenseLister returns every stored expense in storage order.
	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
	}

	// PayeeReader returns the roster of people allowed to pay.
	PayeeReader interface {
		ListPayees(ctx context.Context) ([]string, error)
	}

	// ExpenseStore is a full read/write backend.
	ExpenseStore interface {
		ExpenseWriter
		ExpenseLister
	}
)
