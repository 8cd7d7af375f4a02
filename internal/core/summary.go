package core

type (
	// PayeeExpense is the rounded amount attributed to a payee.
	PayeeExpense struct {
		Payee   string `json:"payee"`
		Expense Money  `json:"expense"`
	}

	// ExpenseSummary is derived from a record list and never stored.
	ExpenseSummary struct {
		TotalExpense            Money          `json:"totalExpense"`
		ExpenseMadeByPayee      []PayeeExpense `json:"expenseMadeByPayee"`
		RemainingAmountToBePaid PayeeExpense   `json:"remainingAmountToBePaid"`
	}
)

// NoSettlement is the empty-payee, zero-amount settlement.
var NoSettlement = PayeeExpense{Payee: "", Expense: Zero}

// EmptySummary is the summary of an empty record list.
func EmptySummary() ExpenseSummary {
	return ExpenseSummary{
		TotalExpense:            Zero,
		ExpenseMadeByPayee:      []PayeeExpense{},
		RemainingAmountToBePaid: NoSettlement,
	}
}

// IsSettled reports whether nobody owes anything.
func (s ExpenseSummary) IsSettled() bool {
	return s.RemainingAmountToBePaid.Payee == "" || s.RemainingAmountToBePaid.Expense.IsZero()
}
