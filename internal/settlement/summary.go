package settlement

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Calculator computes summaries with a fixed settlement rule. The zero value
// uses DefaultRule.
type Calculator struct {
	rule Rule
}

// New returns a Calculator using rule. A nil rule selects DefaultRule.
func New(rule Rule) Calculator {
	return Calculator{rule: rule}
}

// ComputeSummary computes the summary with DefaultRule.
func ComputeSummary(expenses []core.ExpenseRecord) core.ExpenseSummary {
	return Calculator{}.ComputeSummary(expenses)
}

// ComputeSummary is a pure function of expenses: it performs no I/O and
// returns an identical summary for identical input.
func (c Calculator) ComputeSummary(expenses []core.ExpenseRecord) core.ExpenseSummary {
	if len(expenses) == 0 {
		return core.EmptySummary()
	}

	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Price.Decimal)
	}

	byPayee := totalsByPayee(expenses)
	return core.ExpenseSummary{
		TotalExpense:            core.NewMoney(core.Round2(total)),
		ExpenseMadeByPayee:      byPayee,
		RemainingAmountToBePaid: c.settle(core.Round2(total), byPayee),
	}
}

// totalsByPayee sums prices per payee, keeping the order in which each payee
// first appears.
func totalsByPayee(expenses []core.ExpenseRecord) []core.PayeeExpense {
	index := make(map[string]int)
	sums := make([]decimal.Decimal, 0)
	order := make([]string, 0)

	for _, e := range expenses {
		i, seen := index[e.Payee]
		if !seen {
			i = len(order)
			index[e.Payee] = i
			order = append(order, e.Payee)
			sums = append(sums, decimal.Zero)
		}
		sums[i] = sums[i].Add(e.Price.Decimal)
	}

	out := make([]core.PayeeExpense, len(order))
	for i, payee := range order {
		out[i] = core.PayeeExpense{Payee: payee, Expense: core.NewMoney(core.Round2(sums[i]))}
	}
	return out
}

func (c Calculator) settle(total decimal.Decimal, byPayee []core.PayeeExpense) core.PayeeExpense {
	if len(byPayee) == 0 {
		return core.NoSettlement
	}

	fairShare := core.Round2(total.Div(decimal.NewFromInt(int64(len(byPayee)))))

	var under, over []core.PayeeExpense
	for _, p := range byPayee {
		switch p.Expense.Cmp(fairShare) {
		case -1:
			under = append(under, p)
		case 1:
			over = append(over, p)
		}
	}

	// Rounding of the fair share can leave a shortfall with nobody above it.
	if len(under) == 0 || len(over) == 0 {
		return core.NoSettlement
	}

	rule := c.rule
	if rule == nil {
		rule = rules[DefaultRule]
	}

	receiver := over[0]
	amount := rule.Amount(receiver, fairShare, under)
	if !amount.IsPositive() {
		return core.NoSettlement
	}
	return core.PayeeExpense{Payee: receiver.Payee, Expense: core.NewMoney(core.Round2(amount))}
}
