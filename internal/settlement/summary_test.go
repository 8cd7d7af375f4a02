package settlement

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func rec(id, payee, price string) core.ExpenseRecord {
	return core.ExpenseRecord{ID: id, Date: "2024-01-01", Product: "item " + id, Price: core.MustMoney(price), Payee: payee}
}

func assertMoney(t *testing.T, want string, got core.Money) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got.Decimal)
}

func TestComputeSummary_Empty(t *testing.T) {
	got := ComputeSummary(nil)

	assertMoney(t, "0", got.TotalExpense)
	require.NotNil(t, got.ExpenseMadeByPayee)
	assert.Empty(t, got.ExpenseMadeByPayee)
	assert.Equal(t, "", got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "0", got.RemainingAmountToBePaid.Expense)

	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalExpense":0,"expenseMadeByPayee":[],"remainingAmountToBePaid":{"payee":"","expense":0}}`, string(b))
}

func TestComputeSummary_Balanced(t *testing.T) {
	got := ComputeSummary([]core.ExpenseRecord{rec("1", "A", "10"), rec("2", "B", "10")})

	assertMoney(t, "20", got.TotalExpense)
	require.Len(t, got.ExpenseMadeByPayee, 2)
	assert.Equal(t, "A", got.ExpenseMadeByPayee[0].Payee)
	assertMoney(t, "10", got.ExpenseMadeByPayee[0].Expense)
	assert.Equal(t, "B", got.ExpenseMadeByPayee[1].Payee)
	assertMoney(t, "10", got.ExpenseMadeByPayee[1].Expense)
	assert.True(t, got.IsSettled())
	assert.Equal(t, "", got.RemainingAmountToBePaid.Payee)
}

func TestComputeSummary_Unbalanced(t *testing.T) {
	got := ComputeSummary([]core.ExpenseRecord{rec("1", "A", "30"), rec("2", "B", "10")})

	assertMoney(t, "40", got.TotalExpense)
	assert.Equal(t, "A", got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "10", got.RemainingAmountToBePaid.Expense)
}

func TestComputeSummary_SinglePayee(t *testing.T) {
	got := ComputeSummary([]core.ExpenseRecord{rec("1", "A", "15")})

	assertMoney(t, "15", got.TotalExpense)
	require.Len(t, got.ExpenseMadeByPayee, 1)
	assert.Equal(t, core.NoSettlement.Payee, got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "0", got.RemainingAmountToBePaid.Expense)
}

func TestComputeSummary_FirstAppearanceOrder(t *testing.T) {
	got := ComputeSummary([]core.ExpenseRecord{
		rec("1", "Carol", "5"),
		rec("2", "Alice", "7"),
		rec("3", "Carol", "1.25"),
		rec("4", "Bob", "3"),
		rec("5", "Alice", "0.75"),
	})

	payees := make([]string, 0, len(got.ExpenseMadeByPayee))
	for _, p := range got.ExpenseMadeByPayee {
		payees = append(payees, p.Payee)
	}
	assert.Equal(t, []string{"Carol", "Alice", "Bob"}, payees)
	assertMoney(t, "6.25", got.ExpenseMadeByPayee[0].Expense)
	assertMoney(t, "7.75", got.ExpenseMadeByPayee[1].Expense)
	assertMoney(t, "3", got.ExpenseMadeByPayee[2].Expense)
}

func TestComputeSummary_TotalsAgree(t *testing.T) {
	expenses := []core.ExpenseRecord{
		rec("1", "A", "0.01"), rec("2", "B", "19.99"), rec("3", "C", "3.33"),
		rec("4", "A", "12.10"), rec("5", "B", "0.05"), rec("6", "C", "100"),
	}
	got := ComputeSummary(expenses)

	sum := decimal.Zero
	for _, p := range got.ExpenseMadeByPayee {
		sum = sum.Add(p.Expense.Decimal)
	}
	assert.True(t, sum.Sub(got.TotalExpense.Decimal).Abs().LessThanOrEqual(decimal.RequireFromString("0.01")),
		"per-payee sum %s vs total %s", sum, got.TotalExpense.Decimal)
	assertMoney(t, "135.48", got.TotalExpense)
}

func TestComputeSummary_Idempotent(t *testing.T) {
	expenses := []core.ExpenseRecord{rec("1", "A", "12.34"), rec("2", "B", "5.66"), rec("3", "C", "1")}

	first, err := json.Marshal(ComputeSummary(expenses))
	require.NoError(t, err)
	second, err := json.Marshal(ComputeSummary(expenses))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestComputeSummary_DoesNotMutateInput(t *testing.T) {
	expenses := []core.ExpenseRecord{rec("1", "A", "1.005"), rec("2", "B", "2")}
	before := fmt.Sprintf("%v", expenses)
	ComputeSummary(expenses)
	assert.Equal(t, before, fmt.Sprintf("%v", expenses))
}

func TestComputeSummary_NoOverContributor(t *testing.T) {
	// fair share rounds to 0.01, so B is short and nobody is above it.
	got := ComputeSummary([]core.ExpenseRecord{rec("1", "A", "0.01"), rec("2", "B", "0")})

	assertMoney(t, "0.01", got.TotalExpense)
	assert.Equal(t, "", got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "0", got.RemainingAmountToBePaid.Expense)
}

func TestComputeSummary_ExactFairShareExcluded(t *testing.T) {
	// fair share is 20: C sits on it and is neither owed nor owing.
	got := ComputeSummary([]core.ExpenseRecord{rec("1", "A", "30"), rec("2", "B", "10"), rec("3", "C", "20")})

	assert.Equal(t, "A", got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "10", got.RemainingAmountToBePaid.Expense)
}

func TestComputeSummary_FirstOverContributorReceives(t *testing.T) {
	// fair share is 20; B and C are over, B appeared first.
	got := ComputeSummary([]core.ExpenseRecord{rec("1", "A", "5"), rec("2", "B", "25"), rec("3", "C", "30")})

	assert.Equal(t, "B", got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "5", got.RemainingAmountToBePaid.Expense)
}

func TestCalculator_Rules(t *testing.T) {
	twoPayees := []core.ExpenseRecord{rec("1", "A", "30"), rec("2", "B", "10")}
	threePayees := []core.ExpenseRecord{rec("1", "A", "60"), rec("2", "B", "0"), rec("3", "C", "0")}

	tests := []struct {
		name     string
		rule     RuleName
		input    []core.ExpenseRecord
		wantWho  string
		wantOwed string
	}{
		{"deficit two payees", RuleDeficit, twoPayees, "A", "10"},
		{"net two payees", RuleNet, twoPayees, "A", "20"},
		{"legacy two payees", RuleLegacy, twoPayees, "A", "20"},
		{"deficit three payees", RuleDeficit, threePayees, "A", "40"},
		{"net three payees", RuleNet, threePayees, "A", "20"},
		{"legacy three payees", RuleLegacy, threePayees, "A", "60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := GetRule(tt.rule)
			require.NoError(t, err)

			got := New(rule).ComputeSummary(tt.input)
			assert.Equal(t, tt.wantWho, got.RemainingAmountToBePaid.Payee)
			assertMoney(t, tt.wantOwed, got.RemainingAmountToBePaid.Expense)
		})
	}
}

func TestComputeSummary_DefaultRuleThreePayees(t *testing.T) {
	got := ComputeSummary([]core.ExpenseRecord{rec("1", "A", "60"), rec("2", "B", "0"), rec("3", "C", "0")})

	assertMoney(t, "60", got.TotalExpense)
	assert.Equal(t, "A", got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "40", got.RemainingAmountToBePaid.Expense)
}

func TestCalculator_NetRuleNonPositiveIsZero(t *testing.T) {
	// fair share 10: A is the first over-contributor but the deficit of B and C
	// exceeds what A paid.
	input := []core.ExpenseRecord{rec("1", "A", "11"), rec("2", "B", "0"), rec("3", "C", "0"), rec("4", "D", "29")}
	got := New(NetRule{}).ComputeSummary(input)

	assert.Equal(t, "", got.RemainingAmountToBePaid.Payee)
	assertMoney(t, "0", got.RemainingAmountToBePaid.Expense)
}

func TestGetRule(t *testing.T) {
	rule, err := GetRule("")
	require.NoError(t, err)
	assert.IsType(t, DeficitRule{}, rule)

	_, err = GetRule("greedy")
	assert.EqualError(t, err, "unknown settlement rule: greedy")

	assert.Equal(t, []string{"deficit", "legacy", "net"}, RuleNames())
}
