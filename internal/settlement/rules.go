// Package settlement turns a list of expense records into a fairness summary.
//
// This file implements the settlement rules. Each rule derives the amount the
// receiver is still owed from the receiver's contribution, the fair share and
// the payees who paid less than the fair share.
package settlement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// RuleName identifies a settlement rule in configuration.
type RuleName string

const (
	RuleDeficit RuleName = "deficit"
	RuleNet     RuleName = "net"
	RuleLegacy  RuleName = "legacy"
)

// DefaultRule is used when no rule is configured.
const DefaultRule = RuleDeficit

// Rule is the strategy interface for computing the candidate settlement
// amount. A non-positive result means nothing is owed.
type Rule interface {
	Amount(receiver core.PayeeExpense, fairShare decimal.Decimal, under []core.PayeeExpense) decimal.Decimal
}

// DeficitRule caps what the receiver is owed at both the total shortfall of
// the under-contributors and the receiver's own surplus. With three or more
// payees it differs from NetRule: A60/B0/C0 settles as A/40, not A/20.
type DeficitRule struct{}

func (DeficitRule) Amount(receiver core.PayeeExpense, fairShare decimal.Decimal, under []core.PayeeExpense) decimal.Decimal {
	surplus := receiver.Expense.Sub(fairShare)
	return decimal.Min(deficitSum(fairShare, under), surplus)
}

// NetRule subtracts the total shortfall from the receiver's contribution.
type NetRule struct{}

func (NetRule) Amount(receiver core.PayeeExpense, fairShare decimal.Decimal, under []core.PayeeExpense) decimal.Decimal {
	return receiver.Expense.Sub(deficitSum(fairShare, under))
}

// LegacyRule subtracts what the under-contributors actually paid from the
// receiver's contribution.
type LegacyRule struct{}

func (LegacyRule) Amount(receiver core.PayeeExpense, _ decimal.Decimal, under []core.PayeeExpense) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range under {
		paid = paid.Add(p.Expense.Decimal)
	}
	return receiver.Expense.Sub(paid)
}

// deficitSum is unrounded; only the final amount is rounded.
func deficitSum(fairShare decimal.Decimal, under []core.PayeeExpense) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range under {
		sum = sum.Add(fairShare.Sub(p.Expense.Decimal))
	}
	return sum
}

var rules = map[RuleName]Rule{
	RuleDeficit: DeficitRule{},
	RuleNet:     NetRule{},
	RuleLegacy:  LegacyRule{},
}

// GetRule returns the rule registered under name. An empty name selects
// DefaultRule.
func GetRule(name RuleName) (Rule, error) {
	if name == "" {
		name = DefaultRule
	}
	rule, ok := rules[name]
	if !ok {
		return nil, fmt.Errorf("unknown settlement rule: %s", name)
	}
	return rule, nil
}

// RuleNames lists registered rule names in sorted order.
func RuleNames() []string {
	names := make([]string, 0, len(rules))
	for n := range rules {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}
