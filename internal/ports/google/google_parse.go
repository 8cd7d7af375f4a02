package google

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

func toRow(rec core.ExpenseRecord) []any {
	return []any{rec.ID, rec.Date, rec.Product, rec.Price.InexactFloat64(), rec.Payee}
}

// parseRow converts a sheet row into a record. The header row fails to parse
// because its price cell is not numeric.
func parseRow(row []any) (core.ExpenseRecord, bool) {
	cols := toStrings(row)
	if len(cols) < numCols {
		return core.ExpenseRecord{}, false
	}
	if cols[colID] == "" || cols[colPayee] == "" {
		return core.ExpenseRecord{}, false
	}
	price, ok := parsePrice(row[colPrice])
	if !ok {
		return core.ExpenseRecord{}, false
	}
	return core.ExpenseRecord{
		ID:      cols[colID],
		Date:    cols[colDate],
		Product: cols[colProduct],
		Price:   price,
		Payee:   cols[colPayee],
	}, true
}

// parsePrice accepts unformatted numbers as well as text cells using either
// a dot or a comma as decimal separator.
func parsePrice(v any) (core.Money, bool) {
	var s string
	switch x := v.(type) {
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		s = strings.ReplaceAll(strings.TrimSpace(x), ",", ".")
	default:
		s = strings.TrimSpace(fmt.Sprint(x))
	}
	if s == "" {
		return core.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return core.Zero, false
	}
	return core.NewMoney(core.Round2(d)), true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// readColumn takes the first cell of each row, dropping blanks, comments and
// repeats while keeping order.
func readColumn(values [][]any) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(row[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
