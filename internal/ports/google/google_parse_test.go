package google

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"expensetracker/internal/core"
)

func TestParseRow(t *testing.T) {
	tests := []struct {
		name      string
		row       []any
		wantOK    bool
		wantPrice string
	}{
		{"header row", []any{"id", "date", "product", "price", "payee"}, false, ""},
		{"numeric price", []any{"u1", "2024-01-01", "Milk", 2.5, "Alice"}, true, "2.50"},
		{"text price with comma", []any{"u2", "2024-01-01", "Bread", "3,10", "Bob"}, true, "3.10"},
		{"rounds float noise", []any{"u3", "2024-01-01", "Tea", 0.30000000000000004, "Bob"}, true, "0.30"},
		{"short row", []any{"u4", "2024-01-01", "Tea"}, false, ""},
		{"negative price", []any{"u5", "2024-01-01", "Tea", -1.0, "Bob"}, false, ""},
		{"missing payee", []any{"u6", "2024-01-01", "Tea", 1.0, ""}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := parseRow(tt.row)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantPrice, rec.Price.String())
			}
		})
	}
}

func TestToRow(t *testing.T) {
	rec := core.ExpenseRecord{ID: "u1", Date: "2024-02-29", Product: "Cake", Price: core.MustMoney("12.34"), Payee: "Carol"}
	assert.Equal(t, []any{"u1", "2024-02-29", "Cake", 12.34, "Carol"}, toRow(rec))

	parsed, ok := parseRow(toRow(rec))
	assert.True(t, ok)
	assert.Equal(t, rec.ID, parsed.ID)
	assert.True(t, parsed.Price.Equal(rec.Price.Decimal))
}

func TestReadColumn(t *testing.T) {
	values := [][]any{
		{"Alice"},
		{},
		{"# comment"},
		{" Bob "},
		{"Alice"},
		{""},
	}
	assert.Equal(t, []string{"Alice", "Bob"}, readColumn(values))
}
