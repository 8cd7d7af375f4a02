package core

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roster = []string{"Alice", "Bob"}

func TestExpenseInputParse(t *testing.T) {
	in := ExpenseInput{Date: "2024-03-01", Product: " Groceries ", Price: "42.10", Payee: "Alice"}

	got, err := in.Parse(roster)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got.Date)
	assert.Equal(t, "Groceries", got.Product)
	assert.Equal(t, "42.10", got.Price.String())
	assert.Equal(t, "Alice", got.Payee)
}

func TestExpenseInputParseCollectsAllFieldErrors(t *testing.T) {
	_, err := ExpenseInput{}.Parse(roster)
	require.Error(t, err)

	verr, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, []string{"date cannot be empty"}, verr.Fields[FieldDate])
	assert.Equal(t, []string{"Product cannot be empty"}, verr.Fields[FieldProduct])
	assert.Equal(t, []string{"Price cannot be empty", "Price needs to be a valid currency value"}, verr.Fields[FieldPrice])
	assert.Equal(t, []string{"Payee cannot be empty"}, verr.Fields[FieldPayee])
}

func TestExpenseInputParseRejects(t *testing.T) {
	base := ExpenseInput{Date: "2024-03-01", Product: "Milk", Price: "1.50", Payee: "Bob"}

	tests := []struct {
		name   string
		mutate func(*ExpenseInput)
		field  string
	}{
		{"bad date", func(i *ExpenseInput) { i.Date = "01/03/2024" }, FieldDate},
		{"long product", func(i *ExpenseInput) { i.Product = strings.Repeat("x", 201) }, FieldProduct},
		{"three decimals", func(i *ExpenseInput) { i.Price = "1.505" }, FieldPrice},
		{"negative price", func(i *ExpenseInput) { i.Price = "-3" }, FieldPrice},
		{"nan price", func(i *ExpenseInput) { i.Price = "NaN" }, FieldPrice},
		{"unknown payee", func(i *ExpenseInput) { i.Payee = "Mallory" }, FieldPayee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := in.Parse(roster)
			verr, ok := AsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Len(t, verr.Fields, 1)
		})
	}
}

func TestNewExpenseValidate(t *testing.T) {
	ok := NewExpense{Date: "2024-01-31", Product: "Rent", Price: MustMoney("800"), Payee: "Carol"}
	assert.NoError(t, ok.Validate(nil))

	err := ok.Validate(roster)
	verr, isVerr := AsValidationError(err)
	require.True(t, isVerr)
	assert.Equal(t, []string{ErrUnknownPayee.Error()}, verr.Fields[FieldPayee])

	bad := ok
	bad.Price = MustMoney("0.001")
	assert.Error(t, bad.Validate(nil))
}

func TestNewExpenseRecord(t *testing.T) {
	n := NewExpense{Date: "2024-01-31", Product: "Rent", Price: MustMoney("800"), Payee: "Alice"}
	rec := n.Record("7")
	assert.Equal(t, "7", rec.ID)
	assert.Equal(t, n.Product, rec.Product)
	assert.True(t, rec.Price.Equal(n.Price.Decimal))
}

func TestValidationErrorMessage(t *testing.T) {
	verr := NewValidationError()
	assert.NoError(t, verr.OrNil())

	verr.Add(FieldPrice, ErrInvalidPrice)
	verr.Add(FieldDate, ErrEmptyDate)
	assert.Equal(t, "validation failed: date: date cannot be empty; price: Price needs to be a valid currency value", verr.Error())
}

func TestNewExpenseNormalized(t *testing.T) {
	got := NewExpense{Date: " 2024-03-01", Product: "  Tea ", Price: MustMoney("3"), Payee: "Alice\t"}.Normalized()
	assert.Equal(t, NewExpense{Date: "2024-03-01", Product: "Tea", Price: MustMoney("3"), Payee: "Alice"}, got)
}

func TestExpenseRecordUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string id", `{"id":"7","date":"2024-01-01","product":"Milk","price":10,"payee":"A"}`, "7"},
		{"numeric id", `{"id":1,"date":"2024-01-01","product":"Milk","price":10,"payee":"A"}`, "1"},
		{"uuid id", `{"id":"0b6f7e0c-3a4e-4a55-9a57-5f8f0f8a1d2e","date":"2024-01-01","product":"Milk","price":10,"payee":"A"}`, "0b6f7e0c-3a4e-4a55-9a57-5f8f0f8a1d2e"},
		{"missing id", `{"date":"2024-01-01","product":"Milk","price":10,"payee":"A"}`, ""},
		{"null id", `{"id":null,"date":"2024-01-01","product":"Milk","price":10,"payee":"A"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec ExpenseRecord
			require.NoError(t, json.Unmarshal([]byte(tt.body), &rec))
			assert.Equal(t, tt.want, rec.ID)
			assert.Equal(t, "Milk", rec.Product)
			assert.Equal(t, "10.00", rec.Price.String())
			assert.Equal(t, "A", rec.Payee)
		})
	}

	var rec ExpenseRecord
	assert.Error(t, json.Unmarshal([]byte(`{"id":true}`), &rec))
}
