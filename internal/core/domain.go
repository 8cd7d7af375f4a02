package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of an expense date.
const DateLayout = "2006-01-02"

type (
	// ExpenseRecord is a persisted purchase. Records are immutable once the
	// persistence boundary has assigned an ID.
	ExpenseRecord struct {
		ID      string `json:"id"`
		Date    string `json:"date"`
		Product string `json:"product"`
		Price   Money  `json:"price"`
		Payee   string `json:"payee"`
	}

	// NewExpense is the write-path payload: an ExpenseRecord without ID.
	NewExpense struct {
		Date    string `json:"date"`
		Product string `json:"product"`
		Price   Money  `json:"price"`
		Payee   string `json:"payee"`
	}

	// ExpenseInput holds raw, unparsed form values as typed by a user.
	ExpenseInput struct {
		Date    string
		Product string
		Price   string
		Payee   string
	}
)

const (
	FieldDate    = "date"
	FieldProduct = "product"
	FieldPrice   = "price"
	FieldPayee   = "payee"
)

const maxProductLength = 200

var (
	ErrEmptyDate      = errors.New("date cannot be empty")
	ErrInvalidDate    = errors.New("date must be formatted as YYYY-MM-DD")
	ErrEmptyProduct   = errors.New("Product cannot be empty")
	ErrProductTooLong = errors.New("Product too long (max 200 characters)")
	ErrEmptyPrice     = errors.New("Price cannot be empty")
	ErrInvalidPrice   = errors.New("Price needs to be a valid currency value")
	ErrEmptyPayee     = errors.New("Payee cannot be empty")
	ErrUnknownPayee   = errors.New("Payee is not one of the configured payees")
)

// Record attaches an identifier to the new expense.
func (n NewExpense) Record(id string) ExpenseRecord {
	return ExpenseRecord{
		ID:      id,
		Date:    n.Date,
		Product: n.Product,
		Price:   n.Price,
		Payee:   n.Payee,
	}
}

// Normalized returns n with surrounding whitespace removed from its text fields.
func (n NewExpense) Normalized() NewExpense {
	n.Date = strings.TrimSpace(n.Date)
	n.Product = strings.TrimSpace(n.Product)
	n.Payee = strings.TrimSpace(n.Payee)
	return n
}

// UnmarshalJSON accepts the id as a JSON string or number. Numeric ids, as
// written by json-server, are kept in their literal decimal form.
func (r *ExpenseRecord) UnmarshalJSON(data []byte) error {
	type plain ExpenseRecord
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.ID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		r.ID = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &r.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("id must be a string or number: %w", err)
		}
		r.ID = n.String()
	}
	return nil
}

// Validate checks every field and reports all problems at once. An empty
// roster accepts any non-blank payee.
func (n NewExpense) Validate(roster []string) error {
	verr := NewValidationError()
	validateDate(verr, n.Date)
	validateProduct(verr, n.Product)
	if !n.Price.IsCurrency() {
		verr.Add(FieldPrice, ErrInvalidPrice)
	}
	validatePayee(verr, n.Payee, roster)
	return verr.OrNil()
}

// Parse converts raw form values into a NewExpense, collecting field errors.
func (in ExpenseInput) Parse(roster []string) (NewExpense, error) {
	verr := NewValidationError()
	validateDate(verr, in.Date)
	validateProduct(verr, in.Product)
	validatePayee(verr, in.Payee, roster)

	price, err := ParsePrice(in.Price)
	if strings.TrimSpace(in.Price) == "" {
		verr.Add(FieldPrice, ErrEmptyPrice)
	}
	if err != nil {
		verr.Add(FieldPrice, ErrInvalidPrice)
	}
	if err := verr.OrNil(); err != nil {
		return NewExpense{}, err
	}

	return NewExpense{
		Date:    strings.TrimSpace(in.Date),
		Product: strings.TrimSpace(in.Product),
		Price:   price,
		Payee:   strings.TrimSpace(in.Payee),
	}, nil
}

func validateDate(verr *ValidationError, date string) {
	date = strings.TrimSpace(date)
	if date == "" {
		verr.Add(FieldDate, ErrEmptyDate)
		return
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		verr.Add(FieldDate, ErrInvalidDate)
	}
}

func validateProduct(verr *ValidationError, product string) {
	product = strings.TrimSpace(product)
	if product == "" {
		verr.Add(FieldProduct, ErrEmptyProduct)
		return
	}
	if len(product) > maxProductLength {
		verr.Add(FieldProduct, ErrProductTooLong)
	}
}

func validatePayee(verr *ValidationError, payee string, roster []string) {
	payee = strings.TrimSpace(payee)
	if payee == "" {
		verr.Add(FieldPayee, ErrEmptyPayee)
		return
	}
	if len(roster) > 0 && !slices.Contains(roster, payee) {
		verr.Add(FieldPayee, ErrUnknownPayee)
	}
}
