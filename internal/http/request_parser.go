// Package http serves the ledger's JSON API.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"expensetracker/internal/core"
)

const maxBodyBytes = 64 << 10

// ErrMalformedBody is returned when the request body cannot be decoded.
var ErrMalformedBody = errors.New("malformed request body")

// expenseRequest is the POST /expenses body. Price may be a JSON number or
// a string so both programmatic and form-like clients are accepted.
type expenseRequest struct {
	Date    string          `json:"date"`
	Product string          `json:"product"`
	Price   json.RawMessage `json:"price"`
	Payee   string          `json:"payee"`
}

// ParseExpenseInput reads an expense submission encoded as JSON or as an
// urlencoded form. Field values are returned raw; validation happens later.
func ParseExpenseInput(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return core.ExpenseInput{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return core.ExpenseInput{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return core.ExpenseInput{
			Date:    sanitizeInput(form.Get("date")),
			Product: sanitizeInput(form.Get("product")),
			Price:   sanitizeInput(form.Get("price")),
			Payee:   sanitizeInput(form.Get("payee")),
		}, nil
	}

	var req expenseRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return core.ExpenseInput{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	price, err := rawPrice(req.Price)
	if err != nil {
		return core.ExpenseInput{}, err
	}
	return core.ExpenseInput{
		Date:    sanitizeInput(req.Date),
		Product: sanitizeInput(req.Product),
		Price:   sanitizeInput(price),
		Payee:   sanitizeInput(req.Payee),
	}, nil
}

// rawPrice returns the literal text of a JSON number or the contents of a
// JSON string. Absent and null prices are empty.
func rawPrice(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: price: %v", ErrMalformedBody, err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: price must be a number or a string", ErrMalformedBody)
	}
	return n.String(), nil
}

// sanitizeInput trims whitespace and drops control characters other than
// tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
