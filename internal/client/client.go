// Package client talks to the ledger's HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"expensetracker/internal/core"
)

const maxErrorBody = 64 << 10

// TransportError reports an unreachable server (Status 0) or a non-2xx
// response other than a validation failure.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchExpenses returns every stored expense.
func (c *Client) FetchExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	var out []core.ExpenseRecord
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.ExpenseRecord{}
	}
	return out, nil
}

// CreateExpense submits e and returns the stored record. A rejected
// submission is returned as *core.ValidationError.
func (c *Client) CreateExpense(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	var out core.ExpenseRecord
	if err := c.do(ctx, http.MethodPost, "/expenses", e, &out); err != nil {
		return core.ExpenseRecord{}, err
	}
	return out, nil
}

// FetchSummary returns the server-computed settlement summary.
func (c *Client) FetchSummary(ctx context.Context) (core.ExpenseSummary, error) {
	var out core.ExpenseSummary
	if err := c.do(ctx, http.MethodGet, "/summary", nil, &out); err != nil {
		return core.ExpenseSummary{}, err
	}
	return out, nil
}

func (c *Client) Payees(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/payees", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Status: resp.StatusCode, Message: "invalid response body", Err: err}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	decoded := json.Unmarshal(raw, &eb) == nil
	if resp.StatusCode == http.StatusUnprocessableEntity && decoded && len(eb.Fields) > 0 {
		return &core.ValidationError{Fields: eb.Fields}
	}

	msg := strings.TrimSpace(string(raw))
	if decoded && eb.Error != "" {
		msg = eb.Error
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			msg = fmt.Sprintf("%s (retry after %ss)", msg, ra)
		}
	}
	return &TransportError{Status: resp.StatusCode, Message: msg}
}
