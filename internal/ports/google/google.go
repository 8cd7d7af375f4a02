package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

// Column layout of the expenses sheet: A=id, B=date, C=product, D=price, E=payee.
const (
	colID = iota
	colDate
	colProduct
	colPrice
	colPayee
	numCols
)

var header = []any{"id", "date", "product", "price", "payee"}

var (
	_ ports.ExpenseStore = (*Client)(nil)
	_ ports.PayeeReader  = (*Client)(nil)
)

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	ExpensesSheet string
	PayeesSheet   string
	// Credentials is a service account JSON key.
	Credentials []byte
	// ClientOptions are appended after the credential options.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	expensesSheet string
	payeesSheet   string
	newID         func() string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	var clientOpts []goption.ClientOption
	if len(opts.Credentials) > 0 {
		clientOpts = append(clientOpts,
			goption.WithCredentialsJSON(opts.Credentials),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	if len(opts.ClientOptions) == 0 {
		clientOpts = append(clientOpts, goption.WithHTTPClient(newHTTPClientWithPooling()))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID, "sheet", opts.ExpensesSheet)

	return NewWithService(svc, opts.SpreadsheetID, opts.ExpensesSheet, opts.PayeesSheet), nil
}

// NewWithService wraps an existing service. Empty sheet names default to
// "Expenses" and "Payees".
func NewWithService(svc *gsheet.Service, spreadsheetID, expensesSheet, payeesSheet string) *Client {
	if strings.TrimSpace(expensesSheet) == "" {
		expensesSheet = "Expenses"
	}
	if strings.TrimSpace(payeesSheet) == "" {
		payeesSheet = "Payees"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		expensesSheet: expensesSheet,
		payeesSheet:   payeesSheet,
		newID:         uuid.NewString,
	}
}

// newHTTPClientWithPooling returns an HTTP client with bounded timeouts and
// keep-alive connection reuse for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// CreateExpense assigns a UUID and appends e as a new row.
func (c *Client) CreateExpense(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	if err := e.Validate(nil); err != nil {
		return core.ExpenseRecord{}, err
	}
	rec := e.Record(c.newID())
	if _, err := c.AppendRecord(ctx, rec); err != nil {
		return core.ExpenseRecord{}, err
	}
	return rec, nil
}

// AppendRecord writes rec, keeping its existing ID, and returns the updated
// range.
func (c *Client) AppendRecord(ctx context.Context, rec core.ExpenseRecord) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:E", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{toRow(rec)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.expensesSheet, err)
	}
	if resp.Updates != nil {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// ListExpenses reads every row of the expenses sheet. The header row and
// rows that cannot be parsed are skipped.
func (c *Client) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:E", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	out := make([]core.ExpenseRecord, 0, len(resp.Values))
	for i, row := range resp.Values {
		rec, ok := parseRow(row)
		if !ok {
			if i > 0 {
				slog.WarnContext(ctx, "Skipping unparseable sheet row", "sheet", c.expensesSheet, "row", i+1)
			}
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListPayees reads column A of the payees sheet below its header.
func (c *Client) ListPayees(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:A", c.payeesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return readColumn(resp.Values), nil
}

// EnsureHeader writes the header row when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	rng := fmt.Sprintf("%s!A1:E1", c.expensesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) > 0 {
		return nil
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header to %s: %w", c.expensesSheet, err)
	}
	return nil
}
