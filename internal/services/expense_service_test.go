package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/ports/memory"
	"expensetracker/internal/settlement"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelError, Format: applog.FormatJSON, Output: io.Discard})
}

type fakePublisher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakePublisher) PublishExpenseSync(_ context.Context, id string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, id)
	return f.err
}

// countingStore wraps a memory store and counts list calls.
type countingStore struct {
	*memory.Store
	lists   int
	listErr error
}

func (c *countingStore) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	c.lists++
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.Store.ListExpenses(ctx)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newExpense(price, payee string) core.NewExpense {
	return core.NewExpense{Date: "2024-04-01", Product: "Groceries", Price: core.MustMoney(price), Payee: payee}
}

func TestCreateExpensePublishesAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.New([]string{"A", "B"}, nil)}
	pub := &fakePublisher{}
	svc := NewExpenseService(Options{
		Store:       store,
		PayeeReader: store,
		Publisher:   pub,
		CacheTTL:    time.Minute,
		Logger:      quietLogger(),
	})

	list, err := svc.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)

	_, err = svc.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.lists, "second list should be served from cache")

	rec, err := svc.CreateExpense(ctx, newExpense("30", "A"))
	require.NoError(t, err)
	assert.Equal(t, []string{rec.ID}, pub.ids)

	list, err = svc.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 2, store.lists)
}

func TestCreateExpenseRejectsUnknownPayee(t *testing.T) {
	svc := NewExpenseService(Options{
		Store:  memory.New(nil, nil),
		Roster: []string{"A", "B"},
		Logger: quietLogger(),
	})

	_, err := svc.CreateExpense(context.Background(), newExpense("1", "Z"))
	verr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, core.FieldPayee)
}

func TestCreateExpensePublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(Options{Store: memory.New(nil, nil), Publisher: pub, Logger: quietLogger()})

	rec, err := svc.CreateExpense(context.Background(), newExpense("5", "A"))
	require.NoError(t, err)
	assert.Equal(t, "1", rec.ID)
}

func TestCreateExpenseTrimsBeforeStoring(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(Options{Store: memory.New(nil, nil), Roster: []string{"A", "B"}, Logger: quietLogger()})

	padded := core.NewExpense{Date: " 2024-04-01 ", Product: "  Groceries ", Price: core.MustMoney("30"), Payee: " A "}
	rec, err := svc.CreateExpense(ctx, padded)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", rec.Date)
	assert.Equal(t, "Groceries", rec.Product)
	assert.Equal(t, "A", rec.Payee)

	_, err = svc.CreateExpense(ctx, newExpense("10", "A"))
	require.NoError(t, err)

	snap, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Summary.ExpenseMadeByPayee, 1)
	assert.Equal(t, "40.00", snap.Summary.ExpenseMadeByPayee[0].Expense.String())
}

func TestCreateFromInput(t *testing.T) {
	svc := NewExpenseService(Options{Store: memory.New(nil, nil), Roster: []string{"A"}, Logger: quietLogger()})

	rec, err := svc.CreateFromInput(context.Background(), core.ExpenseInput{Date: "2024-01-01", Product: "Tea", Price: "3.5", Payee: "A"})
	require.NoError(t, err)
	assert.Equal(t, "3.50", rec.Price.String())

	_, err = svc.CreateFromInput(context.Background(), core.ExpenseInput{Date: "2024-01-01", Product: "Tea", Price: "3.555", Payee: "A"})
	_, ok := core.AsValidationError(err)
	assert.True(t, ok)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	store := memory.New(nil, []core.ExpenseRecord{
		{ID: "1", Date: "2024-01-01", Product: "x", Price: core.MustMoney("30"), Payee: "A"},
		{ID: "2", Date: "2024-01-02", Product: "y", Price: core.MustMoney("10"), Payee: "B"},
	})

	rule, err := settlement.GetRule(settlement.RuleLegacy)
	require.NoError(t, err)

	def := NewExpenseService(Options{Store: store, Logger: quietLogger()})
	snap, err := def.Summary(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Expenses, 2)
	assert.Equal(t, "A", snap.Summary.RemainingAmountToBePaid.Payee)
	assert.Equal(t, "10.00", snap.Summary.RemainingAmountToBePaid.Expense.String())

	legacy := NewExpenseService(Options{Store: store, Calculator: settlement.New(rule), Logger: quietLogger()})
	snap, err = legacy.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20.00", snap.Summary.RemainingAmountToBePaid.Expense.String())
}

func TestBackendErrors(t *testing.T) {
	store := &countingStore{Store: memory.New(nil, nil), listErr: errors.New("disk on fire")}
	svc := NewExpenseService(Options{Store: store, Logger: quietLogger()})

	_, err := svc.Summary(context.Background())
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "list expenses", berr.Op)
	assert.EqualError(t, err, "list expenses: disk on fire")
}

func TestPayees(t *testing.T) {
	ctx := context.Background()

	configured := NewExpenseService(Options{Store: memory.New([]string{"X"}, nil), PayeeReader: memory.New([]string{"X"}, nil), Roster: []string{"A", "B"}, Logger: quietLogger()})
	got, err := configured.Payees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)

	store := memory.New([]string{"X", "Y"}, nil)
	fromStore := NewExpenseService(Options{Store: store, PayeeReader: store, Logger: quietLogger()})
	got, err = fromStore.Payees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, got)

	none := NewExpenseService(Options{Store: store, Logger: quietLogger()})
	got, err = none.Payees(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClose(t *testing.T) {
	var closed []string
	svc := NewExpenseService(Options{
		Store:  memory.New(nil, nil),
		Logger: quietLogger(),
		Closers: []io.Closer{
			closerFunc(func() error { closed = append(closed, "a"); return nil }),
			nil,
			closerFunc(func() error { closed = append(closed, "b"); return errors.New("b failed") }),
		},
	})

	err := svc.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")
	assert.Equal(t, []string{"a", "b"}, closed)

	assert.NoError(t, NewExpenseService(Options{Store: memory.New(nil, nil)}).Close())
	assert.Nil(t, NewExpenseService(Options{Store: memory.New(nil, nil)}).CacheCleaner())
}
