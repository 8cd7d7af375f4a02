package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func newExpense(product, price, payee string) core.NewExpense {
	return core.NewExpense{Date: "2024-05-01", Product: product, Price: core.MustMoney(price), Payee: payee}
}

func TestStoreCreateAndList(t *testing.T) {
	ctx := context.Background()
	s := New([]string{"Alice", "Bob", "Alice"}, nil)

	payees, err := s.ListPayees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, payees)

	first, err := s.CreateExpense(ctx, newExpense("Milk", "1.20", "Alice"))
	require.NoError(t, err)
	second, err := s.CreateExpense(ctx, newExpense("Bread", "2", "Bob"))
	require.NoError(t, err)
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "2", second.ID)

	list, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Milk", list[0].Product)
	assert.Equal(t, "Bread", list[1].Product)

	list[0].Product = "mutated"
	again, _ := s.ListExpenses(ctx)
	assert.Equal(t, "Milk", again[0].Product)
}

func TestStoreRejectsInvalid(t *testing.T) {
	s := New(nil, nil)
	_, err := s.CreateExpense(context.Background(), core.NewExpense{})
	_, ok := core.AsValidationError(err)
	assert.True(t, ok)
}

func TestStoreConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateExpense(ctx, newExpense("x", "1", "A"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, _ := s.ListExpenses(ctx)
	assert.Len(t, list, 50)
	ids := map[string]bool{}
	for _, r := range list {
		ids[r.ID] = true
	}
	assert.Len(t, ids, 50)
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFiles(dir)
	require.NoError(t, err)
	list, _ := s.ListExpenses(context.Background())
	assert.Empty(t, list)

	mustWrite := func(name, content string) {
		t.Helper()
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	mustWrite("seed_payees.txt", "# roster\nAlice\nBob\nAlice\n\n")
	mustWrite("db.json", `{"expenses":[
		{"id":"4","date":"2024-01-02","product":"Rent","price":800,"payee":"Alice"},
		{"id":"9","date":"2024-01-03","product":"Gas","price":"35.5","payee":"Bob"}
	]}`)

	s, err = NewFromFiles(dir)
	require.NoError(t, err)

	payees, _ := s.ListPayees(context.Background())
	assert.Equal(t, []string{"Alice", "Bob"}, payees)

	list, _ = s.ListExpenses(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, "35.50", list[1].Price.String())

	rec, err := s.CreateExpense(context.Background(), newExpense("Milk", "1", "Bob"))
	require.NoError(t, err)
	assert.Equal(t, "10", rec.ID)
}

func TestNewFromFilesNumericIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.json"), []byte(`{"expenses":[
		{"id":1,"date":"2024-01-01","product":"milk","price":10,"payee":"A"},
		{"id":"3","date":"2024-01-02","product":"eggs","price":4.5,"payee":"B"}
	]}`), 0o644))

	s, err := NewFromFiles(dir)
	require.NoError(t, err)

	list, err := s.ListExpenses(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, "3", list[1].ID)

	rec, err := s.CreateExpense(context.Background(), newExpense("Tea", "2", "A"))
	require.NoError(t, err)
	assert.Equal(t, "4", rec.ID)
}

func TestNewFromFilesMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.json"), []byte(`{"expenses":[{`), 0o644))

	_, err := NewFromFiles(dir)
	assert.Error(t, err)
}
