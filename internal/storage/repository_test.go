package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "expenses.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func newExpense(product, price, payee string) core.NewExpense {
	return core.NewExpense{Date: "2024-06-01", Product: product, Price: core.MustMoney(price), Payee: payee}
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)

	version, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Running again is a no-op.
	require.NoError(t, RunMigrations(path))
}

func TestCreateAndListExpenses(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateExpense(ctx, newExpense("Milk", "1.20", "Alice"))
	require.NoError(t, err)
	_, err = repo.CreateExpense(ctx, newExpense("Wine", "12", "Bob"))
	require.NoError(t, err)

	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "1.20", first.Price.String())

	list, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Milk", list[0].Product)
	assert.Equal(t, "Wine", list[1].Product)
	assert.Equal(t, "12.00", list[1].Price.String())
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.CreateExpense(context.Background(), newExpense("", "1", "Alice"))
	_, ok := core.AsValidationError(err)
	assert.True(t, ok)
}

func TestSyncLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	a, err := repo.CreateExpense(ctx, newExpense("A", "1", "Alice"))
	require.NoError(t, err)
	b, err := repo.CreateExpense(ctx, newExpense("B", "2", "Bob"))
	require.NoError(t, err)

	pending, err := repo.GetPendingSyncExpenses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, a.ID, pending[0].ID)
	assert.False(t, pending[0].CreatedAt.IsZero())

	require.NoError(t, repo.MarkSynced(ctx, a.ID))
	require.NoError(t, repo.MarkSyncError(ctx, b.ID))

	stored, err := repo.GetExpense(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, stored.SyncStatus)

	pending, err = repo.GetPendingSyncExpenses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	pending, err = repo.GetPendingSyncExpenses(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetExpenseNotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetExpense(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetExpense(ctx, "not-a-number")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.MarkSynced(ctx, "42"), ErrNotFound)
}

func TestReplacePayees(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	payees, err := repo.ListPayees(ctx)
	require.NoError(t, err)
	assert.Empty(t, payees)

	require.NoError(t, repo.ReplacePayees(ctx, []string{"Zoe", "Adam"}))
	require.NoError(t, repo.ReplacePayees(ctx, []string{"Bob", "Alice"}))

	payees, err = repo.ListPayees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Alice"}, payees)
}
