package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"

	_ "modernc.org/sqlite"
)

// Sync states of an expense relative to the sheets mirror.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

var ErrNotFound = errors.New("expense not found")

var (
	_ ports.ExpenseStore = (*SQLiteRepository)(nil)
	_ ports.PayeeReader  = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// PendingSyncExpense is the minimal data needed to queue a sync message.
type PendingSyncExpense struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// StoredExpense is a record together with its sync bookkeeping.
type StoredExpense struct {
	core.ExpenseRecord
	Version    int64
	SyncStatus string
	CreatedAt  time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: NewQueries(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateExpense implements ports.ExpenseWriter. New rows start pending sync.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	if err := e.Validate(nil); err != nil {
		return core.ExpenseRecord{}, err
	}
	row, err := r.queries.CreateExpense(ctx, createExpenseParams{
		Date:    e.Date,
		Product: e.Product,
		Price:   e.Price.String(),
		Payee:   e.Payee,
	})
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("create expense: %w", err)
	}

	rec, err := row.record()
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", rec.ID,
		"product", rec.Product,
		"price", rec.Price.String(),
		"payee", rec.Payee)
	return rec, nil
}

// ListExpenses implements ports.ExpenseLister in insertion order.
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.ExpenseRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// GetExpense returns a single expense with its sync state.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (StoredExpense, error) {
	n, err := parseID(id)
	if err != nil {
		return StoredExpense{}, err
	}
	row, err := r.queries.GetExpense(ctx, n)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredExpense{}, fmt.Errorf("get expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return StoredExpense{}, fmt.Errorf("get expense %s: %w", id, err)
	}
	return row.stored()
}

// GetPendingSyncExpenses returns up to limit expenses not yet mirrored,
// oldest first. Rows that failed earlier are retried.
func (r *SQLiteRepository) GetPendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.queries.GetPendingSyncExpenses(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	out := make([]PendingSyncExpense, 0, len(rows))
	for _, row := range rows {
		out = append(out, PendingSyncExpense{
			ID:        strconv.FormatInt(row.ID, 10),
			Version:   row.Version,
			CreatedAt: parseTimestamp(row.CreatedAt),
		})
	}
	return out, nil
}

// MarkSynced marks an expense as mirrored to the sheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.mark(ctx, id, r.queries.MarkExpenseSynced); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed mirror attempt.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.mark(ctx, id, r.queries.MarkExpenseSyncError); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) mark(ctx context.Context, id string, fn func(context.Context, int64) (int64, error)) error {
	n, err := parseID(id)
	if err != nil {
		return err
	}
	affected, err := fn(ctx, n)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPayees implements ports.PayeeReader.
func (r *SQLiteRepository) ListPayees(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListPayees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	return names, nil
}

// ReplacePayees stores names as the roster, keeping their order.
func (r *SQLiteRepository) ReplacePayees(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.queries.WithTx(tx).ReplacePayees(ctx, names); err != nil {
		return fmt.Errorf("replace payees: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payees: %w", err)
	}
	return nil
}

func (e expenseRow) record() (core.ExpenseRecord, error) {
	price, err := decimal.NewFromString(e.Price)
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("expense %d has invalid price %q: %w", e.ID, e.Price, err)
	}
	return core.ExpenseRecord{
		ID:      strconv.FormatInt(e.ID, 10),
		Date:    e.Date,
		Product: e.Product,
		Price:   core.NewMoney(price),
		Payee:   e.Payee,
	}, nil
}

func (e expenseRow) stored() (StoredExpense, error) {
	rec, err := e.record()
	if err != nil {
		return StoredExpense{}, err
	}
	return StoredExpense{
		ExpenseRecord: rec,
		Version:       e.Version,
		SyncStatus:    e.SyncStatus,
		CreatedAt:     parseTimestamp(e.CreatedAt),
	}, nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid expense id %q: %w", id, ErrNotFound)
	}
	return n, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
