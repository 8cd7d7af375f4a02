package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements used by the repository.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx runs the same queries inside tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type expenseRow struct {
	ID         int64
	Date       string
	Product    string
	Price      string
	Payee      string
	Version    int64
	SyncStatus string
	CreatedAt  string
}

const expenseColumns = `id, date, product, price, payee, version, sync_status, created_at`

func scanExpense(sc interface{ Scan(...any) error }) (expenseRow, error) {
	var e expenseRow
	err := sc.Scan(&e.ID, &e.Date, &e.Product, &e.Price, &e.Payee, &e.Version, &e.SyncStatus, &e.CreatedAt)
	return e, err
}

type createExpenseParams struct {
	Date    string
	Product string
	Price   string
	Payee   string
}

const createExpense = `INSERT INTO expenses (date, product, price, payee)
VALUES (?, ?, ?, ?)
RETURNING ` + expenseColumns

func (q *Queries) CreateExpense(ctx context.Context, arg createExpenseParams) (expenseRow, error) {
	row := q.db.QueryRowContext(ctx, createExpense, arg.Date, arg.Product, arg.Price, arg.Payee)
	return scanExpense(row)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (expenseRow, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY id`

func (q *Queries) ListExpenses(ctx context.Context) ([]expenseRow, error) {
	return q.queryExpenses(ctx, listExpenses)
}

const getPendingSyncExpenses = `SELECT ` + expenseColumns + ` FROM expenses
WHERE sync_status IN ('pending', 'error')
ORDER BY created_at, id
LIMIT ?`

func (q *Queries) GetPendingSyncExpenses(ctx context.Context, limit int64) ([]expenseRow, error) {
	return q.queryExpenses(ctx, getPendingSyncExpenses, limit)
}

func (q *Queries) queryExpenses(ctx context.Context, query string, args ...any) ([]expenseRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []expenseRow
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const markExpenseSynced = `UPDATE expenses
SET sync_status = 'synced', synced_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
WHERE id = ?`

func (q *Queries) MarkExpenseSynced(ctx context.Context, id int64) (int64, error) {
	return q.execRows(ctx, markExpenseSynced, id)
}

const markExpenseSyncError = `UPDATE expenses SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkExpenseSyncError(ctx context.Context, id int64) (int64, error) {
	return q.execRows(ctx, markExpenseSyncError, id)
}

func (q *Queries) execRows(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listPayees = `SELECT name FROM payees ORDER BY position, name`

func (q *Queries) ListPayees(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPayees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

const deletePayees = `DELETE FROM payees`

const insertPayee = `INSERT INTO payees (name, position) VALUES (?, ?)`

func (q *Queries) ReplacePayees(ctx context.Context, names []string) error {
	if _, err := q.db.ExecContext(ctx, deletePayees); err != nil {
		return err
	}
	for i, n := range names {
		if _, err := q.db.ExecContext(ctx, insertPayee, n, i); err != nil {
			return err
		}
	}
	return nil
}
