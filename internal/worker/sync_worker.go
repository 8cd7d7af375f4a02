// Package worker mirrors locally stored expenses into the spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/storage"
)

// Source is the local store the worker reads from and marks progress in.
type Source interface {
	GetExpense(ctx context.Context, id string) (storage.StoredExpense, error)
	GetPendingSyncExpenses(ctx context.Context, limit int) ([]storage.PendingSyncExpense, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// Destination receives records that already carry their local ID.
type Destination interface {
	AppendRecord(ctx context.Context, rec core.ExpenseRecord) (string, error)
}

// SyncWorker handles synchronization of expenses from SQLite to Google Sheets.
// The AMQP handler and the periodic pass share one lock, so a row is read,
// appended and marked by one of them at a time.
type SyncWorker struct {
	mu        sync.Mutex
	source    Source
	dest      Destination
	batchSize int
	metrics   *metrics.Metrics
	logger    *applog.Logger
}

func NewSyncWorker(source Source, dest Destination, batchSize int, m *metrics.Metrics, logger *applog.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncWorker{
		source:    source,
		dest:      dest,
		batchSize: batchSize,
		metrics:   m,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleSyncMessage processes a single expense sync message from AMQP.
// Already synced expenses are acknowledged without a second append.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		applog.FieldExpenseID, msg.ID,
		"version", msg.Version)

	if _, err := w.syncOne(ctx, msg.ID); err != nil {
		return err
	}
	return nil
}

// ProcessPendingExpenses syncs up to one batch of pending or errored rows.
// It covers messages lost while the broker or worker was down.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck runs a larger pending pass when the worker boots.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}

// Run calls ProcessPendingExpenses every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPendingExpenses(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", applog.FieldError, err)
			}
		}
	}
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.source.GetPendingSyncExpenses(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending expenses", applog.FieldCount, len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}

		done, err := w.syncOne(ctx, p.ID)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync expense", applog.FieldExpenseID, p.ID, applog.FieldError, err)
			if errors.Is(err, errLoad) {
				w.markError(ctx, p.ID)
			}
			failed++
			continue
		}
		if done {
			synced++
		}
	}
	return synced, failed, nil
}

var errLoad = errors.New("get expense from storage")

// syncOne mirrors the expense with the given id unless it is already synced.
// The status is read under w.mu, after any concurrent sync has marked it.
func (w *SyncWorker) syncOne(ctx context.Context, id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	expense, err := w.source.GetExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errLoad, err)
	}
	if expense.SyncStatus == storage.SyncSynced {
		w.logger.DebugContext(ctx, "Expense already synced", applog.FieldExpenseID, id)
		return false, nil
	}
	if err := w.syncExpense(ctx, expense.ExpenseRecord); err != nil {
		return false, fmt.Errorf("sync expense to sheets: %w", err)
	}
	return true, nil
}

func (w *SyncWorker) syncExpense(ctx context.Context, rec core.ExpenseRecord) error {
	ref, err := w.dest.AppendRecord(ctx, rec)
	if err != nil {
		w.markError(ctx, rec.ID)
		w.metrics.SyncResult("error")
		return fmt.Errorf("append to sheets: %w", err)
	}

	// The append already happened; a failed mark only means a later
	// pending pass may retry it.
	if err := w.source.MarkSynced(ctx, rec.ID); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced", applog.FieldExpenseID, rec.ID, applog.FieldError, err)
	}
	w.metrics.SyncResult("synced")

	w.logger.InfoContext(ctx, "Successfully synced expense",
		applog.NewFields().WithExpense(rec).ToSlice()...)
	w.logger.DebugContext(ctx, "Sheets range updated", applog.FieldExpenseID, rec.ID, "sheets_ref", ref)
	return nil
}

func (w *SyncWorker) markError(ctx context.Context, id string) {
	if err := w.source.MarkSyncError(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark sync error", applog.FieldExpenseID, id, applog.FieldError, err)
	}
}
