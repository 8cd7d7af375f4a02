// Package services orchestrates the ledger: persistence, the snapshot cache,
// sync publishing and settlement.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/ports"
	"expensetracker/internal/settlement"
)

const expensesCacheKey = "expenses"

// SyncPublisher announces newly stored expenses to the sync worker.
type SyncPublisher interface {
	PublishExpenseSync(ctx context.Context, id string, version int64) error
}

// BackendError wraps a failure of the persistence boundary.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Options wires an ExpenseService. Only Store is required.
type Options struct {
	Store ports.ExpenseStore
	// PayeeReader supplies the roster when Roster is empty.
	PayeeReader ports.PayeeReader
	Roster      []string
	Publisher   SyncPublisher
	Calculator  settlement.Calculator
	// CacheTTL of zero disables the snapshot cache.
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *applog.Logger
	// Closers are closed, in order, by Close.
	Closers []io.Closer
}

type ExpenseService struct {
	store      ports.ExpenseStore
	payees     ports.PayeeReader
	roster     []string
	publisher  SyncPublisher
	calculator settlement.Calculator
	snapshots  *cache.LRUCache[[]core.ExpenseRecord]
	metrics    *metrics.Metrics
	logger     *applog.Logger
	events     *applog.StructuredLogger
	closers    []io.Closer
}

// Snapshot pairs the records a summary was computed from with the summary.
type Snapshot struct {
	Expenses []core.ExpenseRecord
	Summary  core.ExpenseSummary
}

func NewExpenseService(opts Options) *ExpenseService {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentExpense)

	s := &ExpenseService{
		store:      opts.Store,
		payees:     opts.PayeeReader,
		roster:     append([]string(nil), opts.Roster...),
		publisher:  opts.Publisher,
		calculator: opts.Calculator,
		metrics:    opts.Metrics,
		logger:     logger,
		events:     applog.NewStructuredLogger(logger),
		closers:    opts.Closers,
	}
	if opts.CacheTTL > 0 {
		s.snapshots = cache.NewLRUCache[[]core.ExpenseRecord](1, opts.CacheTTL)
	}
	return s
}

// CacheCleaner exposes the snapshot cache for periodic sweeping. It returns
// nil when caching is disabled.
func (s *ExpenseService) CacheCleaner() cache.Cleaner {
	if s.snapshots == nil {
		return nil
	}
	return s.snapshots
}

// CreateExpense validates e against the roster, persists it and publishes a
// sync message. Publish failures are logged and do not fail the request.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.NewExpense) (core.ExpenseRecord, error) {
	e = e.Normalized()
	roster, err := s.Payees(ctx)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	if err := e.Validate(roster); err != nil {
		s.recordValidationFailure(err)
		return core.ExpenseRecord{}, err
	}

	rec, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		if verr, ok := core.AsValidationError(err); ok {
			s.recordValidationFailure(verr)
			return core.ExpenseRecord{}, verr
		}
		s.metrics.BackendError(applog.OpCreate)
		return core.ExpenseRecord{}, &BackendError{Op: "create expense", Err: err}
	}

	if s.snapshots != nil {
		s.snapshots.Delete(expensesCacheKey)
	}
	s.metrics.ExpenseCreated()
	s.events.LogExpenseCreated(ctx, rec)

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseSync(ctx, rec.ID, 1); err != nil {
			s.metrics.BackendError("publish")
			s.logger.ErrorContext(ctx, "Failed to publish sync message",
				applog.FieldExpenseID, rec.ID,
				applog.FieldError, err)
		}
	}
	return rec, nil
}

// CreateFromInput parses raw form values and creates the expense.
func (s *ExpenseService) CreateFromInput(ctx context.Context, in core.ExpenseInput) (core.ExpenseRecord, error) {
	roster, err := s.Payees(ctx)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	e, err := in.Parse(roster)
	if err != nil {
		s.recordValidationFailure(err)
		return core.ExpenseRecord{}, err
	}
	return s.CreateExpense(ctx, e)
}

// ListExpenses returns all records, served from the snapshot cache when
// fresh. The returned slice is a copy.
func (s *ExpenseService) ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error) {
	if s.snapshots != nil {
		if cached, ok := s.snapshots.Get(expensesCacheKey); ok {
			return append([]core.ExpenseRecord(nil), cached...), nil
		}
	}

	records, err := s.store.ListExpenses(ctx)
	if err != nil {
		s.metrics.BackendError(applog.OpList)
		return nil, &BackendError{Op: "list expenses", Err: err}
	}
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	if s.snapshots != nil {
		s.snapshots.Set(expensesCacheKey, append([]core.ExpenseRecord(nil), records...))
	}
	return records, nil
}

// Summary fetches the current records and computes their summary afresh.
func (s *ExpenseService) Summary(ctx context.Context) (Snapshot, error) {
	records, err := s.ListExpenses(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	summary := s.calculator.ComputeSummary(records)
	s.metrics.SummaryComputed()
	s.logger.DebugContext(ctx, "Summary computed",
		applog.FieldCount, len(records),
		applog.FieldPayee, summary.RemainingAmountToBePaid.Payee)
	return Snapshot{Expenses: records, Summary: summary}, nil
}

// Payees returns the configured roster, falling back to the backend's.
// A nil result means any payee is accepted.
func (s *ExpenseService) Payees(ctx context.Context) ([]string, error) {
	if len(s.roster) > 0 {
		return append([]string(nil), s.roster...), nil
	}
	if s.payees == nil {
		return nil, nil
	}
	names, err := s.payees.ListPayees(ctx)
	if err != nil {
		s.metrics.BackendError("payees")
		return nil, &BackendError{Op: "list payees", Err: err}
	}
	return names, nil
}

func (s *ExpenseService) recordValidationFailure(err error) {
	verr, ok := core.AsValidationError(err)
	if !ok {
		return
	}
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	s.metrics.ValidationFailed(fields)
}

// Close releases every registered resource.
func (s *ExpenseService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
