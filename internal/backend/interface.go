package backend

import (
	"context"

	"expensetracker/internal/ports"
	"expensetracker/internal/services"
)

// Backend is a full ledger backend: expenses plus the payee roster.
type Backend interface {
	ports.ExpenseStore
	ports.PayeeReader
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the backend instance and its lifecycle hooks.
type BackendResult struct {
	Type    BackendType
	Backend Backend
	// Publisher is set when created expenses should be announced for sync.
	Publisher services.SyncPublisher
	Cleanup   CleanupFunc
	Ready     ReadyFunc
}

// Close runs Cleanup if present. It satisfies io.Closer.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
