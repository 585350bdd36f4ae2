// Package tx provides transaction management abstractions.
// This package defines interfaces that decouple domain logic from specific
// database implementations, following the Dependency Inversion Principle.
package tx

import (
	"context"

	"navgate/internal/core/id"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
//
// Domain services depend on this interface, not concrete implementations.
// The actual implementation lives in infrastructure/storage/postgres.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager extends Manager with read-only transaction support.
// Use for queries that don't modify data (better performance, no locks).
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	// Attempts to modify data will fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// RowLocker acquires non-blocking exclusive row locks.
// Locks are held by the transaction carried in ctx and released at
// commit or rollback, never earlier.
type RowLocker interface {
	// TryLockRows locks the given rows with FOR UPDATE NOWAIT semantics.
	// If any row is already locked by another session it returns an
	// apperror with CodeLockConflict without waiting.
	TryLockRows(ctx context.Context, table string, ids []id.ID) error
}

// LockingManager combines transaction control with row locking.
// Batch submission flows depend on this pair: lock the rows up front,
// mutate, commit; commit both persists the results and releases the locks.
type LockingManager interface {
	Manager
	RowLocker
}

// WithLock runs fn inside a transaction that holds exclusive locks on the
// given rows for its whole duration. The locks are released on every exit
// path, including panics, because the transaction ends either way.
//
// A lock conflict aborts before fn runs, so a concurrent holder can never
// observe partial effects of fn.
func WithLock(ctx context.Context, m LockingManager, table string, ids []id.ID, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := m.TryLockRows(ctx, table, ids); err != nil {
			return err
		}
		return fn(ctx)
	})
}
