package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TriggerKindStatusUpdate is the background status/recovery pass.
const TriggerKindStatusUpdate = "status_update"

// TriggerStore persists one-shot worker triggers. A trigger is a single row
// per kind: arming it again only ever moves the due time earlier, so
// overlapping submit passes collapse into one scheduled run.
type TriggerStore struct {
	pool *pgxpool.Pool
	kind string
}

// NewTriggerStore creates a trigger store for one trigger kind.
func NewTriggerStore(pool *Pool, kind string) *TriggerStore {
	return &TriggerStore{pool: pool.Pool, kind: kind}
}

// Arm schedules the trigger to fire at runAt. Idempotent: if the trigger is
// already armed for an earlier time, that time wins.
func (s *TriggerStore) Arm(ctx context.Context, runAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sys_triggers (kind, run_at)
		VALUES ($1, $2)
		ON CONFLICT (kind) DO UPDATE
		SET run_at = LEAST(sys_triggers.run_at, EXCLUDED.run_at)
	`, s.kind, runAt.UTC())
	if err != nil {
		return fmt.Errorf("arm trigger %s: %w", s.kind, err)
	}
	return nil
}

// ClaimDue atomically claims the trigger if it is due. SKIP LOCKED makes
// the claim race-free across worker replicas: at most one claims each
// firing, the others see nothing due.
func (s *TriggerStore) ClaimDue(ctx context.Context, now time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(context.Background())

	var kind string
	err = tx.QueryRow(ctx, `
		SELECT kind FROM sys_triggers
		WHERE kind = $1 AND run_at <= $2
		FOR UPDATE SKIP LOCKED
	`, s.kind, now.UTC()).Scan(&kind)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim trigger %s: %w", s.kind, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM sys_triggers WHERE kind = $1`, s.kind); err != nil {
		return false, fmt.Errorf("consume trigger %s: %w", s.kind, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit claim: %w", err)
	}
	return true, nil
}
