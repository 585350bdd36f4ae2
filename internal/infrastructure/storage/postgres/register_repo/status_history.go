// Package register_repo provides PostgreSQL implementations for register
// repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/infrastructure/storage/postgres"
)

const statusHistoryTable = "reg_status_history"

var statusHistoryColumns = []string{
	"line_id", "recorder_id", "recorder_type", "period",
	"invoice_id", "from_state", "to_state", "action", "title", "actor",
	"created_at",
}

// StatusHistoryRepo implements submission.HistoryRepository: the append-only
// audit trail of submission state movements.
type StatusHistoryRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStatusHistoryRepo creates a new status history repository.
func NewStatusHistoryRepo(txm *postgres.TxManager) *StatusHistoryRepo {
	return &StatusHistoryRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts status movements.
func (r *StatusHistoryRepo) Append(ctx context.Context, entries ...entity.StatusMovement) error {
	if len(entries) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []any{
				e.LineID, e.RecorderID, e.RecorderType, e.Period,
				e.InvoiceID, e.FromState, e.ToState, e.Action, e.Title, e.Actor,
				e.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, statusHistoryTable, statusHistoryColumns, rows); err != nil {
			return fmt.Errorf("copy status movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(statusHistoryTable).Columns(statusHistoryColumns...)
	for _, e := range entries {
		q = q.Values(
			e.LineID, e.RecorderID, e.RecorderType, e.Period,
			e.InvoiceID, e.FromState, e.ToState, e.Action, e.Title, e.Actor,
			e.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert status movements: %w", err)
	}

	return nil
}

// ListByInvoice returns the movements of one invoice in chronological order.
func (r *StatusHistoryRepo) ListByInvoice(ctx context.Context, invoiceID id.ID) ([]entity.StatusMovement, error) {
	q := r.builder.
		Select(statusHistoryColumns...).
		From(statusHistoryTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("period ASC, created_at ASC")

	return r.selectMany(ctx, q)
}

// ListByPeriod returns all movements inside [from, to).
func (r *StatusHistoryRepo) ListByPeriod(ctx context.Context, from, to time.Time) ([]entity.StatusMovement, error) {
	q := r.builder.
		Select(statusHistoryColumns...).
		From(statusHistoryTable).
		Where(squirrel.GtOrEq{"period": from}).
		Where(squirrel.Lt{"period": to}).
		OrderBy("period ASC, created_at ASC")

	return r.selectMany(ctx, q)
}

func (r *StatusHistoryRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]entity.StatusMovement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []entity.StatusMovement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list status movements: %w", err)
	}
	return items, nil
}
