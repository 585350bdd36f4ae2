package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain/submission"
	"navgate/internal/infrastructure/storage/postgres"
)

// nonBindingStates are the states that release the invoice for a new
// transaction. Mirrors submission.State.IsActive.
var nonBindingStates = []submission.State{
	submission.StateUnsent,
	submission.StateRejected,
	submission.StateSendError,
}

// SubmissionRepo implements submission.Repository.
type SubmissionRepo struct {
	*BaseDocumentRepo[*submission.Transaction]
}

// NewSubmissionRepo creates a new submission transaction repository.
func NewSubmissionRepo(txm *postgres.TxManager) *SubmissionRepo {
	return &SubmissionRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*submission.Transaction](
			txm,
			submission.TransactionsTable,
			postgres.ExtractDBColumns[submission.Transaction](),
			func() *submission.Transaction { return &submission.Transaction{} },
		),
	}
}

// List retrieves transactions matching the filter, oldest first.
func (r *SubmissionRepo) List(ctx context.Context, filter submission.ListFilter) ([]*submission.Transaction, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("created_at ASC")

	if filter.InvoiceID != nil {
		q = q.Where(squirrel.Eq{"invoice_id": *filter.InvoiceID})
	}
	if len(filter.States) > 0 {
		q = q.Where(squirrel.Eq{"state": filter.States})
	}
	if filter.Annulment != nil {
		q = q.Where(squirrel.Eq{"annulment": *filter.Annulment})
	}

	return r.selectMany(ctx, q)
}

// FindActive returns the transaction currently binding an invoice, if any.
func (r *SubmissionRepo) FindActive(ctx context.Context, invoiceID id.ID) (*submission.Transaction, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"invoice_id": invoiceID, "deletion_mark": false}).
		Where(squirrel.NotEq{"state": nonBindingStates}).
		OrderBy("created_at DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	tr := &submission.Transaction{}
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, tr, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(submission.TransactionsTable, invoiceID.String())
		}
		return nil, fmt.Errorf("find active: %w", err)
	}

	return tr, nil
}

// ListByStates returns all transactions currently in one of the states.
func (r *SubmissionRepo) ListByStates(ctx context.Context, states ...submission.State) ([]*submission.Transaction, error) {
	if len(states) == 0 {
		return nil, nil
	}

	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"state": states, "deletion_mark": false}).
		OrderBy("send_time ASC NULLS LAST, created_at ASC")

	return r.selectMany(ctx, q)
}

// ListByTransactionCode returns the sibling transactions sharing one
// (credentials, transaction_code) pair in one of the given states.
func (r *SubmissionRepo) ListByTransactionCode(ctx context.Context, credentialsID id.ID, code string, states ...submission.State) ([]*submission.Transaction, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{
			"credentials_id":   credentialsID,
			"transaction_code": code,
			"deletion_mark":    false,
		}).
		OrderBy("batch_index ASC")

	if len(states) > 0 {
		q = q.Where(squirrel.Eq{"state": states})
	}

	return r.selectMany(ctx, q)
}

// PruneRejected deletes old rejected transactions of an invoice, keeping
// the most recent one.
func (r *SubmissionRepo) PruneRejected(ctx context.Context, invoiceID id.ID) error {
	sql := fmt.Sprintf(`
		DELETE FROM %s
		WHERE invoice_id = $1 AND state = $2 AND id NOT IN (
			SELECT id FROM %s
			WHERE invoice_id = $1 AND state = $2
			ORDER BY created_at DESC
			LIMIT 1
		)
	`, submission.TransactionsTable, submission.TransactionsTable)

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, invoiceID, submission.StateRejected); err != nil {
		return fmt.Errorf("prune rejected: %w", err)
	}
	return nil
}

func (r *SubmissionRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]*submission.Transaction, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*submission.Transaction
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}
