package submission

import (
	"context"
	"time"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/core/tx"
	"navgate/internal/domain/credentials"
	"navgate/internal/domain/invoice"
	"navgate/internal/nav"
	"navgate/pkg/logger"
)

// TransactionsTable is the row-lock target of state-mutating batch
// operations. Locks are taken on exactly the affected rows and the results
// are committed before the lock transaction returns, so a concurrent pass
// (worker vs. user action) can never duplicate a remote submission.
const TransactionsTable = "submission_transactions"

// ActorWorker identifies the background worker in the audit trail.
const ActorWorker = "worker"

// Client is the slice of the protocol client used by the state machine.
type Client interface {
	TokenExchange(ctx context.Context, creds nav.Credentials) (nav.Token, error)
	ManageInvoice(ctx context.Context, creds nav.Credentials, token nav.Token, operations []nav.InvoiceOperation) (string, error)
	QueryTransactionStatus(ctx context.Context, creds nav.Credentials, transactionCode string, includeOriginal bool) (*nav.TransactionStatus, error)
	QueryTransactionList(ctx context.Context, creds nav.Credentials, from, to time.Time, page int) (*nav.TransactionList, error)
	ManageAnnulment(ctx context.Context, creds nav.Credentials, token nav.Token, operations []nav.AnnulmentOperation) (string, error)
}

// CredentialsResolver resolves credential sets for submission.
type CredentialsResolver interface {
	// ResolveActive returns the active set of a (company, mode) pair; a
	// missing set is a configuration error.
	ResolveActive(ctx context.Context, companyID id.ID, mode nav.Mode) (*credentials.Credentials, nav.Credentials, error)

	// ResolveByID returns the wire credentials an existing transaction
	// started its lifecycle with.
	ResolveByID(ctx context.Context, credentialsID id.ID) (nav.Credentials, error)
}

// Machine drives submission transactions through their lifecycle. Every
// state-mutating operation locks the affected transaction rows first and
// commits its results on return (see TransactionsTable).
type Machine struct {
	transactions Repository
	history      HistoryRepository
	invoices     invoice.Repository
	builder      PayloadBuilder
	creds        CredentialsResolver
	client       Client
	txm          tx.LockingManager
	mode         nav.Mode
	now          func() time.Time
}

// NewMachine creates the state machine.
func NewMachine(
	transactions Repository,
	history HistoryRepository,
	invoices invoice.Repository,
	builder PayloadBuilder,
	creds CredentialsResolver,
	client Client,
	txm tx.LockingManager,
	mode nav.Mode,
) *Machine {
	return &Machine{
		transactions: transactions,
		history:      history,
		invoices:     invoices,
		builder:      builder,
		creds:        creds,
		client:       client,
		txm:          txm,
		mode:         mode,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// apply performs one guarded transition: records the new state and outcome
// on the transaction and appends the audit trail entry.
func (m *Machine) apply(ctx context.Context, tr *Transaction, action Action, to State, outcome OperationOutcome, actor string) error {
	from := tr.State
	tr.transition(to, outcome)
	if err := m.transactions.Update(ctx, tr); err != nil {
		return err
	}
	entry := entity.NewStatusMovement(tr.ID, tr.InvoiceID, m.now(), string(from), string(to), string(action)).
		WithActor(actor)
	entry.Title = outcome.Title
	return m.history.Append(ctx, entry)
}

// applyAll applies the same transition to every transaction of a batch.
// Batch-level remote outcomes are uniform: the authority processes the
// batch atomically, so the invoices' fates are correlated.
func (m *Machine) applyAll(ctx context.Context, batch []*Transaction, action Action, to State, outcome OperationOutcome, actor string) error {
	for _, tr := range batch {
		if err := m.apply(ctx, tr, action, to, outcome, actor); err != nil {
			return err
		}
	}
	return nil
}

// Upload submits the given finalized invoices. For each invoice it reuses
// the resubmittable transaction if one exists (to_send/token_error), or
// opens a new one; an invoice with any other active transaction is
// rejected. Transactions are grouped by credential set and sub-batched at
// the authority's 100-invoice cap.
func (m *Machine) Upload(ctx context.Context, invoiceIDs []id.ID, actor string) ([]*Transaction, error) {
	trs := make([]*Transaction, 0, len(invoiceIDs))
	invs := make(map[id.ID]*invoice.Invoice, len(invoiceIDs))

	for _, invoiceID := range invoiceIDs {
		inv, err := m.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return nil, err
		}
		if !inv.Posted {
			return nil, apperror.NewValidation("invoice must be finalized before submission").
				WithDetail("invoice", inv.Number)
		}

		tr, err := m.openTransaction(ctx, inv)
		if err != nil {
			return nil, err
		}
		trs = append(trs, tr)
		invs[inv.ID] = inv
	}

	err := tx.WithLock(ctx, m.txm, TransactionsTable, transactionIDs(trs), func(ctx context.Context) error {
		for _, group := range groupByCredentials(trs) {
			creds, err := m.creds.ResolveByID(ctx, group[0].CredentialsID)
			if err != nil {
				return err
			}
			for _, batch := range chunk(group) {
				if err := m.uploadBatch(ctx, creds, batch, invs, actor); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trs, nil
}

// openTransaction returns the transaction that will carry this upload:
// the existing resubmittable one, or a fresh record after pruning stale
// rejected attempts.
func (m *Machine) openTransaction(ctx context.Context, inv *invoice.Invoice) (*Transaction, error) {
	existing, err := m.transactions.FindActive(ctx, inv.ID)
	switch {
	case err == nil:
		if existing.State != StateToSend && existing.State != StateTokenError {
			return nil, ErrInvoiceBusy(inv.Number, existing.State)
		}
		return existing, nil
	case apperror.IsNotFound(err):
		// fall through to open a new transaction
	default:
		return nil, err
	}

	if err := m.transactions.PruneRejected(ctx, inv.ID); err != nil {
		return nil, err
	}

	record, _, err := m.creds.ResolveActive(ctx, inv.CompanyID, m.mode)
	if err != nil {
		return nil, err
	}
	tr := NewTransaction(inv.ID, record.ID)
	if err := m.transactions.Create(ctx, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

// uploadBatch performs one manageInvoice call for one credential sub-batch.
func (m *Machine) uploadBatch(ctx context.Context, creds nav.Credentials, batch []*Transaction, invs map[id.ID]*invoice.Invoice, actor string) error {
	operations := make([]nav.InvoiceOperation, 0, len(batch))
	for i, tr := range batch {
		if err := Guard(ActionUpload, tr.State); err != nil {
			return err
		}
		payload, operation, err := m.builder.Build(ctx, invs[tr.InvoiceID])
		if err != nil {
			return err
		}
		tr.BatchIndex = i + 1
		tr.Operation = operation
		tr.Annulment = false
		tr.Payload = payload
		operations = append(operations, nav.InvoiceOperation{
			Index:     tr.BatchIndex,
			Operation: operation,
			Payload:   payload,
		})
	}

	token, err := m.client.TokenExchange(ctx, creds)
	if err != nil {
		return m.applyAll(ctx, batch, ActionUpload, StateTokenError,
			BlockingOutcome("Could not authenticate with the authority", errText(err)), actor)
	}

	sendTime := m.now()
	for _, tr := range batch {
		tr.SendTime = &sendTime
	}

	code, err := m.client.ManageInvoice(ctx, creds, token, operations)
	switch {
	case err == nil:
		for _, tr := range batch {
			tr.TransactionCode = code
		}
		return m.applyAll(ctx, batch, ActionUpload, StateSent,
			InfoOutcome("Batch submitted, awaiting processing"), actor)
	case apperror.IsRemoteTimeout(err):
		// The batch may have been received despite the client-side timeout;
		// only the recovery pass can tell.
		return m.applyAll(ctx, batch, ActionUpload, StateSendTimeout,
			WarningOutcome("Submission timed out; outcome unknown until recovery", errText(err)), actor)
	default:
		return m.applyAll(ctx, batch, ActionUpload, StateSendError,
			BlockingOutcome("Submission failed", errText(err)), actor)
	}
}

// Abort withdraws an invoice from the upload flow before anything reached
// the authority.
func (m *Machine) Abort(ctx context.Context, invoiceID id.ID, actor string) error {
	tr, err := m.transactions.FindActive(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := Guard(ActionAbort, tr.State); err != nil {
		return err
	}
	return tx.WithLock(ctx, m.txm, TransactionsTable, []id.ID{tr.ID}, func(ctx context.Context) error {
		return m.apply(ctx, tr, ActionAbort, StateUnsent,
			InfoOutcome("Submission aborted before upload"), actor)
	})
}

// CancelRequest is one invoice's technical annulment request.
type CancelRequest struct {
	InvoiceID id.ID
	Code      nav.AnnulmentCode
	Reason    string
}

// RequestCancel submits technical annulments for confirmed invoices. The
// invoice's transaction continues through the cancellation sub-flow; its
// transaction code is replaced by the annulment batch's code.
func (m *Machine) RequestCancel(ctx context.Context, requests []CancelRequest, actor string) error {
	trs := make([]*Transaction, 0, len(requests))
	reqByTr := make(map[id.ID]CancelRequest, len(requests))
	numbers := make(map[id.ID]string, len(requests))

	for _, req := range requests {
		tr, err := m.transactions.FindActive(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if err := Guard(ActionRequestCancel, tr.State); err != nil {
			return err
		}
		inv, err := m.invoices.GetByID(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		trs = append(trs, tr)
		reqByTr[tr.ID] = req
		numbers[tr.ID] = inv.Number
	}

	return tx.WithLock(ctx, m.txm, TransactionsTable, transactionIDs(trs), func(ctx context.Context) error {
		for _, group := range groupByCredentials(trs) {
			creds, err := m.creds.ResolveByID(ctx, group[0].CredentialsID)
			if err != nil {
				return err
			}
			for _, batch := range chunk(group) {
				if err := m.cancelBatch(ctx, creds, batch, reqByTr, numbers, actor); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// cancelBatch performs one manageAnnulment call for one credential sub-batch.
func (m *Machine) cancelBatch(ctx context.Context, creds nav.Credentials, batch []*Transaction, reqByTr map[id.ID]CancelRequest, numbers map[id.ID]string, actor string) error {
	operations := make([]nav.AnnulmentOperation, 0, len(batch))
	for i, tr := range batch {
		req := reqByTr[tr.ID]
		tr.BatchIndex = i + 1
		tr.Annulment = true
		operations = append(operations, nav.AnnulmentOperation{
			Index:     tr.BatchIndex,
			Reference: numbers[tr.ID],
			Code:      req.Code,
			Reason:    req.Reason,
		})
	}

	token, err := m.client.TokenExchange(ctx, creds)
	if err != nil {
		// The invoice number stays reserved; the annulment can be retried.
		return m.applyAll(ctx, batch, ActionRequestCancel, StateConfirmedWarning,
			BlockingOutcome("Could not authenticate for annulment", errText(err)), actor)
	}

	sendTime := m.now()
	for _, tr := range batch {
		tr.SendTime = &sendTime
	}

	code, err := m.client.ManageAnnulment(ctx, creds, token, operations)
	switch {
	case err == nil:
		for _, tr := range batch {
			tr.TransactionCode = code
		}
		return m.applyAll(ctx, batch, ActionRequestCancel, StateCancelSent,
			InfoOutcome("Annulment submitted, awaiting processing"), actor)
	case apperror.IsRemoteTimeout(err):
		return m.applyAll(ctx, batch, ActionRequestCancel, StateCancelTimeout,
			WarningOutcome("Annulment timed out; outcome unknown until recovery", errText(err)), actor)
	default:
		return m.applyAll(ctx, batch, ActionRequestCancel, StateConfirmedWarning,
			BlockingOutcome("Annulment submission failed", errText(err)), actor)
	}
}

func transactionIDs(trs []*Transaction) []id.ID {
	out := make([]id.ID, 0, len(trs))
	for _, tr := range trs {
		out = append(out, tr.ID)
	}
	return out
}

func errText(err error) string {
	if appErr, ok := apperror.AsAppError(err); ok {
		if msgs, ok := appErr.Details["errors"].([]string); ok && len(msgs) > 0 {
			return appErr.Message + ": " + msgs[0]
		}
		return appErr.Message
	}
	return err.Error()
}

// logUnmatched records a remote result index that no local record claims.
func logUnmatched(ctx context.Context, transactionCode, index string) {
	logger.Error(ctx, "remote result does not match any local batch index",
		"transaction_code", transactionCode,
		"batch_index", index,
	)
}
