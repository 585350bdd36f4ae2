package submission

import (
	"context"
	"time"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/nav"
)

// Transaction is one NAV submission attempt for one invoice. A batch upload
// creates one transaction per invoice, all sharing the transaction code the
// authority assigns to the batch.
type Transaction struct {
	entity.BaseDocument

	// InvoiceID is the submitted invoice.
	InvoiceID id.ID `db:"invoice_id" json:"invoiceId"`

	// CredentialsID is the credential set used for every remote call of
	// this transaction's lifecycle. Immutable once set.
	CredentialsID id.ID `db:"credentials_id" json:"credentialsId"`

	// Operation is the submitted operation kind (CREATE/MODIFY/STORNO);
	// empty for annulment transactions.
	Operation nav.Operation `db:"operation" json:"operation,omitempty"`

	// Annulment marks a cancellation (manageAnnulment) transaction.
	Annulment bool `db:"annulment" json:"annulment"`

	// BatchIndex is the 1-based position within the submitted batch, matched
	// against the index the authority returns per result.
	BatchIndex int `db:"batch_index" json:"batchIndex"`

	// TransactionCode correlates with the authority after a successful
	// upload; empty until then.
	TransactionCode string `db:"transaction_code" json:"transactionCode,omitempty"`

	State State `db:"state" json:"state"`

	// SendTime is when the batch left for the authority; drives the 6-minute
	// recovery SLA and the recovery query windows.
	SendTime *time.Time `db:"send_time" json:"sendTime,omitempty"`

	// Outcome is the message bundle of the last action.
	Outcome OperationOutcome `db:"outcome" json:"outcome"`

	// Payload is the exact submitted XML (invoice document or annulment
	// record). Kept for byte-for-byte recovery matching and audit; large
	// payloads are stored compressed by the archive layer.
	Payload []byte `db:"payload" json:"-"`
}

// NewTransaction opens a submission transaction in to_send.
func NewTransaction(invoiceID, credentialsID id.ID) *Transaction {
	return &Transaction{
		BaseDocument:  entity.NewBaseDocument(),
		InvoiceID:     invoiceID,
		CredentialsID: credentialsID,
		State:         StateToSend,
	}
}

// IsActive reports whether this transaction still binds its invoice.
func (t *Transaction) IsActive() bool {
	return t.State.IsActive()
}

// transition moves the transaction to a new state after a guard-checked
// action and records the outcome. Every call site has already passed
// Guard for the action, so this only records the result.
func (t *Transaction) transition(state State, outcome OperationOutcome) {
	t.State = state
	t.Outcome = outcome
	t.Touch()
}

// ListFilter selects transactions.
type ListFilter struct {
	InvoiceID *id.ID
	States    []State
	Annulment *bool
}

// Repository defines submission transaction persistence.
type Repository interface {
	Create(ctx context.Context, tr *Transaction) error
	GetByID(ctx context.Context, transactionID id.ID) (*Transaction, error)
	Update(ctx context.Context, tr *Transaction) error
	List(ctx context.Context, filter ListFilter) ([]*Transaction, error)

	// FindActive returns the active transaction of an invoice, if any.
	FindActive(ctx context.Context, invoiceID id.ID) (*Transaction, error)

	// ListByStates returns all transactions currently in one of the states.
	ListByStates(ctx context.Context, states ...State) ([]*Transaction, error)

	// ListByTransactionCode returns the sibling transactions sharing one
	// (credentials, transaction_code) pair in one of the given states.
	ListByTransactionCode(ctx context.Context, credentialsID id.ID, code string, states ...State) ([]*Transaction, error)

	// PruneRejected deletes old rejected transactions of an invoice,
	// keeping the most recent one. Active transactions are never pruned.
	PruneRejected(ctx context.Context, invoiceID id.ID) error
}

// HistoryRepository appends and queries the status audit trail.
type HistoryRepository interface {
	Append(ctx context.Context, entries ...entity.StatusMovement) error
	ListByInvoice(ctx context.Context, invoiceID id.ID) ([]entity.StatusMovement, error)
	ListByPeriod(ctx context.Context, from, to time.Time) ([]entity.StatusMovement, error)
}

// ErrInvoiceBusy builds the validation error raised when a new transaction
// is requested while an active one exists.
func ErrInvoiceBusy(invoiceNumber string, state State) *apperror.AppError {
	return apperror.NewValidation("invoice already has an active submission transaction").
		WithDetail("invoice", invoiceNumber).
		WithDetail("state", string(state))
}
