package invoice

import (
	"context"

	"navgate/internal/core/id"
	"navgate/internal/domain"
)

// ListFilter extends the common list filter with invoice-specific criteria.
type ListFilter struct {
	domain.ListFilter

	CompanyID *id.ID
	PartnerID *id.ID
	Posted    *bool
	Cancelled *bool
	Number    string
}

// Repository defines invoice persistence.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, invoiceID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	// GetLines returns the lines of an invoice in display order.
	GetLines(ctx context.Context, invoiceID id.ID) ([]Line, error)

	// SaveLines replaces the lines of an invoice.
	SaveLines(ctx context.Context, invoiceID id.ID, lines []Line) error

	// ListSuccessors returns the invoices whose ReversedEntryID points at
	// the given invoice. Used to build the chain adjacency map.
	ListSuccessors(ctx context.Context, invoiceID id.ID) ([]*Invoice, error)

	// UpdateChainFields persists chain_index and the line numbers assigned
	// by the sequencer for one invoice.
	UpdateChainFields(ctx context.Context, inv *Invoice) error
}
