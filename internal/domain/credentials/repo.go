package credentials

import (
	"context"

	"navgate/internal/core/id"
	"navgate/internal/domain"
	"navgate/internal/nav"
)

// Repository defines the interface for Credentials persistence.
type Repository interface {
	domain.CatalogRepository[*Credentials]

	// FindActive retrieves the active credential set of a (company, mode)
	// pair. Not-found means submission for that company is unconfigured.
	FindActive(ctx context.Context, companyID id.ID, mode nav.Mode) (*Credentials, error)

	// ListByCompany retrieves all credential sets of a company.
	ListByCompany(ctx context.Context, companyID id.ID) ([]*Credentials, error)

	// DeactivateAll clears the active flag on every credential set of a
	// (company, mode) pair.
	DeactivateAll(ctx context.Context, companyID id.ID, mode nav.Mode) error
}
