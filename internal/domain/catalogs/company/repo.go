package company

import (
	"context"

	"navgate/internal/domain"
)

// Repository defines the interface for Company persistence.
type Repository interface {
	domain.CatalogRepository[*Company]

	// GetDefault retrieves the default company for new invoices.
	GetDefault(ctx context.Context) (*Company, error)

	// FindByVATNumber retrieves company by Hungarian tax number.
	FindByVATNumber(ctx context.Context, vatNumber string) (*Company, error)
}
