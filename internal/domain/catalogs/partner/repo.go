package partner

import (
	"context"

	"navgate/internal/core/id"
	"navgate/internal/domain"
)

// Repository defines the interface for Partner persistence.
type Repository interface {
	domain.CatalogRepository[*Partner]

	// FindByVATNumber retrieves partner by Hungarian tax number.
	FindByVATNumber(ctx context.Context, vatNumber string) (*Partner, error)

	// GetForUpdate retrieves partner with row lock (for transactional updates).
	GetForUpdate(ctx context.Context, id id.ID) (*Partner, error)
}
