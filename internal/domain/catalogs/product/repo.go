package product

import (
	"context"

	"navgate/internal/core/id"
	"navgate/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]

	// FindByArticle retrieves product by article (unique).
	FindByArticle(ctx context.Context, article string) (*Product, error)

	// GetForUpdate retrieves product with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Product, error)
}
