package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"navgate/internal/core/apperror"
	"navgate/internal/domain/catalogs/product"
	"navgate/internal/infrastructure/storage/postgres"
)

const productTable = "cat_products"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*product.Product](
			txm,
			productTable,
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// FindByArticle retrieves product by article.
func (r *ProductRepo) FindByArticle(ctx context.Context, article string) (*product.Product, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"article": article}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	p, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", article)
		}
		return nil, err
	}
	return p, nil
}
