package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"navgate/internal/core/apperror"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/infrastructure/storage/postgres"
)

const companyTable = "cat_companies"

// CompanyRepo implements company.Repository.
type CompanyRepo struct {
	*BaseCatalogRepo[*company.Company]
}

// NewCompanyRepo creates a new company repository.
func NewCompanyRepo(txm *postgres.TxManager) *CompanyRepo {
	return &CompanyRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*company.Company](
			txm,
			companyTable,
			postgres.ExtractDBColumns[company.Company](),
			func() *company.Company { return &company.Company{} },
		),
	}
}

// GetDefault retrieves the default company.
func (r *CompanyRepo) GetDefault(ctx context.Context) (*company.Company, error) {
	c := &company.Company{}

	q := r.baseSelect().
		Where(squirrel.Eq{"is_default": true, "deletion_mark": false}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.querier(ctx)
	if err := pgxscan.Get(ctx, querier, c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(companyTable, "default")
		}
		return nil, fmt.Errorf("get default company: %w", err)
	}

	return c, nil
}

// FindByVATNumber retrieves company by Hungarian tax number.
func (r *CompanyRepo) FindByVATNumber(ctx context.Context, vatNumber string) (*company.Company, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"vat_number": vatNumber}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	c, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("company", vatNumber)
		}
		return nil, err
	}
	return c, nil
}
