package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain/credentials"
	"navgate/internal/infrastructure/storage/postgres"
	"navgate/internal/nav"
)

const credentialsTable = "cat_credentials"

// CredentialsRepo implements credentials.Repository.
type CredentialsRepo struct {
	*BaseCatalogRepo[*credentials.Credentials]
}

// NewCredentialsRepo creates a new credentials repository.
func NewCredentialsRepo(txm *postgres.TxManager) *CredentialsRepo {
	return &CredentialsRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*credentials.Credentials](
			txm,
			credentialsTable,
			postgres.ExtractDBColumns[credentials.Credentials](),
			func() *credentials.Credentials { return &credentials.Credentials{} },
		),
	}
}

// FindActive retrieves the active credential set of a (company, mode) pair.
func (r *CredentialsRepo) FindActive(ctx context.Context, companyID id.ID, mode nav.Mode) (*credentials.Credentials, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"company_id": companyID, "mode": mode, "active": true}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	c, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("credentials", fmt.Sprintf("%s/%s", companyID, mode))
		}
		return nil, err
	}
	return c, nil
}

// ListByCompany retrieves all credential sets of a company.
func (r *CredentialsRepo) ListByCompany(ctx context.Context, companyID id.ID) ([]*credentials.Credentials, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"company_id": companyID, "deletion_mark": false}).
		OrderBy("mode ASC, username ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*credentials.Credentials
	querier := r.querier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list by company: %w", err)
	}
	return items, nil
}

// DeactivateAll clears the active flag on every credential set of a
// (company, mode) pair.
func (r *CredentialsRepo) DeactivateAll(ctx context.Context, companyID id.ID, mode nav.Mode) error {
	q := r.Builder().
		Update(credentialsTable).
		Set("active", false).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"company_id": companyID, "mode": mode, "active": true})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.querier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("deactivate credentials: %w", err)
	}
	return nil
}
