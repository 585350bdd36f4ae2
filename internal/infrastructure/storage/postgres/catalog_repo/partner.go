package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"navgate/internal/core/apperror"
	"navgate/internal/domain/catalogs/partner"
	"navgate/internal/infrastructure/storage/postgres"
)

const partnerTable = "cat_partners"

// PartnerRepo implements partner.Repository.
type PartnerRepo struct {
	*BaseCatalogRepo[*partner.Partner]
}

// NewPartnerRepo creates a new partner repository.
func NewPartnerRepo(txm *postgres.TxManager) *PartnerRepo {
	return &PartnerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*partner.Partner](
			txm,
			partnerTable,
			postgres.ExtractDBColumns[partner.Partner](),
			func() *partner.Partner { return &partner.Partner{} },
		),
	}
}

// FindByVATNumber retrieves partner by Hungarian tax number.
func (r *PartnerRepo) FindByVATNumber(ctx context.Context, vatNumber string) (*partner.Partner, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"vat_number": vatNumber}).
		Where(squirrel.Eq{"deletion_mark": false}).
		Limit(1)

	p, err := r.FindOne(ctx, q)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("partner", vatNumber)
		}
		return nil, err
	}
	return p, nil
}
