package currency

import (
	"context"
	"time"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/tx"
	"navgate/internal/core/types"
	"navgate/internal/domain"
)

// Service provides business logic for Currency catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Currency]
	repo Repository
}

// NewService creates a new Currency service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Currency]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "currency",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)
	base.Hooks().OnBeforeDelete(svc.validateBeforeDelete)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, curr *Currency) error {
	// Use ISO code as code if not provided
	if curr.Code == "" && curr.ISOCode != nil {
		curr.Code = *curr.ISOCode
	}

	if err := s.checkISOCodeUnique(ctx, curr); err != nil {
		return err
	}

	if curr.IsBase {
		if err := s.repo.ClearBase(ctx); err != nil {
			return err
		}
	}

	return nil
}

// prepareForUpdate handles uniqueness checks.
func (s *Service) prepareForUpdate(ctx context.Context, curr *Currency) error {
	if err := s.checkISOCodeUnique(ctx, curr); err != nil {
		return err
	}

	if curr.IsBase {
		if err := s.repo.ClearBase(ctx); err != nil {
			return err
		}
	}

	return nil
}

// validateBeforeDelete prevents deletion of base currency.
func (s *Service) validateBeforeDelete(ctx context.Context, curr *Currency) error {
	if curr.IsBase {
		return apperror.NewValidation("cannot delete base currency")
	}
	return nil
}

// --- Entity-specific methods ---

// FindByISOCode retrieves currency by ISO code.
func (s *Service) FindByISOCode(ctx context.Context, isoCode string) (*Currency, error) {
	return s.repo.FindByISOCode(ctx, isoCode)
}

// UpdateRate refreshes the HUF estimation rate of a currency.
func (s *Service) UpdateRate(ctx context.Context, currencyID id.ID, rate types.Money, asOf time.Time) error {
	if !rate.IsPositive() {
		return apperror.NewValidation("rate must be positive").
			WithDetail("field", "rateToHuf")
	}
	curr, err := s.repo.GetForUpdate(ctx, currencyID)
	if err != nil {
		return err
	}
	curr.RateToHUF = rate
	curr.RateDate = &asOf
	return s.repo.Update(ctx, curr)
}

func (s *Service) checkISOCodeUnique(ctx context.Context, curr *Currency) error {
	if curr.ISOCode == nil || *curr.ISOCode == "" {
		return nil
	}
	existing, err := s.repo.FindByISOCode(ctx, *curr.ISOCode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != curr.ID {
		return apperror.NewConflict("currency with this ISO code already exists").
			WithDetail("isoCode", *curr.ISOCode)
	}
	return nil
}
