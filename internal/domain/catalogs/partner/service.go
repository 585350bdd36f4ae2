package partner

import (
	"context"
	"fmt"
	"time"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/numerator"
	"navgate/internal/core/tx"
	"navgate/internal/domain"
)

// Service provides business logic for Partner catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Partner] // Embedded for delegation
	repo                             Repository
	numerator                        numerator.Generator
}

// NewService creates a new Partner service.
func NewService(
	repo Repository,
	txManager tx.Manager,
	gen numerator.Generator,
) *Service {
	// Create base service
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Partner]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "partner",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	// Register hooks for entity-specific logic
	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

// prepareForCreate handles code generation and uniqueness checks before create.
func (s *Service) prepareForCreate(ctx context.Context, p *Partner) error {
	// Generate code if not provided
	if p.Code == "" {
		cfg := numerator.DefaultConfig("PTR")
		code, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		p.Code = code
	}

	// Check tax number uniqueness
	if p.VATNumber != nil && *p.VATNumber != "" {
		exists, err := s.checkVATExists(ctx, *p.VATNumber, p.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewConflict("partner with this tax number already exists").
				WithDetail("vatNumber", p.VATNumber)
		}
	}

	return nil
}

// prepareForUpdate handles uniqueness checks before update.
func (s *Service) prepareForUpdate(ctx context.Context, p *Partner) error {
	// Check tax number uniqueness (exclude current record)
	if p.VATNumber != nil && *p.VATNumber != "" {
		exists, err := s.checkVATExists(ctx, *p.VATNumber, p.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewConflict("partner with this tax number already exists").
				WithDetail("vatNumber", p.VATNumber)
		}
	}

	return nil
}

// --- Entity-specific methods (not in base CatalogService) ---

// FindByVATNumber retrieves partner by Hungarian tax number.
func (s *Service) FindByVATNumber(ctx context.Context, vatNumber string) (*Partner, error) {
	return s.repo.FindByVATNumber(ctx, vatNumber)
}

// checkVATExists checks if tax number is already used by another partner.
func (s *Service) checkVATExists(ctx context.Context, vatNumber string, excludeID id.ID) (bool, error) {
	existing, err := s.repo.FindByVATNumber(ctx, vatNumber)
	if err != nil {
		// Not found is OK; other errors must be propagated (DB errors, timeouts, etc.).
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	// If found and it's a different record
	return existing.ID != excludeID, nil
}
