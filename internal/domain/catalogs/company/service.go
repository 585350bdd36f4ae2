package company

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

// Service provides business logic for the Company catalog.
type Service struct {
	*domain.CatalogService[*Company]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Company service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Company]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "company",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      gen,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)
	base.Hooks().OnBeforeUpdate(svc.prepareForUpdate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, c *Company) error {
	if c.Code == "" {
		cfg := numerator.DefaultConfig("CMP")
		code, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		c.Code = code
	}

	return s.checkVATUnique(ctx, c)
}

func (s *Service) prepareForUpdate(ctx context.Context, c *Company) error {
	return s.checkVATUnique(ctx, c)
}

func (s *Service) checkVATUnique(ctx context.Context, c *Company) error {
	existing, err := s.repo.FindByVATNumber(ctx, c.VATNumber)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != c.ID {
		return apperror.NewConflict("company with this tax number already exists").
			WithDetail("vatNumber", c.VATNumber)
	}
	return nil
}

// GetDefault retrieves the default company for new invoices.
func (s *Service) GetDefault(ctx context.Context) (*Company, error) {
	return s.repo.GetDefault(ctx)
}

// SetDefault makes one company the default, clearing the flag elsewhere.
func (s *Service) SetDefault(ctx context.Context, companyID id.ID) error {
	list, err := s.repo.List(ctx, domain.ListFilter{Limit: 0})
	if err != nil {
		return err
	}

	var target *Company
	for _, c := range list.Items {
		if c.ID == companyID {
			target = c
		}
	}
	if target == nil {
		return apperror.NewNotFound("company", companyID.String())
	}

	for _, c := range list.Items {
		changed := false
		if c.ID == companyID && !c.IsDefault {
			c.IsDefault = true
			changed = true
		} else if c.ID != companyID && c.IsDefault {
			c.IsDefault = false
			changed = true
		}
		if changed {
			if err := s.repo.Update(ctx, c); err != nil {
				return err
			}
		}
	}
	return nil
}
