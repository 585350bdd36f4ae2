package product

import (
	"context"
	"fmt"
	"time"

	"navgate/internal/core/apperror"
	"navgate/internal/core/numerator"
	"navgate/internal/core/tx"
	"navgate/internal/domain"
)

// Service provides business logic for Product catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Product]
	repo      Repository
	numerator numerator.Generator
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
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

// prepareForCreate handles code generation and uniqueness checks.
func (s *Service) prepareForCreate(ctx context.Context, p *Product) error {
	// Generate code if not provided
	if p.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PRD"), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		p.Code = code
	}

	return s.checkArticleUnique(ctx, p)
}

// prepareForUpdate handles uniqueness checks.
func (s *Service) prepareForUpdate(ctx context.Context, p *Product) error {
	return s.checkArticleUnique(ctx, p)
}

// --- Entity-specific methods ---

// FindByArticle retrieves product by article.
func (s *Service) FindByArticle(ctx context.Context, article string) (*Product, error) {
	return s.repo.FindByArticle(ctx, article)
}

func (s *Service) checkArticleUnique(ctx context.Context, p *Product) error {
	if p.Article == nil || *p.Article == "" {
		return nil
	}
	existing, err := s.repo.FindByArticle(ctx, *p.Article)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != p.ID {
		return apperror.NewConflict("product with this article already exists").
			WithDetail("article", *p.Article)
	}
	return nil
}
