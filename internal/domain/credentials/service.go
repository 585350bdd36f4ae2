package credentials

import (
	"context"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/tx"
	"navgate/internal/domain"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/nav"
	"navgate/pkg/logger"
)

// TokenExchanger is the slice of the NAV client needed for connection tests.
type TokenExchanger interface {
	TokenExchange(ctx context.Context, creds nav.Credentials) (nav.Token, error)
}

// CompanyLookup resolves the owning company of a credential set.
type CompanyLookup interface {
	GetByID(ctx context.Context, companyID id.ID) (*company.Company, error)
}

// Service provides credential management: CRUD, activation and end-to-end
// connection testing.
type Service struct {
	*domain.CatalogService[*Credentials]
	repo      Repository
	txManager tx.Manager
	companies CompanyLookup
	exchanger TokenExchanger
}

// NewService creates the credentials service.
func NewService(repo Repository, txManager tx.Manager, companies CompanyLookup, exchanger TokenExchanger) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Credentials]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "credentials",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		txManager:      txManager,
		companies:      companies,
		exchanger:      exchanger,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForWrite)
	base.Hooks().OnBeforeUpdate(svc.prepareForWrite)

	return svc
}

// prepareForWrite keeps the single-active invariant when a set is saved
// with the active flag on.
func (s *Service) prepareForWrite(ctx context.Context, c *Credentials) error {
	if _, err := s.companies.GetByID(ctx, c.CompanyID); err != nil {
		return err
	}
	if c.Active {
		return s.repo.DeactivateAll(ctx, c.CompanyID, c.Mode)
	}
	return nil
}

// Activate makes one credential set the active one of its (company, mode)
// pair, deactivating any other.
func (s *Service) Activate(ctx context.Context, credentialsID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByID(ctx, credentialsID)
		if err != nil {
			return err
		}
		if err := s.repo.DeactivateAll(ctx, c.CompanyID, c.Mode); err != nil {
			return err
		}
		c.Active = true
		return s.repo.Update(ctx, c)
	})
}

// ListByCompany returns all credential sets of a company.
func (s *Service) ListByCompany(ctx context.Context, companyID id.ID) ([]*Credentials, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// ResolveActive returns the active credential set of a (company, mode) pair
// together with its wire form. Missing credentials are a configuration
// error: user-actionable, never retried automatically.
func (s *Service) ResolveActive(ctx context.Context, companyID id.ID, mode nav.Mode) (*Credentials, nav.Credentials, error) {
	comp, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, nav.Credentials{}, err
	}

	c, err := s.repo.FindActive(ctx, companyID, mode)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, nav.Credentials{}, apperror.NewConfiguration("no active NAV credentials for company").
				WithDetail("company", comp.Name).
				WithDetail("mode", string(mode))
		}
		return nil, nav.Credentials{}, err
	}

	return c, c.ToNAV(comp.VATNumber), nil
}

// ResolveByID returns the wire credentials of an existing credential set.
// Used for transactions that already carry a credential reference; the set
// need not be active anymore, since an in-flight lifecycle keeps using the
// credentials it started with.
func (s *Service) ResolveByID(ctx context.Context, credentialsID id.ID) (nav.Credentials, error) {
	c, err := s.repo.GetByID(ctx, credentialsID)
	if err != nil {
		return nav.Credentials{}, err
	}
	comp, err := s.companies.GetByID(ctx, c.CompanyID)
	if err != nil {
		return nav.Credentials{}, err
	}
	return c.ToNAV(comp.VATNumber), nil
}

// TestConnection verifies a credential set end-to-end with a token exchange.
func (s *Service) TestConnection(ctx context.Context, credentialsID id.ID) error {
	c, err := s.repo.GetByID(ctx, credentialsID)
	if err != nil {
		return err
	}
	comp, err := s.companies.GetByID(ctx, c.CompanyID)
	if err != nil {
		return err
	}

	if _, err := s.exchanger.TokenExchange(ctx, c.ToNAV(comp.VATNumber)); err != nil {
		return err
	}

	logger.Info(ctx, "credentials verified",
		"company", comp.Name,
		"mode", string(c.Mode),
		"username", c.Username,
	)
	return nil
}

// DeactivateForCompany deactivates every credential set of a company in both
// modes. Called when the company's tax number changes, since the old
// technical users are no longer valid for the new taxpayer.
func (s *Service) DeactivateForCompany(ctx context.Context, companyID id.ID) error {
	if err := s.repo.DeactivateAll(ctx, companyID, nav.ModeProduction); err != nil {
		return err
	}
	return s.repo.DeactivateAll(ctx, companyID, nav.ModeTest)
}
