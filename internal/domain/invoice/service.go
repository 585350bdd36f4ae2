package invoice

import (
	"context"
	"fmt"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/numerator"
	"navgate/internal/core/security"
	"navgate/internal/core/tx"
	"navgate/internal/domain"
	"navgate/internal/domain/audit"
	"navgate/pkg/logger"
)

// Service provides the invoice document lifecycle: draft CRUD, gapless
// numbering, and finalization (chain sequencing + posting).
type Service struct {
	repo      Repository
	txManager tx.Manager
	sequencer *Sequencer
	numerator numerator.Generator
	policy    security.FinalizePolicy
}

// NewService creates the invoice service.
func NewService(repo Repository, txManager tx.LockingManager, gen numerator.Generator) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		sequencer: NewSequencer(repo, txManager),
		numerator: gen,
	}
}

// WithFinalizePolicy sets the closed-period policy checked on Finalize.
// No policy means finalization is never date-restricted.
func (s *Service) WithFinalizePolicy(policy security.FinalizePolicy) *Service {
	s.policy = policy
	return s
}

// Create stores a new draft invoice, assigning its number from the gapless
// per-company series when none was supplied.
func (s *Service) Create(ctx context.Context, inv *Invoice) error {
	inv.Recalculate()
	if err := inv.Validate(ctx); err != nil {
		return err
	}

	if inv.IsModification() {
		original, err := s.repo.GetByID(ctx, *inv.ReversedEntryID)
		if err != nil {
			return err
		}
		if !original.Posted {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"cannot modify an invoice that was never finalized").
				WithDetail("original", original.Number)
		}
		if original.CompanyID != inv.CompanyID {
			return apperror.NewValidation("modification must belong to the original invoice's company").
				WithDetail("field", "reversedEntryId")
		}
	}

	audit.EnrichCreatedBy(ctx, inv)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if inv.Number == "" {
			cfg := numerator.DefaultConfig("INV")
			cfg.Scope = inv.CompanyID.String()
			number, err := s.numerator.GetNextNumber(ctx, cfg, nil, inv.Date)
			if err != nil {
				return fmt.Errorf("generate invoice number: %w", err)
			}
			inv.Number = number
		}
		if err := s.repo.Create(ctx, inv); err != nil {
			return err
		}
		return s.repo.SaveLines(ctx, inv.ID, inv.Lines)
	})
}

// GetByID loads an invoice with its lines.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Lines, err = s.repo.GetLines(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Update replaces a draft invoice. Finalized invoices are immutable; issue a
// modification invoice instead.
func (s *Service) Update(ctx context.Context, inv *Invoice) error {
	current, err := s.repo.GetByID(ctx, inv.ID)
	if err != nil {
		return err
	}
	if err := current.CanModify(); err != nil {
		return err
	}

	inv.Recalculate()
	if err := inv.Validate(ctx); err != nil {
		return err
	}

	audit.EnrichUpdatedBy(ctx, inv)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}
		return s.repo.SaveLines(ctx, inv.ID, inv.Lines)
	})
}

// Delete removes a draft invoice. Finalized invoices are never deleted; they
// can only be reversed or annulled.
func (s *Service) Delete(ctx context.Context, invoiceID id.ID) error {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Posted {
		return apperror.NewBusinessRule(apperror.CodeDocumentPosted,
			"cannot delete a finalized invoice").
			WithDetail("invoice", inv.Number)
	}
	return s.repo.Delete(ctx, invoiceID)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	return s.repo.List(ctx, filter)
}

// Finalize posts the invoice: validates it, runs chain sequencing (assigning
// chain_index and the chain-global line numbers exactly once) and marks it
// posted. Safe to retry after a lock conflict; already-finalized invoices
// are a no-op.
func (s *Service) Finalize(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Posted {
		return inv, nil
	}
	if err := inv.Validate(ctx); err != nil {
		return nil, err
	}
	if s.policy != nil {
		if err := s.policy.CanFinalize(ctx, inv.Date); err != nil {
			return nil, err
		}
	}

	audit.EnrichUpdatedBy(ctx, inv)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.sequencer.Sequence(ctx, inv); err != nil {
			return err
		}
		inv.MarkPosted()
		return s.repo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice finalized",
		"invoice", inv.Number,
		"chain_index", *inv.ChainIndex,
	)
	return inv, nil
}
