package security

import (
	"context"
	"time"

	"navgate/internal/core/apperror"
)

// FinalizePolicy defines rules for invoice finalization dates.
// Different deployments may have different policies (strict vs flexible).
type FinalizePolicy interface {
	// CanFinalize checks if an invoice can be finalized with given issue date
	CanFinalize(ctx context.Context, issueDate time.Time) error

	// CanReset checks if a finalized invoice can be reset to draft
	CanReset(ctx context.Context, issueDate time.Time) error

	// GetClosedPeriod returns the date until which the period is closed
	GetClosedPeriod(ctx context.Context) time.Time
}

// StrictPolicy forbids any changes to closed period.
// Used for regulatory compliance.
type StrictPolicy struct {
	closedUntil time.Time
}

// NewStrictPolicy creates policy that forbids changes before closedUntil.
func NewStrictPolicy(closedUntil time.Time) *StrictPolicy {
	return &StrictPolicy{closedUntil: closedUntil}
}

func (p *StrictPolicy) CanFinalize(ctx context.Context, issueDate time.Time) error {
	if issueDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.Format("2006-01"))
	}
	return nil
}

func (p *StrictPolicy) CanReset(ctx context.Context, issueDate time.Time) error {
	return p.CanFinalize(ctx, issueDate)
}

func (p *StrictPolicy) GetClosedPeriod(ctx context.Context) time.Time {
	return p.closedUntil
}

// FlexiblePolicy allows backdated invoices with warnings.
// Suitable for development and small businesses.
type FlexiblePolicy struct {
	warningThreshold time.Duration // Warn if older than this
	closedUntil      time.Time     // Hard limit
}

// NewFlexiblePolicy creates policy with soft warnings.
func NewFlexiblePolicy(warningThreshold time.Duration, closedUntil time.Time) *FlexiblePolicy {
	return &FlexiblePolicy{
		warningThreshold: warningThreshold,
		closedUntil:      closedUntil,
	}
}

func (p *FlexiblePolicy) CanFinalize(ctx context.Context, issueDate time.Time) error {
	if !p.closedUntil.IsZero() && issueDate.Before(p.closedUntil) {
		return apperror.NewPeriodClosed(p.closedUntil.Format("2006-01"))
	}
	// Soft warning would be logged or returned as warning, not error
	return nil
}

func (p *FlexiblePolicy) CanReset(ctx context.Context, issueDate time.Time) error {
	return p.CanFinalize(ctx, issueDate)
}

func (p *FlexiblePolicy) GetClosedPeriod(ctx context.Context) time.Time {
	return p.closedUntil
}

// IsBackdatedWarning checks if the issue date deserves a warning.
func (p *FlexiblePolicy) IsBackdatedWarning(issueDate time.Time) bool {
	if p.warningThreshold == 0 {
		return false
	}
	return time.Since(issueDate) > p.warningThreshold
}

// OpenPolicy allows all operations (for development/testing).
type OpenPolicy struct{}

func (OpenPolicy) CanFinalize(ctx context.Context, issueDate time.Time) error { return nil }
func (OpenPolicy) CanReset(ctx context.Context, issueDate time.Time) error    { return nil }
func (OpenPolicy) GetClosedPeriod(ctx context.Context) time.Time              { return time.Time{} }
