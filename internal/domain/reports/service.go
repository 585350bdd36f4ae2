package reports

import (
	"context"
	"fmt"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetInvoiceJournal returns the invoice journal.
func (s *Service) GetInvoiceJournal(ctx context.Context, filter InvoiceJournalFilter) (*InvoiceJournal, error) {
	// Set default pagination
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	// Default sort
	if filter.SortBy == "" {
		filter.SortBy = "date"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	journal, err := s.repo.GetInvoiceJournal(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get invoice journal: %w", err)
	}

	// Attach state summary on the first page only
	if filter.Offset == 0 {
		summary, err := s.repo.GetStateSummary(ctx, filter)
		if err == nil {
			journal.Summary = summary
		}
	}

	return journal, nil
}

// GetSubmissionActivity returns the submission activity report.
func (s *Service) GetSubmissionActivity(ctx context.Context, filter SubmissionActivityFilter) (*SubmissionActivityReport, error) {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return nil, fmt.Errorf("fromDate and toDate are required")
	}
	if filter.FromDate.After(filter.ToDate) {
		return nil, fmt.Errorf("fromDate must be before toDate")
	}

	report, err := s.repo.GetSubmissionActivity(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("get submission activity: %w", err)
	}

	return report, nil
}
