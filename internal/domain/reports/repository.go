package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// Invoice journal
	GetInvoiceJournal(ctx context.Context, filter InvoiceJournalFilter) (*InvoiceJournal, error)
	GetStateSummary(ctx context.Context, filter InvoiceJournalFilter) ([]StateSummary, error)

	// Submission activity
	GetSubmissionActivity(ctx context.Context, filter SubmissionActivityFilter) (*SubmissionActivityReport, error)
}
