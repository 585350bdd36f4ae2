package dto

import (
	"time"

	"navgate/internal/core/id"
	"navgate/internal/domain/reports"
)

// --- Invoice journal ---

// InvoiceJournalRequest holds the query params of the invoice journal.
type InvoiceJournalRequest struct {
	FromDate  *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"toDate" time_format:"2006-01-02"`
	CompanyID string     `form:"companyId"`
	PartnerID string     `form:"partnerId"`
	Posted    *bool      `form:"posted"`
	Cancelled *bool      `form:"cancelled"`
	States    []string   `form:"state"`
	SortBy    string     `form:"sortBy"`
	SortOrder string     `form:"sortOrder"`
	Limit     int        `form:"limit"`
	Offset    int        `form:"offset"`
}

// ToFilter converts the request to a domain filter.
func (r *InvoiceJournalRequest) ToFilter() (reports.InvoiceJournalFilter, error) {
	filter := reports.InvoiceJournalFilter{
		FromDate:  r.FromDate,
		ToDate:    r.ToDate,
		Posted:    r.Posted,
		Cancelled: r.Cancelled,
		States:    r.States,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
		Limit:     r.Limit,
		Offset:    r.Offset,
	}

	if r.CompanyID != "" {
		companyID, err := id.Parse(r.CompanyID)
		if err != nil {
			return filter, err
		}
		filter.CompanyID = &companyID
	}
	if r.PartnerID != "" {
		partnerID, err := id.Parse(r.PartnerID)
		if err != nil {
			return filter, err
		}
		filter.PartnerID = &partnerID
	}

	return filter, nil
}

// --- Submission activity ---

// SubmissionActivityRequest holds the query params of the submission
// activity report.
type SubmissionActivityRequest struct {
	FromDate  time.Time `form:"fromDate" time_format:"2006-01-02" binding:"required"`
	ToDate    time.Time `form:"toDate" time_format:"2006-01-02" binding:"required"`
	CompanyID string    `form:"companyId"`
}

// ToFilter converts the request to a domain filter.
func (r *SubmissionActivityRequest) ToFilter() (reports.SubmissionActivityFilter, error) {
	filter := reports.SubmissionActivityFilter{
		FromDate: r.FromDate,
		ToDate:   r.ToDate,
	}

	if r.CompanyID != "" {
		companyID, err := id.Parse(r.CompanyID)
		if err != nil {
			return filter, err
		}
		filter.CompanyID = &companyID
	}

	return filter, nil
}
