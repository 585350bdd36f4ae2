// Package reports provides read-only reporting over invoices and their
// submission lifecycle.
package reports

import (
	"time"

	"navgate/internal/core/id"
	"navgate/internal/core/types"
)

// --- Invoice journal ---

// InvoiceJournalFilter defines filter for the invoice journal.
type InvoiceJournalFilter struct {
	// Period (issue date)
	FromDate *time.Time
	ToDate   *time.Time

	// Filters
	CompanyID *id.ID
	PartnerID *id.ID
	Posted    *bool
	Cancelled *bool

	// States filters by the current submission state; an invoice without
	// any transaction matches the empty pseudo-state "".
	States []string

	// Sorting
	SortBy    string // date, number, gross_amount_huf
	SortOrder string // asc, desc

	// Pagination
	Limit  int
	Offset int
}

// InvoiceJournalItem is one row of the invoice journal: the invoice joined
// with its latest submission transaction, if any.
type InvoiceJournalItem struct {
	InvoiceID      id.ID       `db:"invoice_id" json:"invoiceId"`
	Number         string      `db:"number" json:"number"`
	Date           time.Time   `db:"date" json:"date"`
	CompanyID      id.ID       `db:"company_id" json:"companyId"`
	CompanyName    string      `db:"company_name" json:"companyName"`
	PartnerID      id.ID       `db:"partner_id" json:"partnerId"`
	PartnerName    string      `db:"partner_name" json:"partnerName"`
	Posted         bool        `db:"posted" json:"posted"`
	Cancelled      bool        `db:"cancelled" json:"cancelled"`
	ChainIndex     *int        `db:"chain_index" json:"chainIndex,omitempty"`
	GrossAmount    types.Money `db:"gross_amount" json:"grossAmount"`
	GrossAmountHUF types.Money `db:"gross_amount_huf" json:"grossAmountHuf"`

	// Submission fields; empty when the invoice was never submitted.
	State           string `db:"state" json:"state,omitempty"`
	TransactionCode string `db:"transaction_code" json:"transactionCode,omitempty"`
}

// StateSummary aggregates invoices by current submission state.
type StateSummary struct {
	State          string      `db:"state" json:"state"`
	Count          int64       `db:"count" json:"count"`
	GrossAmountHUF types.Money `db:"gross_amount_huf" json:"grossAmountHuf"`
}

// InvoiceJournal is the full journal response.
type InvoiceJournal struct {
	Items      []InvoiceJournalItem `json:"items"`
	TotalCount int64                `json:"totalCount"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`

	// Summary is filled on the first page only.
	Summary []StateSummary `json:"summary,omitempty"`
}

// --- Submission activity report ---

// SubmissionActivityFilter defines filter for the submission activity report.
type SubmissionActivityFilter struct {
	// Period (required, matched against the movement period)
	FromDate time.Time
	ToDate   time.Time

	CompanyID *id.ID
}

// SubmissionActivityRow counts state movements by action and target state.
type SubmissionActivityRow struct {
	Action  string `db:"action" json:"action"`
	ToState string `db:"to_state" json:"toState"`
	Count   int64  `db:"count" json:"count"`
}

// SubmissionActivityReport summarizes what the state machine did during a
// period, built from the status history register.
type SubmissionActivityReport struct {
	FromDate time.Time               `json:"fromDate"`
	ToDate   time.Time               `json:"toDate"`
	Rows     []SubmissionActivityRow `json:"rows"`
	Total    int64                   `json:"total"`
}
