// Package report_repo provides PostgreSQL implementations for report
// repositories.
package report_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"

	"navgate/internal/domain/reports"
	"navgate/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository with read-only aggregate queries.
type ReportRepo struct {
	txm *postgres.TxManager
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txm: txm}
}

// journalSortColumns whitelists sortable journal columns.
var journalSortColumns = map[string]string{
	"date":             "i.date",
	"number":           "i.number",
	"gross_amount_huf": "i.gross_amount_huf",
}

// journalBase joins each invoice with its most recent non-released
// transaction. LATERAL keeps one submission row per invoice.
const journalBase = `
	FROM doc_invoices i
	JOIN cat_companies c ON c.id = i.company_id
	JOIN cat_partners p ON p.id = i.partner_id
	LEFT JOIN LATERAL (
		SELECT t.state, t.transaction_code
		FROM submission_transactions t
		WHERE t.invoice_id = i.id AND t.deletion_mark = false
		ORDER BY t.created_at DESC
		LIMIT 1
	) t ON true
	WHERE i.deletion_mark = false
`

// journalConditions appends filter conditions and returns the SQL tail plus
// its arguments.
func journalConditions(filter reports.InvoiceJournalFilter) (string, []any) {
	var sb strings.Builder
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		fmt.Fprintf(&sb, " AND "+cond, len(args))
	}

	if filter.FromDate != nil {
		add("i.date >= $%d", *filter.FromDate)
	}
	if filter.ToDate != nil {
		add("i.date < $%d", *filter.ToDate)
	}
	if filter.CompanyID != nil {
		add("i.company_id = $%d", *filter.CompanyID)
	}
	if filter.PartnerID != nil {
		add("i.partner_id = $%d", *filter.PartnerID)
	}
	if filter.Posted != nil {
		add("i.posted = $%d", *filter.Posted)
	}
	if filter.Cancelled != nil {
		add("i.cancelled = $%d", *filter.Cancelled)
	}
	if len(filter.States) > 0 {
		add("COALESCE(t.state, '') = ANY($%d)", filter.States)
	}

	return sb.String(), args
}

// GetInvoiceJournal retrieves the invoice journal.
func (r *ReportRepo) GetInvoiceJournal(ctx context.Context, filter reports.InvoiceJournalFilter) (*reports.InvoiceJournal, error) {
	conds, args := journalConditions(filter)
	querier := r.txm.GetQuerier(ctx)

	journal := &reports.InvoiceJournal{
		Items:  []reports.InvoiceJournalItem{},
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	countQuery := "SELECT COUNT(*)" + journalBase + conds
	if err := querier.QueryRow(ctx, countQuery, args...).Scan(&journal.TotalCount); err != nil {
		return nil, fmt.Errorf("count invoice journal: %w", err)
	}

	sortCol, ok := journalSortColumns[filter.SortBy]
	if !ok {
		sortCol = "i.date"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	query := `
		SELECT
			i.id AS invoice_id, i.number, i.date,
			i.company_id, c.name AS company_name,
			i.partner_id, p.name AS partner_name,
			i.posted, i.cancelled, i.chain_index,
			i.gross_amount, i.gross_amount_huf,
			COALESCE(t.state, '') AS state,
			COALESCE(t.transaction_code, '') AS transaction_code
	` + journalBase + conds
	query += fmt.Sprintf(" ORDER BY %s %s, i.number %s", sortCol, direction, direction)
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	if err := pgxscan.Select(ctx, querier, &journal.Items, query, args...); err != nil {
		return nil, fmt.Errorf("invoice journal: %w", err)
	}

	return journal, nil
}

// GetStateSummary returns invoice counts and HUF totals grouped by the
// current submission state.
func (r *ReportRepo) GetStateSummary(ctx context.Context, filter reports.InvoiceJournalFilter) ([]reports.StateSummary, error) {
	conds, args := journalConditions(filter)

	query := `
		SELECT
			COALESCE(t.state, '') AS state,
			COUNT(*) AS count,
			COALESCE(SUM(i.gross_amount_huf), 0) AS gross_amount_huf
	` + journalBase + conds + `
		GROUP BY COALESCE(t.state, '')
		ORDER BY count DESC
	`

	var rows []reports.StateSummary
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("state summary: %w", err)
	}

	return rows, nil
}

// GetSubmissionActivity aggregates status history movements over a period.
func (r *ReportRepo) GetSubmissionActivity(ctx context.Context, filter reports.SubmissionActivityFilter) (*reports.SubmissionActivityReport, error) {
	query := `
		SELECT h.action, h.to_state, COUNT(*) AS count
		FROM reg_status_history h
	`
	args := []any{filter.FromDate, filter.ToDate}
	if filter.CompanyID != nil {
		query += `
		JOIN doc_invoices i ON i.id = h.invoice_id
		WHERE h.period >= $1 AND h.period < $2 AND i.company_id = $3
		`
		args = append(args, *filter.CompanyID)
	} else {
		query += `
		WHERE h.period >= $1 AND h.period < $2
		`
	}
	query += " GROUP BY h.action, h.to_state ORDER BY count DESC"

	var rows []reports.SubmissionActivityRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("submission activity: %w", err)
	}

	report := &reports.SubmissionActivityReport{
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
		Rows:     rows,
	}
	for _, row := range rows {
		report.Total += row.Count
	}

	return report, nil
}
