package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain"
	"navgate/internal/domain/invoice"
	"navgate/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "doc_invoices"
	invoiceLinesTable = "doc_invoice_lines"
)

var invoiceLineColumns = []string{
	"line_id", "line_no", "line_number", "kind",
	"product_id", "description",
	"quantity", "unit_price", "vat_category", "vat_percent",
	"net_amount", "vat_amount", "gross_amount",
	"net_amount_huf", "vat_amount_huf", "gross_amount_huf",
}

// InvoiceRepo implements invoice.Repository.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txm *postgres.TxManager) *InvoiceRepo {
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*invoice.Invoice](
			txm,
			invoicesTable,
			postgres.ExtractDBColumns[invoice.Invoice](),
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
	}
}

// GetLines retrieves lines of an invoice in display order.
func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID id.ID) ([]invoice.Line, error) {
	q := r.Builder().
		Select(invoiceLineColumns...).
		From(invoiceLinesTable).
		Where(squirrel.Eq{"document_id": invoiceID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []invoice.Line
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces lines of an invoice (delete existing + insert new).
func (r *InvoiceRepo) SaveLines(ctx context.Context, invoiceID id.ID, lines []invoice.Line) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + invoiceLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, invoiceID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(invoiceLinesTable).
		Columns(append([]string{"document_id"}, invoiceLineColumns...)...)

	for _, line := range lines {
		q = q.Values(
			invoiceID,
			line.LineID, line.LineNo, line.LineNumber, line.Kind,
			line.ProductID, line.Description,
			line.Quantity, line.UnitPrice, line.VATCategory, line.VATPercent,
			line.NetAmount, line.VATAmount, line.GrossAmount,
			line.NetAmountHUF, line.VATAmountHUF, line.GrossAmountHUF,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// ListSuccessors retrieves the invoices whose reversed_entry_id points at
// the given invoice.
func (r *InvoiceRepo) ListSuccessors(ctx context.Context, invoiceID id.ID) ([]*invoice.Invoice, error) {
	q := r.baseSelect(ctx).
		Where(squirrel.Eq{"reversed_entry_id": invoiceID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("date ASC, created_at ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*invoice.Invoice
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list successors: %w", err)
	}

	return items, nil
}

// UpdateChainFields persists chain_index and the line numbers assigned by
// the sequencer. Line numbers are written per line to avoid rewriting the
// whole line set.
func (r *InvoiceRepo) UpdateChainFields(ctx context.Context, inv *invoice.Invoice) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	q := r.Builder().
		Update(invoicesTable).
		Set("chain_index", inv.ChainIndex).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": inv.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update chain fields: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(invoicesTable, inv.ID.String())
	}

	for _, line := range inv.Lines {
		lq := r.Builder().
			Update(invoiceLinesTable).
			Set("line_number", line.LineNumber).
			Where(squirrel.Eq{"document_id": inv.ID, "line_id": line.LineID})

		sql, args, err := lq.ToSql()
		if err != nil {
			return fmt.Errorf("build line update: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("update line number: %w", err)
		}
	}

	return nil
}

// List retrieves invoices with invoice-specific filtering.
func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	result := domain.ListResult[*invoice.Invoice]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.CompanyID != nil {
		q = q.Where(squirrel.Eq{"company_id": *filter.CompanyID})
	}
	if filter.PartnerID != nil {
		q = q.Where(squirrel.Eq{"partner_id": *filter.PartnerID})
	}
	if filter.Posted != nil {
		q = q.Where(squirrel.Eq{"posted": *filter.Posted})
	}
	if filter.Cancelled != nil {
		q = q.Where(squirrel.Eq{"cancelled": *filter.Cancelled})
	}
	if filter.Number != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Number + "%"})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list: %w", err)
	}

	return result, nil
}
