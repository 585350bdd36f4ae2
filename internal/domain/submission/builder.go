package submission

import (
	"context"

	"navgate/internal/core/id"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/invoice"
	"navgate/internal/nav"
)

// CompanyLookup resolves invoice sellers.
type CompanyLookup interface {
	GetByID(ctx context.Context, companyID id.ID) (*company.Company, error)
}

// PayloadBuilder serializes an invoice into the exact submitted XML and
// classifies its operation against the chain.
type PayloadBuilder interface {
	Build(ctx context.Context, inv *invoice.Invoice) ([]byte, nav.Operation, error)
}

// Builder is the default PayloadBuilder: resolves the parties and currency,
// classifies CREATE/MODIFY/STORNO from the chain's residual gross amount
// and renders through the payload renderer.
type Builder struct {
	invoices   invoice.Repository
	companies  CompanyLookup
	partners   invoice.PartnerLookup
	currencies invoice.CurrencyLookup
	renderer   invoice.Renderer
}

// NewBuilder creates the payload builder.
func NewBuilder(
	invoices invoice.Repository,
	companies CompanyLookup,
	partners invoice.PartnerLookup,
	currencies invoice.CurrencyLookup,
	renderer invoice.Renderer,
) *Builder {
	return &Builder{
		invoices:   invoices,
		companies:  companies,
		partners:   partners,
		currencies: currencies,
		renderer:   renderer,
	}
}

// Build implements PayloadBuilder.
func (b *Builder) Build(ctx context.Context, inv *invoice.Invoice) ([]byte, nav.Operation, error) {
	if len(inv.Lines) == 0 {
		lines, err := b.invoices.GetLines(ctx, inv.ID)
		if err != nil {
			return nil, "", err
		}
		inv.Lines = lines
	}

	comp, err := b.companies.GetByID(ctx, inv.CompanyID)
	if err != nil {
		return nil, "", err
	}
	buyer, err := b.partners.GetByID(ctx, inv.PartnerID)
	if err != nil {
		return nil, "", err
	}
	curr, err := b.currencies.GetByID(ctx, inv.CurrencyID)
	if err != nil {
		return nil, "", err
	}
	isoCode := ""
	if curr.ISOCode != nil {
		isoCode = *curr.ISOCode
	}

	operation := nav.OperationCreate
	var chain *invoice.Chain
	if inv.IsModification() {
		chain, err = invoice.BuildChain(ctx, b.invoices, inv)
		if err != nil {
			return nil, "", err
		}
		// A modification that settles the chain's gross amount to zero is a
		// full reversal; anything else is a partial modification.
		if chain.ResidualGross(inv).IsZero() {
			operation = nav.OperationStorno
		} else {
			operation = nav.OperationModify
		}
	}

	values, err := invoice.BuildPayloadValues(inv, chain, comp, buyer, isoCode)
	if err != nil {
		return nil, "", err
	}
	payload, err := b.renderer.Render(ctx, values)
	if err != nil {
		return nil, "", err
	}
	return payload, operation, nil
}
