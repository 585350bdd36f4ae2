package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/types"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/catalogs/currency"
	"navgate/internal/domain/catalogs/partner"
)

func renderFixture(t *testing.T) (*Invoice, *Chain, *company.Company, *partner.Partner) {
	t.Helper()
	repo := newFakeRepo()
	seq := NewSequencer(repo, &fakeTxm{})

	hufCode := "HUF"
	huf := currency.NewCurrency("HUF", "Hungarian forint", &hufCode, nil)
	comp := company.NewCompany("C-1", "Eladó Zrt.", "12345678-2-41", huf.ID)
	vat := "87654321-2-13"
	buyer := partner.NewPartner("P-1", "Vevő Kft.", "HU")
	buyer.VATNumber = &vat

	inv := NewInvoice(comp.ID, buyer.ID, huf.ID)
	inv.Number = "INV/2026/00042"
	inv.Date = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inv.AddLine(nil, "consulting", types.MustMoney("2"), types.MustMoney("500"), types.MustMoney("27"), "VAT27")
	inv.AddLine(nil, "training", types.MustMoney("1"), types.MustMoney("300"), types.MustMoney("5"), "VAT5")
	inv.SetRounding(types.MustMoney("0.45"))
	require.NoError(t, repo.Create(context.Background(), inv))
	require.NoError(t, seq.Sequence(context.Background(), inv))

	chain, err := BuildChain(context.Background(), repo, inv)
	require.NoError(t, err)
	return inv, chain, comp, buyer
}

func TestRenderIsDeterministic(t *testing.T) {
	inv, chain, comp, buyer := renderFixture(t)
	values, err := BuildPayloadValues(inv, chain, comp, buyer, "HUF")
	require.NoError(t, err)

	r := NewXMLRenderer()
	first, err := r.Render(context.Background(), values)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), values)
	require.NoError(t, err)

	assert.Equal(t, first, second, "equal values must yield byte-identical payloads")
}

func TestRenderBaseInvoiceStructure(t *testing.T) {
	inv, chain, comp, buyer := renderFixture(t)
	values, err := BuildPayloadValues(inv, chain, comp, buyer, "HUF")
	require.NoError(t, err)

	payload, err := NewXMLRenderer().Render(context.Background(), values)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(payload))
	root := doc.Root()
	require.Equal(t, "InvoiceData", root.Tag)

	assert.Equal(t, "INV/2026/00042", root.FindElement("invoiceNumber").Text())
	assert.Equal(t, "2026-03-10", root.FindElement("invoiceIssueDate").Text())
	assert.Nil(t, root.FindElement("//invoiceReference"), "base invoice carries no modification reference")
	assert.Equal(t, "12345678", root.FindElement("//supplierTaxNumber/taxpayerId").Text())
	assert.Equal(t, "87654321", root.FindElement("//customerTaxNumber/taxpayerId").Text())

	lines := root.FindElements("//invoiceLines/line")
	require.Len(t, lines, 3)
	assert.Equal(t, "1", lines[0].FindElement("lineNumber").Text())
	assert.Equal(t, "3", lines[2].FindElement("lineNumber").Text())
	// The rounding line reports the out-of-scope rate.
	assert.NotNil(t, lines[2].FindElement("lineAmountsNormal/lineVatRate/vatOutOfScope"))

	// One VAT summary block per distinct rate: 27%, 5%, ATK.
	assert.Len(t, root.FindElements("//summaryByVatRate"), 3)
}

func TestRenderModificationReference(t *testing.T) {
	repo := newFakeRepo()
	seq := NewSequencer(repo, &fakeTxm{})
	ctx := context.Background()

	hufCode := "HUF"
	huf := currency.NewCurrency("HUF", "Hungarian forint", &hufCode, nil)
	comp := company.NewCompany("C-1", "Eladó Zrt.", "12345678-2-41", huf.ID)
	buyer := partner.NewPartner("P-1", "Vevő Kft.", "HU")
	buyer.PrivatePerson = true

	base := makeInvoice(t, repo, "INV/2026/00001", nil, 1)
	require.NoError(t, seq.Sequence(ctx, base))
	mod := makeInvoice(t, repo, "INV/2026/00001-M1", base, 1)
	require.NoError(t, seq.Sequence(ctx, mod))

	chain, err := BuildChain(ctx, repo, mod)
	require.NoError(t, err)
	values, err := BuildPayloadValues(mod, chain, comp, buyer, "HUF")
	require.NoError(t, err)

	payload, err := NewXMLRenderer().Render(ctx, values)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(payload))
	ref := doc.Root().FindElement("//invoiceReference")
	require.NotNil(t, ref)
	assert.Equal(t, "INV/2026/00001", ref.FindElement("originalInvoiceNumber").Text())
	assert.Equal(t, "1", ref.FindElement("modificationIndex").Text())

	// Private person: no tax identity in the customer block.
	assert.Equal(t, "PRIVATE_PERSON", doc.Root().FindElement("//customerVatStatus").Text())
	assert.Nil(t, doc.Root().FindElement("//customerVatData"))
}

func TestBuildPayloadValuesRequiresSequencing(t *testing.T) {
	repo := newFakeRepo()
	hufCode := "HUF"
	huf := currency.NewCurrency("HUF", "Hungarian forint", &hufCode, nil)
	comp := company.NewCompany("C-1", "Eladó Zrt.", "12345678-2-41", huf.ID)
	buyer := partner.NewPartner("P-1", "Vevő Kft.", "HU")

	inv := makeInvoice(t, repo, "INV-1", nil, 1)
	_, err := BuildPayloadValues(inv, nil, comp, buyer, "HUF")
	require.Error(t, err)
}
