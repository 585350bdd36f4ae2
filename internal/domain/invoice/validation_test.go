package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/catalogs/currency"
	"navgate/internal/domain/catalogs/partner"
)

type fakePartners struct {
	byID map[id.ID]*partner.Partner
}

func (f *fakePartners) GetByID(_ context.Context, partnerID id.ID) (*partner.Partner, error) {
	p, ok := f.byID[partnerID]
	if !ok {
		return nil, apperror.NewNotFound("partner", partnerID.String())
	}
	return p, nil
}

type fakeCurrencies struct {
	byID map[id.ID]*currency.Currency
}

func (f *fakeCurrencies) GetByID(_ context.Context, currencyID id.ID) (*currency.Currency, error) {
	c, ok := f.byID[currencyID]
	if !ok {
		return nil, apperror.NewNotFound("currency", currencyID.String())
	}
	return c, nil
}

type checkFixture struct {
	checker *Checker
	company *company.Company
	buyer   *partner.Partner
	huf     *currency.Currency
	eur     *currency.Currency
}

func newCheckFixture(t *testing.T) *checkFixture {
	t.Helper()

	vat := "87654321-2-13"
	buyer := partner.NewPartner("P-1", "Vevő Kft.", "HU")
	buyer.VATNumber = &vat

	hufCode, eurCode := "HUF", "EUR"
	huf := currency.NewCurrency("HUF", "Hungarian forint", &hufCode, nil)
	eur := currency.NewCurrency("EUR", "Euro", &eurCode, nil)

	comp := company.NewCompany("C-1", "Eladó Zrt.", "12345678-2-41", huf.ID)

	guard, err := NewGuardEvaluator()
	require.NoError(t, err)

	checker := NewChecker(
		&fakePartners{byID: map[id.ID]*partner.Partner{buyer.ID: buyer}},
		&fakeCurrencies{byID: map[id.ID]*currency.Currency{huf.ID: huf, eur.ID: eur}},
		guard,
	)
	checker.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	return &checkFixture{checker: checker, company: comp, buyer: buyer, huf: huf, eur: eur}
}

func (f *checkFixture) invoice(currencyID id.ID) *Invoice {
	inv := NewInvoice(f.company.ID, f.buyer.ID, currencyID)
	inv.Number = "INV/2026/00001"
	inv.Date = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inv.AddLine(nil, "consulting", types.MustMoney("1"), types.MustMoney("1000"), types.MustMoney("27"), "VAT27")
	return inv
}

func TestCheckPassesCleanInvoice(t *testing.T) {
	f := newCheckFixture(t)
	inv := f.invoice(f.huf.ID)

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestCheckSellerTaxNumber(t *testing.T) {
	f := newCheckFixture(t)
	f.company.VATNumber = "1234-5-67"
	inv := f.invoice(f.huf.ID)

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "seller-tax-number", failures[0].Rule)
	assert.Equal(t, []id.ID{inv.ID}, failures[0].InvoiceIDs)
}

func TestCheckBuyerTaxNumber(t *testing.T) {
	f := newCheckFixture(t)
	bad := "not-a-tax-number"
	f.buyer.VATNumber = &bad
	inv := f.invoice(f.huf.ID)

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "buyer-tax-number", failures[0].Rule)
}

func TestCheckPrivatePersonNeedsNoTaxNumber(t *testing.T) {
	f := newCheckFixture(t)
	f.buyer.VATNumber = nil
	f.buyer.PrivatePerson = true
	inv := f.invoice(f.huf.ID)

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestCheckForeignCurrencyNeedsRate(t *testing.T) {
	f := newCheckFixture(t)
	inv := f.invoice(f.eur.ID)
	inv.ExchangeRate = types.Zero()

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "currency-rate", failures[0].Rule)

	inv.ExchangeRate = types.MustMoney("395.5")
	failures, err = f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestCheckFutureIssueDate(t *testing.T) {
	f := newCheckFixture(t)
	inv := f.invoice(f.huf.ID)
	inv.Date = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "issue-date", failures[0].Rule)
}

func TestCheckLineCategories(t *testing.T) {
	f := newCheckFixture(t)
	inv := f.invoice(f.huf.ID)
	inv.AddLine(nil, "mystery", types.MustMoney("1"), types.MustMoney("10"), types.Zero(), "NOPE")
	inv.SetRounding(types.MustMoney("0.5"))
	inv.Lines[2].VATCategory = "VAT27"

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "line-vat-category", failures[0].Rule)
	assert.Equal(t, "line-vat-category", failures[1].Rule)
}

func TestCheckGuardRule(t *testing.T) {
	f := newCheckFixture(t)
	rule := `gross <= 1000.0 || currency == "HUF"`
	f.company.GuardRule = &rule

	huf := f.invoice(f.huf.ID)
	eur := f.invoice(f.eur.ID)
	eur.ExchangeRate = types.MustMoney("395.5")
	eur.Recalculate()

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{huf, eur})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "guard-rule", failures[0].Rule)
	assert.Equal(t, []id.ID{eur.ID}, failures[0].InvoiceIDs)
}

func TestCheckBrokenGuardRuleIsConfigurationError(t *testing.T) {
	f := newCheckFixture(t)
	rule := `gross +` // does not compile
	f.company.GuardRule = &rule
	inv := f.invoice(f.huf.ID)

	_, err := f.checker.Check(context.Background(), f.company, []*Invoice{inv})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConfiguration, appErr.Code)
}

func TestCheckGroupsFailuresAcrossInvoices(t *testing.T) {
	f := newCheckFixture(t)
	f.company.VATNumber = "broken"
	a := f.invoice(f.huf.ID)
	b := f.invoice(f.huf.ID)

	failures, err := f.checker.Check(context.Background(), f.company, []*Invoice{a, b})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.ElementsMatch(t, []id.ID{a.ID, b.ID}, failures[0].InvoiceIDs)
}
