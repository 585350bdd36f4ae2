package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/catalogs/currency"
	"navgate/internal/domain/catalogs/partner"
	"navgate/internal/domain/invoice"
	"navgate/internal/nav"
)

// memCompanies resolves companies for the pre-submission checks.
type memCompanies struct {
	companies map[id.ID]*company.Company
}

func (r *memCompanies) GetByID(_ context.Context, companyID id.ID) (*company.Company, error) {
	comp, ok := r.companies[companyID]
	if !ok {
		return nil, apperror.NewNotFound("company", companyID.String())
	}
	return comp, nil
}

func (r *memCompanies) add(companyID id.ID) *company.Company {
	comp := company.NewCompany("MINTA", "Minta Kft.", "12345678-2-13", id.New())
	comp.ID = companyID
	r.companies[companyID] = comp
	return comp
}

// checkerPartners resolves every buyer to a valid domestic company partner.
type checkerPartners struct{}

func (checkerPartners) GetByID(_ context.Context, partnerID id.ID) (*partner.Partner, error) {
	p := partner.NewPartner("BUYER", "Vevő Zrt.", "HU")
	p.ID = partnerID
	vat := "87654321-2-41"
	p.VATNumber = &vat
	return p, nil
}

// checkerCurrencies resolves every currency to HUF.
type checkerCurrencies struct{}

func (checkerCurrencies) GetByID(_ context.Context, currencyID id.ID) (*currency.Currency, error) {
	iso, symbol := "HUF", "Ft"
	c := currency.NewCurrency("HUF", "Hungarian forint", &iso, &symbol)
	c.ID = currencyID
	return c, nil
}

type serviceHarness struct {
	*harness
	companies *memCompanies
	triggers  *fakeTriggers
	service   *Service
	slept     []time.Duration
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()
	h := newHarness(t)
	sh := &serviceHarness{
		harness:   h,
		companies: &memCompanies{companies: map[id.ID]*company.Company{}},
		triggers:  &fakeTriggers{},
	}
	guard, err := invoice.NewGuardEvaluator()
	require.NoError(t, err)
	checker := invoice.NewChecker(checkerPartners{}, checkerCurrencies{}, guard)
	sh.service = NewService(
		h.machine, h.transactions, h.history, h.invoices, sh.companies, checker, sh.triggers,
	)
	sh.service.sleep = func(_ context.Context, d time.Duration) {
		sh.slept = append(sh.slept, d)
	}
	sh.service.now = func() time.Time { return h.now }
	return sh
}

// addInvoice registers the invoice's company for the checks too.
func (sh *serviceHarness) addInvoice(t *testing.T, number string) *invoice.Invoice {
	t.Helper()
	inv := sh.harness.addInvoice(t, number)
	sh.companies.add(inv.CompanyID)
	return inv
}

func TestSubmitUploadsAndPolls(t *testing.T) {
	sh := newServiceHarness(t)
	inv := sh.addInvoice(t, "INV/2026/00060")

	sh.client.statuses["TXC001"] = doneStatus("1")

	trs, err := sh.service.Submit(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	require.Len(t, trs, 1)

	// the post-send poll already settled the verdict
	assert.Equal(t, StateConfirmed, trs[0].State)
	require.Len(t, sh.slept, 1)
	assert.Equal(t, pollDelay, sh.slept[0])

	// everything settled: no background trigger needed
	assert.Empty(t, sh.triggers.armed)
}

func TestSubmitArmsTriggerWhileProcessing(t *testing.T) {
	sh := newServiceHarness(t)
	inv := sh.addInvoice(t, "INV/2026/00061")

	sh.client.statuses["TXC001"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{Index: "1", InvoiceStatus: nav.StatusProcessing}},
	}

	trs, err := sh.service.Submit(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	assert.Equal(t, StateSent, trs[0].State)

	require.Len(t, sh.triggers.armed, 1)
	assert.Equal(t, sh.now.Add(rearmInterval), sh.triggers.armed[0])
}

func TestSubmitBlocksOnCheckFailures(t *testing.T) {
	sh := newServiceHarness(t)
	inv := sh.addInvoice(t, "INV/2026/00062")

	// invalid seller tax number fails the checks for the whole call
	sh.companies.companies[inv.CompanyID].VATNumber = "not-a-tax-number"

	_, err := sh.service.Submit(context.Background(), []id.ID{inv.ID}, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, sh.client.sent)
}

func TestCheckIsDryRun(t *testing.T) {
	sh := newServiceHarness(t)
	inv := sh.addInvoice(t, "INV/2026/00063")
	sh.companies.companies[inv.CompanyID].VATNumber = "not-a-tax-number"

	failures, err := sh.service.Check(context.Background(), []id.ID{inv.ID})
	require.NoError(t, err)
	require.NotEmpty(t, failures)
	assert.Empty(t, sh.client.sent)
	assert.Empty(t, sh.transactions.trs)
}

func TestUpdateStatusSettlesWaitingAndTimedOut(t *testing.T) {
	sh := newServiceHarness(t)

	waiting := sh.addInvoice(t, "INV/2026/00064")
	sh.client.statuses["TXC001"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{Index: "1", InvoiceStatus: nav.StatusProcessing}},
	}
	_, err := sh.service.Submit(context.Background(), []id.ID{waiting.ID}, "alice")
	require.NoError(t, err)
	waitingTr := sh.activeTransaction(t, waiting.ID)
	require.Equal(t, StateSent, waitingTr.State)

	timedOut := sh.addInvoice(t, "INV/2026/00065")
	sh.client.manageErr = apperror.NewRemoteTimeout("manageInvoice")
	_, err = sh.machine.Upload(context.Background(), []id.ID{timedOut.ID}, "alice")
	require.NoError(t, err)
	sh.client.manageErr = nil
	timedOutTr := sh.activeTransaction(t, timedOut.ID)

	// later: the first is done, the second proven absent
	sh.now = sh.now.Add(10 * time.Minute)
	sh.client.statuses["TXC001"] = doneStatus("1")
	sh.client.listPages = []nav.TransactionList{{}}

	require.NoError(t, sh.service.UpdateStatus(context.Background(), ActorWorker))

	assert.Equal(t, StateConfirmed, waitingTr.State)
	assert.Equal(t, StateToSend, timedOutTr.State)

	// nothing awaits a remote verdict anymore; only the submit pass armed
	// the trigger
	assert.Len(t, sh.triggers.armed, 1)
}

func TestUpdateStatusRetriesQueryError(t *testing.T) {
	sh := newServiceHarness(t)
	inv := sh.addInvoice(t, "INV/2026/00066")

	// the post-send poll fails, parking the transaction in query_error
	sh.client.statusErr = errors.New("authority unavailable")
	trs, err := sh.service.Submit(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	require.Equal(t, StateQueryError, trs[0].State)

	// query_error is retryable, so the trigger must stay armed
	require.Len(t, sh.triggers.armed, 1)

	// next background pass: the authority answers again
	sh.client.statusErr = nil
	sh.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, sh.service.UpdateStatus(context.Background(), ActorWorker))

	tr := sh.activeTransaction(t, inv.ID)
	assert.Equal(t, StateConfirmed, tr.State)

	// settled: the background pass had nothing left to re-arm for
	assert.Len(t, sh.triggers.armed, 1)
}
