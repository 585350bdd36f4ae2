package submission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/nav"
)

// timeOut submits one invoice through a timed-out upload.
func timeOut(t *testing.T, h *harness, number string) *Transaction {
	t.Helper()
	inv := h.addInvoice(t, number)
	h.client.manageErr = apperror.NewRemoteTimeout("manageInvoice")
	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	h.client.manageErr = nil
	tr := h.activeTransaction(t, inv.ID)
	require.Equal(t, StateSendTimeout, tr.State)
	return tr
}

// listedAs registers a transaction-list page containing one machine upload
// of the harness's credential set.
func (h *harness) listedAs(tr *Transaction, code string, annulment bool) nav.TransactionListItem {
	creds := h.resolver.wire[tr.CredentialsID]
	return nav.TransactionListItem{
		TransactionCode: code,
		Annulment:       annulment,
		Username:        creds.Username,
		Source:          nav.SourceMachine,
		SendTime:        *tr.SendTime,
	}
}

func TestRecoverTimeoutSkipsYoungTransactions(t *testing.T) {
	h := newHarness(t)
	tr := timeOut(t, h, "INV/2026/00050")

	// sent moments ago: the authority may still be processing
	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))
	assert.Equal(t, StateSendTimeout, tr.State)
	assert.Zero(t, h.client.listCalls)
}

func TestRecoverTimeoutResendsWhenAbsentFromList(t *testing.T) {
	h := newHarness(t)
	tr := timeOut(t, h, "INV/2026/00051")

	h.now = h.now.Add(10 * time.Minute)
	h.client.listPages = []nav.TransactionList{{}}

	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))

	// proven absent: safe to resend
	assert.Equal(t, StateToSend, tr.State)
	assert.Equal(t, 1, h.client.listCalls)
}

func TestRecoverTimeoutMatchesByPayload(t *testing.T) {
	h := newHarness(t)
	tr := timeOut(t, h, "INV/2026/00052")

	h.now = h.now.Add(10 * time.Minute)
	h.client.listPages = []nav.TransactionList{{
		Transactions: []nav.TransactionListItem{h.listedAs(tr, "TXC777", false)},
	}}
	h.client.statuses["TXC777"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{
			Index:           "1",
			InvoiceStatus:   nav.StatusDone,
			OriginalPayload: tr.Payload,
		}},
	}

	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))

	// the batch did arrive and was confirmed; the code is adopted
	assert.Equal(t, StateConfirmed, tr.State)
	assert.Equal(t, "TXC777", tr.TransactionCode)

	// the re-query asked for the original payloads
	require.NotEmpty(t, h.client.statusCalls)
	assert.True(t, h.client.statusCalls[0].includeOriginal)
}

func TestRecoverTimeoutIgnoresForeignListEntries(t *testing.T) {
	h := newHarness(t)
	tr := timeOut(t, h, "INV/2026/00053")

	h.now = h.now.Add(10 * time.Minute)
	foreign := h.listedAs(tr, "TXC888", false)
	foreign.Username = "someone-else"
	manual := h.listedAs(tr, "TXC889", false)
	manual.Source = "WEB"
	h.client.listPages = []nav.TransactionList{{
		Transactions: []nav.TransactionListItem{foreign, manual},
	}}

	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))

	// neither entry is ours: no status re-query, definitive resend
	assert.Empty(t, h.client.statusCalls)
	assert.Equal(t, StateToSend, tr.State)
}

func TestRecoverTimeoutMismatchedPayloadStillResends(t *testing.T) {
	h := newHarness(t)
	tr := timeOut(t, h, "INV/2026/00054")

	h.now = h.now.Add(10 * time.Minute)
	h.client.listPages = []nav.TransactionList{{
		Transactions: []nav.TransactionListItem{h.listedAs(tr, "TXC999", false)},
	}}
	// a different invoice's payload under our user in the same window
	h.client.statuses["TXC999"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{
			Index:           "1",
			InvoiceStatus:   nav.StatusDone,
			OriginalPayload: []byte("<InvoiceData>OTHER</InvoiceData>"),
		}},
	}

	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))
	assert.Equal(t, StateToSend, tr.State)
}

func TestRecoverTimeoutPagesThroughList(t *testing.T) {
	h := newHarness(t)
	tr := timeOut(t, h, "INV/2026/00055")

	h.now = h.now.Add(10 * time.Minute)
	h.client.listPages = []nav.TransactionList{
		{},
		{Transactions: []nav.TransactionListItem{h.listedAs(tr, "TXC321", false)}},
	}
	h.client.statuses["TXC321"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{
			Index:           "1",
			InvoiceStatus:   nav.StatusProcessing,
			OriginalPayload: tr.Payload,
		}},
	}

	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))

	assert.Equal(t, 2, h.client.listCalls)
	// found on the second page, still processing: back to the regular poll
	assert.Equal(t, StateSent, tr.State)
	assert.Equal(t, "TXC321", tr.TransactionCode)
}

func TestRecoverTimeoutAnnulmentMatchesByReference(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00056")

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	tr := h.activeTransaction(t, inv.ID)
	h.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	h.client.annulErr = apperror.NewRemoteTimeout("manageAnnulment")
	require.NoError(t, h.machine.RequestCancel(context.Background(), []CancelRequest{{
		InvoiceID: inv.ID, Code: nav.AnnulmentErraticData, Reason: "duplicate",
	}}, "alice"))
	require.Equal(t, StateCancelTimeout, tr.State)

	h.now = h.now.Add(10 * time.Minute)
	h.client.listPages = []nav.TransactionList{{
		Transactions: []nav.TransactionListItem{h.listedAs(tr, "TXA555", true)},
	}}
	h.client.statuses["TXA555"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{
			Index:           "1",
			InvoiceStatus:   nav.StatusDone,
			OriginalPayload: []byte("<annulmentReference>" + inv.Number + "</annulmentReference>"),
		}},
		AnnulmentStatus: nav.AnnulmentVerificationPending,
	}

	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))

	assert.Equal(t, StateCancelPending, tr.State)
	assert.Equal(t, "TXA555", tr.TransactionCode)
}

func TestRecoverTimeoutAnnulmentAbsentNeedsNewRequest(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00057")

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	tr := h.activeTransaction(t, inv.ID)
	h.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	h.client.annulErr = apperror.NewRemoteTimeout("manageAnnulment")
	require.NoError(t, h.machine.RequestCancel(context.Background(), []CancelRequest{{
		InvoiceID: inv.ID, Code: nav.AnnulmentErraticData, Reason: "duplicate",
	}}, "alice"))

	h.now = h.now.Add(10 * time.Minute)
	h.client.listPages = []nav.TransactionList{{}}

	require.NoError(t, h.machine.RecoverTimeout(context.Background(), ActorWorker))

	// the annulment never arrived; never auto-resent, the user must decide
	assert.Equal(t, StateConfirmedWarning, tr.State)
	require.NoError(t, Guard(ActionRequestCancel, tr.State))
}

func TestTimeWindowsSplitOnGaps(t *testing.T) {
	at := func(minute int) *time.Time {
		ts := time.Date(2026, 3, 14, 10, minute, 0, 0, time.UTC)
		return &ts
	}
	trs := []*Transaction{
		{SendTime: at(0)},
		{SendTime: at(4)},
		{SendTime: at(7)},  // 3 min after previous: same window
		{SendTime: at(20)}, // 13 min gap: new window
		{SendTime: nil},    // never sent, skipped
	}

	windows := timeWindows(trs)
	require.Len(t, windows, 2)

	assert.Equal(t, *at(0), windows[0].from)
	assert.Equal(t, at(7).Add(windowPadding), windows[0].to)
	assert.Len(t, windows[0].trs, 3)

	assert.Equal(t, *at(20), windows[1].from)
	assert.Equal(t, at(20).Add(windowPadding), windows[1].to)
	assert.Len(t, windows[1].trs, 1)
}

func TestChunkRespectsBatchCap(t *testing.T) {
	trs := make([]*Transaction, 250)
	for i := range trs {
		trs[i] = &Transaction{}
	}
	batches := chunk(trs)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)
}

func TestGroupByCredentialsIsStable(t *testing.T) {
	a, b := id.New(), id.New()
	trs := []*Transaction{
		{CredentialsID: a},
		{CredentialsID: b},
		{CredentialsID: a},
	}
	groups := groupByCredentials(trs)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Same(t, trs[0], groups[0][0])
	assert.Same(t, trs[2], groups[0][1])
	assert.Same(t, trs[1], groups[1][0])
}
