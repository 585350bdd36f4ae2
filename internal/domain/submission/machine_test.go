package submission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/nav"
)

func TestUploadHappyPath(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00001")

	trs, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	require.Len(t, trs, 1)

	tr := trs[0]
	assert.Equal(t, StateSent, tr.State)
	assert.Equal(t, "TXC001", tr.TransactionCode)
	assert.Equal(t, 1, tr.BatchIndex)
	assert.Equal(t, nav.OperationCreate, tr.Operation)
	require.NotNil(t, tr.SendTime)
	assert.Equal(t, h.now, *tr.SendTime)
	assert.Contains(t, string(tr.Payload), inv.Number)

	// exactly one remote batch with one operation
	require.Len(t, h.client.sent, 1)
	require.Len(t, h.client.sent[0], 1)
	assert.Equal(t, 1, h.client.sent[0][0].Index)

	// rows were locked before the remote call
	require.Len(t, h.txm.locked, 1)
	assert.Equal(t, []id.ID{tr.ID}, h.txm.locked[0])

	// audit trail records the transition
	trail, err := h.history.ListByInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, string(StateToSend), trail[0].FromState)
	assert.Equal(t, string(StateSent), trail[0].ToState)
	assert.Equal(t, "alice", trail[0].Actor)
}

func TestUploadGroupsByCredentialsAndChunks(t *testing.T) {
	h := newHarness(t)

	first := h.addInvoice(t, "INV/2026/00010")
	// second company, second credential set
	second := h.addInvoice(t, "INV/2026/00011")
	// third invoice shares the first company
	third := h.addInvoiceFor(t, first.CompanyID, "INV/2026/00012")

	trs, err := h.machine.Upload(context.Background(), []id.ID{first.ID, second.ID, third.ID}, "alice")
	require.NoError(t, err)
	require.Len(t, trs, 3)

	// two batches: {first, third} under one credential set, {second} under the other
	require.Len(t, h.client.sent, 2)
	assert.Len(t, h.client.sent[0], 2)
	assert.Len(t, h.client.sent[1], 1)

	// batch indexes are 1-based per batch
	assert.Equal(t, 1, h.client.sent[0][0].Index)
	assert.Equal(t, 2, h.client.sent[0][1].Index)
	assert.Equal(t, 1, h.client.sent[1][0].Index)
}

func TestUploadRejectsUnpostedInvoice(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00002")
	inv.MarkUnposted()

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	assert.Empty(t, h.client.sent)
}

func TestUploadEnforcesSingleActiveTransaction(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00003")

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)

	// the transaction is in sent now; a second upload must refuse
	_, err = h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
	require.Len(t, h.client.sent, 1)
}

func TestUploadReusesResubmittableTransaction(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00004")

	h.client.tokenErr = apperror.NewRemote("invalid security user")
	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)

	tr := h.activeTransaction(t, inv.ID)
	assert.Equal(t, StateTokenError, tr.State)
	assert.Equal(t, SeverityBlocking, tr.Outcome.Severity)

	// retry after the credentials were fixed: same transaction record
	h.client.tokenErr = nil
	trs, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, tr.ID, trs[0].ID)
	assert.Equal(t, StateSent, trs[0].State)
}

func TestUploadRemoteTimeoutParksForRecovery(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00005")

	h.client.manageErr = apperror.NewRemoteTimeout("manageInvoice")
	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)

	tr := h.activeTransaction(t, inv.ID)
	assert.Equal(t, StateSendTimeout, tr.State)
	// send time and payload were recorded: recovery depends on both
	require.NotNil(t, tr.SendTime)
	assert.NotEmpty(t, tr.Payload)
	// no transaction code: the authority never acknowledged the batch
	assert.Empty(t, tr.TransactionCode)
}

func TestUploadDefinitiveRemoteErrorReleasesInvoice(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00006")

	h.client.manageErr = apperror.NewRemote("invoice schema violation")
	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)

	tr, err := h.transactions.GetByID(context.Background(), h.transactions.order[0])
	require.NoError(t, err)
	assert.Equal(t, StateSendError, tr.State)
	assert.False(t, tr.IsActive())

	// the invoice can open a fresh transaction
	h.client.manageErr = nil
	trs, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, tr.ID, trs[0].ID)
	assert.Equal(t, StateSent, trs[0].State)
}

func TestUploadLockConflictAborts(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00007")
	h.txm.conflict = true

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsLockConflict(err))
	assert.Empty(t, h.client.sent)
}

func TestAbortBeforeSend(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00008")

	tr := NewTransaction(inv.ID, h.resolver.active[inv.CompanyID].ID)
	require.NoError(t, h.transactions.Create(context.Background(), tr))

	require.NoError(t, h.machine.Abort(context.Background(), inv.ID, "alice"))
	assert.Equal(t, StateUnsent, tr.State)
	assert.False(t, tr.IsActive())
}

func TestAbortGuardRejectsSentTransaction(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00009")

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)

	err = h.machine.Abort(context.Background(), inv.ID, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsStateGuard(err))
}

func TestRequestCancelSubmitsAnnulment(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00020")

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	tr := h.activeTransaction(t, inv.ID)
	h.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))
	require.Equal(t, StateConfirmed, tr.State)

	err = h.machine.RequestCancel(context.Background(), []CancelRequest{{
		InvoiceID: inv.ID,
		Code:      nav.AnnulmentErraticData,
		Reason:    "wrong buyer",
	}}, "alice")
	require.NoError(t, err)

	assert.Equal(t, StateCancelSent, tr.State)
	assert.True(t, tr.Annulment)
	assert.Equal(t, "TXA001", tr.TransactionCode)

	require.Len(t, h.client.annulled, 1)
	op := h.client.annulled[0][0]
	assert.Equal(t, inv.Number, op.Reference)
	assert.Equal(t, nav.AnnulmentErraticData, op.Code)
	assert.Equal(t, "wrong buyer", op.Reason)
}

func TestRequestCancelGuardRejectsInFlight(t *testing.T) {
	h := newHarness(t)
	inv := h.addInvoice(t, "INV/2026/00021")

	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)

	err = h.machine.RequestCancel(context.Background(), []CancelRequest{{
		InvoiceID: inv.ID,
		Code:      nav.AnnulmentErraticData,
		Reason:    "too early",
	}}, "alice")
	require.Error(t, err)
	assert.True(t, apperror.IsStateGuard(err))
	assert.Empty(t, h.client.annulled)
}
