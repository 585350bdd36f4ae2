package submission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/id"
	"navgate/internal/nav"
)

// submit uploads one invoice and returns its transaction in sent.
func submit(t *testing.T, h *harness, number string) (*Transaction, id.ID) {
	t.Helper()
	inv := h.addInvoice(t, number)
	_, err := h.machine.Upload(context.Background(), []id.ID{inv.ID}, "alice")
	require.NoError(t, err)
	tr := h.activeTransaction(t, inv.ID)
	require.Equal(t, StateSent, tr.State)
	return tr, inv.ID
}

func TestQueryStatusConfirms(t *testing.T) {
	h := newHarness(t)
	tr, _ := submit(t, h, "INV/2026/00030")

	h.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	assert.Equal(t, StateConfirmed, tr.State)
	assert.Equal(t, SeverityInfo, tr.Outcome.Severity)
}

func TestQueryStatusConfirmsWithWarnings(t *testing.T) {
	h := newHarness(t)
	tr, _ := submit(t, h, "INV/2026/00031")

	h.client.statuses["TXC001"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{
			Index:         "1",
			InvoiceStatus: nav.StatusDone,
			BusinessMessages: []nav.ValidationMessage{{
				ResultCode: "WARN",
				ErrorCode:  "INCORRECT_VAT_RATE",
				Message:    "VAT rate looks unusual",
			}},
		}},
	}
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	assert.Equal(t, StateConfirmedWarning, tr.State)
	assert.Equal(t, SeverityWarning, tr.Outcome.Severity)
	require.Len(t, tr.Outcome.Errors, 1)
	assert.Contains(t, tr.Outcome.Errors[0], "INCORRECT_VAT_RATE")
}

func TestQueryStatusRejects(t *testing.T) {
	h := newHarness(t)
	tr, invID := submit(t, h, "INV/2026/00032")

	h.client.statuses["TXC001"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{
			Index:         "1",
			InvoiceStatus: nav.StatusAborted,
			TechnicalMessages: []nav.ValidationMessage{{
				ResultCode: "ERROR",
				ErrorCode:  "SCHEMA_VIOLATION",
				Message:    "invalid invoice XML",
			}},
		}},
	}
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	assert.Equal(t, StateRejected, tr.State)
	assert.Equal(t, SeverityBlocking, tr.Outcome.Severity)
	// rejected releases the invoice for a corrected resubmission
	assert.False(t, tr.IsActive())
	_, err := h.transactions.FindActive(context.Background(), invID)
	require.Error(t, err)
}

func TestQueryStatusStillProcessingKeepsWaiting(t *testing.T) {
	h := newHarness(t)
	tr, _ := submit(t, h, "INV/2026/00033")

	h.client.statuses["TXC001"] = &nav.TransactionStatus{
		Results: []nav.ProcessingResult{{Index: "1", InvoiceStatus: nav.StatusProcessing}},
	}
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	assert.Equal(t, StateSent, tr.State)
}

func TestQueryStatusWidensToBatchSiblings(t *testing.T) {
	h := newHarness(t)
	first := h.addInvoice(t, "INV/2026/00034")
	second := h.addInvoiceFor(t, first.CompanyID, "INV/2026/00035")

	_, err := h.machine.Upload(context.Background(), []id.ID{first.ID, second.ID}, "alice")
	require.NoError(t, err)
	firstTr := h.activeTransaction(t, first.ID)
	secondTr := h.activeTransaction(t, second.ID)

	h.client.statuses["TXC001"] = doneStatus("1", "2")

	// polling only the first settles its sibling too, with one remote call
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{firstTr.ID}, "alice"))
	assert.Equal(t, StateConfirmed, firstTr.State)
	assert.Equal(t, StateConfirmed, secondTr.State)
	assert.Len(t, h.client.statusCalls, 1)
}

func TestQueryStatusSkipsUnmatchedIndex(t *testing.T) {
	h := newHarness(t)
	tr, _ := submit(t, h, "INV/2026/00036")

	// verdict references a batch index we never sent; ours is missing
	h.client.statuses["TXC001"] = doneStatus("7")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	// no verdict for our index: the transaction keeps waiting
	assert.Equal(t, StateSent, tr.State)
}

func TestQueryStatusRemoteFailureMarksQueryError(t *testing.T) {
	h := newHarness(t)
	tr, _ := submit(t, h, "INV/2026/00037")

	h.client.statusErr = assertableError("status service down")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))
	assert.Equal(t, StateQueryError, tr.State)

	// query_error is retryable: the next poll may still settle it
	h.client.statusErr = nil
	h.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))
	assert.Equal(t, StateConfirmed, tr.State)
}

func TestAnnulmentVerificationFlow(t *testing.T) {
	h := newHarness(t)
	tr, invID := submit(t, h, "INV/2026/00038")

	h.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	require.NoError(t, h.machine.RequestCancel(context.Background(), []CancelRequest{{
		InvoiceID: invID, Code: nav.AnnulmentErraticData, Reason: "duplicate",
	}}, "alice"))
	require.Equal(t, StateCancelSent, tr.State)

	// processed, awaiting manual verification on the portal
	h.client.statuses["TXA001"] = &nav.TransactionStatus{
		Results:         []nav.ProcessingResult{{Index: "1", InvoiceStatus: nav.StatusDone}},
		AnnulmentStatus: nav.AnnulmentVerificationPending,
	}
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))
	assert.Equal(t, StateCancelPending, tr.State)

	// verified: the invoice is cancelled and its number released
	h.client.statuses["TXA001"].AnnulmentStatus = nav.AnnulmentVerificationDone
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))
	assert.Equal(t, StateCancelled, tr.State)

	inv, err := h.invoices.GetByID(context.Background(), invID)
	require.NoError(t, err)
	assert.True(t, inv.Cancelled)
}

func TestAnnulmentRejectionStaysBlocking(t *testing.T) {
	h := newHarness(t)
	tr, invID := submit(t, h, "INV/2026/00039")

	h.client.statuses["TXC001"] = doneStatus("1")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))
	require.NoError(t, h.machine.RequestCancel(context.Background(), []CancelRequest{{
		InvoiceID: invID, Code: nav.AnnulmentErraticData, Reason: "duplicate",
	}}, "alice"))

	h.client.statuses["TXA001"] = &nav.TransactionStatus{
		Results:         []nav.ProcessingResult{{Index: "1", InvoiceStatus: nav.StatusDone}},
		AnnulmentStatus: nav.AnnulmentVerificationRejected,
	}
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{tr.ID}, "alice"))

	// back to blocking: the number stays reserved, a new annulment is possible
	assert.Equal(t, StateConfirmedWarning, tr.State)
	assert.Equal(t, SeverityBlocking, tr.Outcome.Severity)

	inv, err := h.invoices.GetByID(context.Background(), invID)
	require.NoError(t, err)
	assert.False(t, inv.Cancelled)
}

func TestCancellationPropagatesToChainDescendants(t *testing.T) {
	h := newHarness(t)
	base := h.addInvoice(t, "INV/2026/00040")

	mod := h.addInvoiceFor(t, base.CompanyID, "INV/2026/00041")
	mod.ReversedEntryID = &base.ID
	mod.PartnerID = base.PartnerID
	require.NoError(t, h.invoices.Update(context.Background(), mod))

	// both confirmed
	_, err := h.machine.Upload(context.Background(), []id.ID{base.ID, mod.ID}, "alice")
	require.NoError(t, err)
	baseTr := h.activeTransaction(t, base.ID)
	modTr := h.activeTransaction(t, mod.ID)
	h.client.statuses["TXC001"] = doneStatus("1", "2")
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{baseTr.ID}, "alice"))
	require.Equal(t, StateConfirmed, baseTr.State)
	require.Equal(t, StateConfirmed, modTr.State)

	// annul the base; the verified annulment voids the modification too
	require.NoError(t, h.machine.RequestCancel(context.Background(), []CancelRequest{{
		InvoiceID: base.ID, Code: nav.AnnulmentErraticData, Reason: "wrong partner",
	}}, "alice"))
	h.client.statuses["TXA001"] = &nav.TransactionStatus{
		Results:         []nav.ProcessingResult{{Index: "1", InvoiceStatus: nav.StatusDone}},
		AnnulmentStatus: nav.AnnulmentVerificationDone,
	}
	require.NoError(t, h.machine.QueryStatus(context.Background(), []id.ID{baseTr.ID}, "alice"))

	assert.Equal(t, StateCancelled, baseTr.State)
	assert.Equal(t, StateCancelled, modTr.State)

	for _, invID := range []id.ID{base.ID, mod.ID} {
		inv, err := h.invoices.GetByID(context.Background(), invID)
		require.NoError(t, err)
		assert.True(t, inv.Cancelled)
	}
}

// assertableError is a plain error for fault injection.
type assertableError string

func (e assertableError) Error() string { return string(e) }
