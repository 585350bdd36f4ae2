package submission

import (
	"context"
	"strconv"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/tx"
	"navgate/internal/domain/invoice"
	"navgate/internal/nav"
	"navgate/pkg/logger"
)

// waitingStates are the states in which a transaction still expects a
// processing verdict from the authority.
var waitingStates = []State{StateSent, StateCancelSent, StateCancelPending, StateQueryError}

// QueryStatus polls the authority for the processing verdict of the given
// transactions. Since the authority reports a whole batch per transaction
// code, the poll widens to every waiting sibling sharing the same
// (credentials, code) pair: one remote query settles them all.
func (m *Machine) QueryStatus(ctx context.Context, trIDs []id.ID, actor string) error {
	groups, err := m.collectCodeGroups(ctx, trIDs)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}

	var all []*Transaction
	for _, g := range groups {
		all = append(all, g.trs...)
	}

	return tx.WithLock(ctx, m.txm, TransactionsTable, transactionIDs(all), func(ctx context.Context) error {
		for _, g := range groups {
			creds, err := m.creds.ResolveByID(ctx, g.trs[0].CredentialsID)
			if err != nil {
				return err
			}
			if err := m.queryCodeGroup(ctx, creds, g, actor); err != nil {
				return err
			}
		}
		return nil
	})
}

// codeGroup is the set of waiting transactions sharing one remote
// transaction code under one credential set.
type codeGroup struct {
	credentialsID id.ID
	code          string
	trs           []*Transaction
}

func (m *Machine) collectCodeGroups(ctx context.Context, trIDs []id.ID) ([]codeGroup, error) {
	type key struct {
		credentialsID id.ID
		code          string
	}
	seen := map[key]bool{}
	var groups []codeGroup

	for _, trID := range trIDs {
		tr, err := m.transactions.GetByID(ctx, trID)
		if err != nil {
			return nil, err
		}
		if err := Guard(ActionQueryStatus, tr.State); err != nil {
			return nil, err
		}

		k := key{tr.CredentialsID, tr.TransactionCode}
		if seen[k] {
			continue
		}
		seen[k] = true

		siblings, err := m.transactions.ListByTransactionCode(ctx, tr.CredentialsID, tr.TransactionCode, waitingStates...)
		if err != nil {
			return nil, err
		}
		groups = append(groups, codeGroup{
			credentialsID: tr.CredentialsID,
			code:          tr.TransactionCode,
			trs:           siblings,
		})
	}
	return groups, nil
}

// queryCodeGroup performs one remote status query and applies the verdict
// to every transaction of the group, matched by batch index.
func (m *Machine) queryCodeGroup(ctx context.Context, creds nav.Credentials, g codeGroup, actor string) error {
	status, err := m.client.QueryTransactionStatus(ctx, creds, g.code, false)
	if err != nil {
		return m.applyAll(ctx, g.trs, ActionQueryStatus, StateQueryError,
			BlockingOutcome("Status query failed", errText(err)), actor)
	}

	byIndex := make(map[string]nav.ProcessingResult, len(status.Results))
	for _, res := range status.Results {
		byIndex[res.Index] = res
	}

	matched := map[string]bool{}
	for _, tr := range g.trs {
		idx := strconv.Itoa(tr.BatchIndex)
		res, ok := byIndex[idx]
		if !ok {
			logger.Error(ctx, "no remote result for local batch index",
				"transaction_code", g.code,
				"batch_index", idx,
			)
			continue
		}
		matched[idx] = true
		if err := m.applyVerdict(ctx, tr, ActionQueryStatus, res, status.AnnulmentStatus, actor); err != nil {
			return err
		}
	}

	for idx := range byIndex {
		if !matched[idx] {
			logUnmatched(ctx, g.code, idx)
		}
	}
	return nil
}

// applyVerdict maps one remote processing result onto the transaction's
// state machine. action is query_status for the regular poll and
// recover_timeout when the verdict was obtained through recovery.
func (m *Machine) applyVerdict(ctx context.Context, tr *Transaction, action Action, res nav.ProcessingResult, annulmentStatus string, actor string) error {
	switch res.InvoiceStatus {
	case nav.StatusReceived, nav.StatusProcessing, nav.StatusSaved:
		return m.applyPending(ctx, tr, action, actor)

	case nav.StatusDone:
		if tr.Annulment {
			return m.applyAnnulmentVerdict(ctx, tr, action, annulmentStatus, actor)
		}
		if msgs := res.Messages(); len(msgs) > 0 {
			return m.apply(ctx, tr, action, StateConfirmedWarning,
				WarningOutcome("Confirmed with remarks from the authority", msgs...), actor)
		}
		return m.apply(ctx, tr, action, StateConfirmed,
			InfoOutcome("Confirmed by the authority"), actor)

	case nav.StatusAborted:
		if tr.Annulment {
			return m.apply(ctx, tr, action, StateConfirmedWarning,
				BlockingOutcome("Annulment rejected by the authority", res.Messages()...), actor)
		}
		return m.apply(ctx, tr, action, StateRejected,
			BlockingOutcome("Rejected by the authority", res.Messages()...), actor)

	default:
		return m.apply(ctx, tr, action, StateQueryError,
			BlockingOutcome("Unexpected processing status", res.InvoiceStatus), actor)
	}
}

// applyPending keeps a still-processing transaction in its waiting state.
// Recovery reaching here means the batch did arrive: the code is known now,
// so a timed-out transaction moves (back) to its in-flight state.
func (m *Machine) applyPending(ctx context.Context, tr *Transaction, action Action, actor string) error {
	state := StateSent
	if tr.Annulment {
		state = StateCancelSent
		if tr.State == StateCancelPending {
			state = StateCancelPending
		}
	}
	if tr.State == state {
		// No transition, just refresh the outcome.
		tr.Outcome = InfoOutcome("Still processing at the authority")
		tr.Touch()
		return m.transactions.Update(ctx, tr)
	}
	return m.apply(ctx, tr, action, state,
		InfoOutcome("Still processing at the authority"), actor)
}

// applyAnnulmentVerdict maps the batch-level annulment verdict of a DONE
// annulment transaction.
func (m *Machine) applyAnnulmentVerdict(ctx context.Context, tr *Transaction, action Action, annulmentStatus string, actor string) error {
	switch annulmentStatus {
	case nav.AnnulmentVerificationDone:
		if err := m.apply(ctx, tr, action, StateCancelled,
			InfoOutcome("Annulment verified; invoice cancelled"), actor); err != nil {
			return err
		}
		return m.propagateCancellation(ctx, tr, action, actor)

	case nav.AnnulmentVerificationPending:
		return m.apply(ctx, tr, action, StateCancelPending,
			InfoOutcome("Annulment awaiting manual verification"), actor)

	case nav.AnnulmentNotVerifiable:
		return m.apply(ctx, tr, action, StateConfirmedWarning,
			BlockingOutcome("Annulment not verifiable"), actor)

	case nav.AnnulmentVerificationRejected:
		return m.apply(ctx, tr, action, StateConfirmedWarning,
			BlockingOutcome("Annulment verification rejected"), actor)

	default:
		return m.apply(ctx, tr, action, StateQueryError,
			BlockingOutcome("Unexpected annulment status", annulmentStatus), actor)
	}
}

// propagateCancellation marks the annulled invoice cancelled and cascades
// the cancellation to its chain descendants. Annulling a chain member
// voids everything built on top of it, so confirmed descendants move to
// cancelled as well.
func (m *Machine) propagateCancellation(ctx context.Context, tr *Transaction, action Action, actor string) error {
	inv, err := m.invoices.GetByID(ctx, tr.InvoiceID)
	if err != nil {
		return err
	}
	inv.Cancelled = true
	inv.Touch()
	if err := m.invoices.Update(ctx, inv); err != nil {
		return err
	}

	chain, err := invoice.BuildChain(ctx, m.invoices, inv)
	if err != nil {
		return err
	}
	for _, member := range descendantsOf(chain, inv.ID) {
		if member.Cancelled {
			continue
		}
		memberTr, err := m.transactions.FindActive(ctx, member.ID)
		if err != nil {
			if apperror.IsNotFound(err) {
				continue
			}
			return err
		}
		if !memberTr.State.IsBlocking() || memberTr.State.IsCancelFlow() {
			// Still in flight or in its own cancellation sub-flow; the
			// cascade only settles already-confirmed descendants.
			continue
		}
		member.Cancelled = true
		member.Touch()
		if err := m.invoices.Update(ctx, member); err != nil {
			return err
		}
		if err := m.apply(ctx, memberTr, action, StateCancelled,
			InfoOutcome("Cancelled with annulled chain predecessor"), actor); err != nil {
			return err
		}
	}
	return nil
}

// descendantsOf returns the chain members sequenced after the given one.
// Annulment verdicts arrive for one member but void the chain suffix.
func descendantsOf(chain *invoice.Chain, invoiceID id.ID) []*invoice.Invoice {
	if chain.Base.ID == invoiceID {
		return chain.Modifications
	}
	var out []*invoice.Invoice
	passed := false
	for _, m := range chain.Modifications {
		if m.ID == invoiceID {
			passed = true
			continue
		}
		if passed {
			out = append(out, m)
		}
	}
	return out
}
