package submission

import (
	"bytes"
	"context"

	"navgate/internal/core/id"
	"navgate/internal/core/tx"
	"navgate/internal/nav"
	"navgate/pkg/logger"
)

// RecoverTimeout reconciles timed-out transactions against the authority's
// transaction list. A timeout means the batch's fate is unknown: it may or
// may not have been received, so resending blindly would risk duplicate
// submissions. Instead, the pass lists everything our technical user
// submitted around the recorded send times and matches our records against
// it; only a transaction proven absent goes back to to_send.
//
// Transactions younger than the authority's processing SLA are skipped:
// they may still show up.
func (m *Machine) RecoverTimeout(ctx context.Context, actor string) error {
	timedOut, err := m.transactions.ListByStates(ctx, StateSendTimeout, StateCancelTimeout)
	if err != nil {
		return err
	}

	cutoff := m.now().Add(-recoveryThreshold)
	eligible := make([]*Transaction, 0, len(timedOut))
	for _, tr := range timedOut {
		if tr.SendTime != nil && !tr.SendTime.After(cutoff) {
			eligible = append(eligible, tr)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	return tx.WithLock(ctx, m.txm, TransactionsTable, transactionIDs(eligible), func(ctx context.Context) error {
		for _, group := range groupByCredentials(eligible) {
			creds, err := m.creds.ResolveByID(ctx, group[0].CredentialsID)
			if err != nil {
				return err
			}
			for _, window := range timeWindows(group) {
				if err := m.recoverWindow(ctx, creds, window, actor); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// recoverWindow reconciles one bounded date range: pages through the
// transaction list, re-queries each candidate with its original payloads
// and matches our records byte for byte.
func (m *Machine) recoverWindow(ctx context.Context, creds nav.Credentials, window recoveryWindow, actor string) error {
	numbers, err := m.annulmentReferences(ctx, window.trs)
	if err != nil {
		return err
	}

	matched := map[id.ID]bool{}
	for page, pages := 1, 1; page <= pages; page++ {
		list, err := m.client.QueryTransactionList(ctx, creds, window.from, window.to, page)
		if err != nil {
			return err
		}
		pages = list.AvailablePages

		for _, item := range list.Transactions {
			if item.Source != nav.SourceMachine || item.Username != creds.Username {
				continue
			}
			if err := m.matchListedTransaction(ctx, creds, item, window.trs, matched, numbers, actor); err != nil {
				return err
			}
		}
	}

	// Absence from the full list is a definitive verdict: the batch never
	// arrived.
	for _, tr := range window.trs {
		if matched[tr.ID] {
			continue
		}
		if tr.State == StateCancelTimeout {
			if err := m.apply(ctx, tr, ActionRecoverTimeout, StateConfirmedWarning,
				WarningOutcome("Annulment was not received by the authority; request it again"), actor); err != nil {
				return err
			}
			continue
		}
		if err := m.apply(ctx, tr, ActionRecoverTimeout, StateToSend,
			InfoOutcome("Submission was not received by the authority; queued for resend"), actor); err != nil {
			return err
		}
	}
	return nil
}

// matchListedTransaction re-queries one listed remote transaction with its
// original payloads and settles every local record it accounts for.
func (m *Machine) matchListedTransaction(ctx context.Context, creds nav.Credentials, item nav.TransactionListItem, trs []*Transaction, matched map[id.ID]bool, numbers map[id.ID]string, actor string) error {
	status, err := m.client.QueryTransactionStatus(ctx, creds, item.TransactionCode, true)
	if err != nil {
		return err
	}

	for _, res := range status.Results {
		for _, tr := range trs {
			if matched[tr.ID] || !m.matches(tr, item, res, numbers) {
				continue
			}
			matched[tr.ID] = true
			tr.TransactionCode = item.TransactionCode
			logger.Info(ctx, "timed-out transaction recovered",
				"transaction_id", tr.ID.String(),
				"transaction_code", item.TransactionCode,
				"batch_index", res.Index,
			)
			if err := m.applyVerdict(ctx, tr, ActionRecoverTimeout, res, status.AnnulmentStatus, actor); err != nil {
				return err
			}
		}
	}
	return nil
}

// matches decides whether a remote result belongs to a local record. An
// upload matches by the exact submitted bytes; an annulment matches when
// the annulment record references the local invoice's number.
func (m *Machine) matches(tr *Transaction, item nav.TransactionListItem, res nav.ProcessingResult, numbers map[id.ID]string) bool {
	if len(res.OriginalPayload) == 0 {
		return false
	}
	if tr.State == StateCancelTimeout {
		number := numbers[tr.ID]
		return item.Annulment && number != "" && bytes.Contains(res.OriginalPayload, []byte(number))
	}
	return !item.Annulment && bytes.Equal(res.OriginalPayload, tr.Payload)
}

// annulmentReferences preloads the invoice numbers timed-out annulments
// were submitted under.
func (m *Machine) annulmentReferences(ctx context.Context, trs []*Transaction) (map[id.ID]string, error) {
	out := map[id.ID]string{}
	for _, tr := range trs {
		if tr.State != StateCancelTimeout {
			continue
		}
		inv, err := m.invoices.GetByID(ctx, tr.InvoiceID)
		if err != nil {
			return nil, err
		}
		out[tr.ID] = inv.Number
	}
	return out, nil
}
