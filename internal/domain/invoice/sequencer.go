package invoice

import (
	"context"

	"navgate/internal/core/id"
	"navgate/internal/core/tx"
	"navgate/pkg/logger"
)

// InvoicesTable is the row-lock target of the sequencer.
const InvoicesTable = "invoices"

// Sequencer assigns chain_index and the chain-global line numbers, exactly
// once per invoice, safely under concurrent posting of sibling invoices.
//
// Serialization works through the base invoice's row: before reading or
// advancing the chain counter the sequencer takes an exclusive lock on the
// base row, so of two racing siblings exactly one observes a lock conflict
// and must retry its whole posting transaction.
type Sequencer struct {
	repo Repository
	txm  tx.LockingManager
}

// NewSequencer creates a chain sequencer.
func NewSequencer(repo Repository, txm tx.LockingManager) *Sequencer {
	return &Sequencer{repo: repo, txm: txm}
}

// Sequence stamps chain_index and line numbers on inv.
//
// Idempotent: an invoice whose chain index is already assigned is left
// untouched, which makes the surrounding posting transaction replay-safe.
// Returns a CodeLockConflict error when a sibling holds the base row.
func (s *Sequencer) Sequence(ctx context.Context, inv *Invoice) error {
	if inv.IsSequenced() {
		return nil
	}

	if !inv.IsModification() {
		// Base invoice: the sentinel index 0 marks the chain root and
		// doubles as the chain length counter advanced under lock below.
		zero := 0
		inv.ChainIndex = &zero
		assignLineNumbers(inv, 1)
		return s.repo.UpdateChainFields(ctx, inv)
	}

	chain, err := BuildChain(ctx, s.repo, inv)
	if err != nil {
		return err
	}

	return tx.WithLock(ctx, s.txm, InvoicesTable, []id.ID{chain.Base.ID}, func(ctx context.Context) error {
		// Re-read the base under the lock: a sibling sequenced between
		// chain construction and lock acquisition advanced the counter.
		base, err := s.repo.GetByID(ctx, chain.Base.ID)
		if err != nil {
			return err
		}

		nextIndex := 1
		if base.ChainIndex != nil {
			nextIndex = *base.ChainIndex + 1
		}

		chain, err = BuildChain(ctx, s.repo, inv)
		if err != nil {
			return err
		}
		for _, m := range chain.Modifications {
			if m.ID != inv.ID && m.IsSequenced() && *m.ChainIndex >= nextIndex {
				nextIndex = *m.ChainIndex + 1
			}
		}

		inv.ChainIndex = &nextIndex
		assignLineNumbers(inv, chain.LastSequenced(inv.ID).MaxLineNumber()+1)

		// Advance the counter on the base; the write conflicts with any
		// concurrent sibling still holding an older counter value.
		base.ChainIndex = &nextIndex
		if err := s.repo.UpdateChainFields(ctx, base); err != nil {
			return err
		}
		if err := s.repo.UpdateChainFields(ctx, inv); err != nil {
			return err
		}

		logger.Info(ctx, "invoice chain sequenced",
			"invoice", inv.Number,
			"base", base.Number,
			"chain_index", nextIndex,
		)
		return nil
	})
}

// assignLineNumbers numbers the invoice's lines consecutively starting at
// next: product lines first in display order, then the rounding line.
func assignLineNumbers(inv *Invoice, next int) {
	for idx := range inv.Lines {
		if inv.Lines[idx].Kind == LineKindProduct {
			inv.Lines[idx].LineNumber = next
			next++
		}
	}
	for idx := range inv.Lines {
		if inv.Lines[idx].Kind == LineKindRounding {
			inv.Lines[idx].LineNumber = next
			next++
		}
	}
}
