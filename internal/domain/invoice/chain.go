package invoice

import (
	"context"
	"sort"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
)

// Chain is the explicit graph of one invoice chain: the base invoice plus
// all its modification invoices, threaded via ReversedEntryID backlinks.
// Built once per query from the repository; traversals after that are pure
// map lookups.
type Chain struct {
	Base *Invoice

	// Modifications are the sequenced and not-yet-sequenced modification
	// invoices, sorted by chain index (unsequenced last, by creation time).
	Modifications []*Invoice

	byID       map[id.ID]*Invoice
	successors map[id.ID][]id.ID
}

// chainWalkLimit bounds traversal against corrupted circular references.
const chainWalkLimit = 1000

// BuildChain resolves the full chain containing inv: walks the backlinks to
// the base, then enumerates all descendants breadth-first.
func BuildChain(ctx context.Context, repo Repository, inv *Invoice) (*Chain, error) {
	base := inv
	for steps := 0; base.IsModification(); steps++ {
		if steps > chainWalkLimit {
			return nil, apperror.NewInternal(nil).
				WithDetail("reason", "invoice chain backlink cycle").
				WithDetail("invoice_id", inv.ID.String())
		}
		pred, err := repo.GetByID(ctx, *base.ReversedEntryID)
		if err != nil {
			return nil, err
		}
		base = pred
	}

	chain := &Chain{
		Base:       base,
		byID:       map[id.ID]*Invoice{base.ID: base},
		successors: map[id.ID][]id.ID{},
	}
	if base.ID == inv.ID {
		chain.Base = inv
		chain.byID[inv.ID] = inv
	}

	queue := []*Invoice{chain.Base}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		succs, err := repo.ListSuccessors(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		for _, succ := range succs {
			if _, seen := chain.byID[succ.ID]; seen {
				continue
			}
			// The invoice being sequenced may not be persisted with its
			// final state yet; prefer the in-memory instance.
			if succ.ID == inv.ID {
				succ = inv
			}
			chain.byID[succ.ID] = succ
			chain.successors[current.ID] = append(chain.successors[current.ID], succ.ID)
			chain.Modifications = append(chain.Modifications, succ)
			queue = append(queue, succ)
			if len(chain.byID) > chainWalkLimit {
				return nil, apperror.NewInternal(nil).
					WithDetail("reason", "invoice chain too large").
					WithDetail("invoice_id", inv.ID.String())
			}
		}
	}

	sort.SliceStable(chain.Modifications, func(a, b int) bool {
		ma, mb := chain.Modifications[a], chain.Modifications[b]
		switch {
		case ma.IsSequenced() && mb.IsSequenced():
			return *ma.ChainIndex < *mb.ChainIndex
		case ma.IsSequenced():
			return true
		case mb.IsSequenced():
			return false
		default:
			return ma.CreatedAt.Before(mb.CreatedAt)
		}
	})

	return chain, nil
}

// Get returns a chain member by id.
func (c *Chain) Get(invoiceID id.ID) (*Invoice, bool) {
	inv, ok := c.byID[invoiceID]
	return inv, ok
}

// Members returns the base plus all modifications.
func (c *Chain) Members() []*Invoice {
	out := make([]*Invoice, 0, 1+len(c.Modifications))
	out = append(out, c.Base)
	out = append(out, c.Modifications...)
	return out
}

// LastSequenced returns the chain member holding the highest chain index:
// the last sequenced modification, or the base when none exists. Its highest
// line number is where the next invoice's numbering continues.
func (c *Chain) LastSequenced(exclude id.ID) *Invoice {
	last := c.Base
	lastIndex := 0
	for _, m := range c.Modifications {
		if m.ID == exclude || !m.IsSequenced() {
			continue
		}
		if *m.ChainIndex > lastIndex {
			lastIndex = *m.ChainIndex
			last = m
		}
	}
	return last
}

// ResidualGross returns the sum of gross amounts over the chain members
// plus the candidate invoice. A zero residual means the candidate fully
// settles the chain, which classifies it as a STORNO operation.
func (c *Chain) ResidualGross(candidate *Invoice) types.Money {
	sum := c.Base.GrossAmount
	for _, m := range c.Modifications {
		if m.ID == candidate.ID {
			continue
		}
		sum = sum.Add(m.GrossAmount)
	}
	return sum.Add(candidate.GrossAmount)
}
