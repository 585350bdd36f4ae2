package invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
	"navgate/internal/domain"
)

// fakeRepo is an in-memory Repository for chain tests.
type fakeRepo struct {
	invoices map[id.ID]*Invoice
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{invoices: map[id.ID]*Invoice{}}
}

func (r *fakeRepo) Create(_ context.Context, inv *Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return inv, nil
}

func (r *fakeRepo) GetByNumber(_ context.Context, number string) (*Invoice, error) {
	for _, inv := range r.invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", number)
}

func (r *fakeRepo) Update(_ context.Context, inv *Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, invoiceID id.ID) error {
	delete(r.invoices, invoiceID)
	return nil
}

func (r *fakeRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*Invoice], error) {
	return domain.ListResult[*Invoice]{}, nil
}

func (r *fakeRepo) GetLines(_ context.Context, invoiceID id.ID) ([]Line, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", invoiceID.String())
	}
	return inv.Lines, nil
}

func (r *fakeRepo) SaveLines(_ context.Context, invoiceID id.ID, lines []Line) error {
	r.invoices[invoiceID].Lines = lines
	return nil
}

func (r *fakeRepo) ListSuccessors(_ context.Context, invoiceID id.ID) ([]*Invoice, error) {
	var out []*Invoice
	for _, inv := range r.invoices {
		if inv.ReversedEntryID != nil && *inv.ReversedEntryID == invoiceID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateChainFields(_ context.Context, inv *Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

// fakeTxm satisfies tx.LockingManager without a database. When conflict is
// set, every lock attempt fails the way a held FOR UPDATE NOWAIT row does.
type fakeTxm struct {
	conflict bool
	locked   []id.ID
}

func (f *fakeTxm) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeTxm) TryLockRows(_ context.Context, _ string, ids []id.ID) error {
	if f.conflict {
		return apperror.NewLockConflict("row is locked by another session")
	}
	f.locked = append(f.locked, ids...)
	return nil
}

func makeInvoice(t *testing.T, repo *fakeRepo, number string, predecessor *Invoice, lines int) *Invoice {
	t.Helper()
	inv := NewInvoice(id.New(), id.New(), id.New())
	inv.Number = number
	if predecessor != nil {
		inv.ReversedEntryID = &predecessor.ID
		inv.PartnerID = predecessor.PartnerID
		inv.CompanyID = predecessor.CompanyID
	}
	for n := 0; n < lines; n++ {
		inv.AddLine(nil, "item", types.MustMoney("1"), types.MustMoney("100"), types.MustMoney("27"), "VAT27")
	}
	require.NoError(t, repo.Create(context.Background(), inv))
	return inv
}

func lineNumbers(inv *Invoice) []int {
	out := make([]int, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		out = append(out, l.LineNumber)
	}
	return out
}

func TestSequenceBaseInvoice(t *testing.T) {
	repo := newFakeRepo()
	seq := NewSequencer(repo, &fakeTxm{})

	base := makeInvoice(t, repo, "INV-1", nil, 2)
	base.SetRounding(types.MustMoney("1"))

	require.NoError(t, seq.Sequence(context.Background(), base))

	require.NotNil(t, base.ChainIndex)
	assert.Equal(t, 0, *base.ChainIndex)
	assert.Equal(t, []int{1, 2, 3}, lineNumbers(base))
}

func TestSequenceModificationsAreGapless(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	txm := &fakeTxm{}
	seq := NewSequencer(repo, txm)

	base := makeInvoice(t, repo, "INV-1", nil, 3)
	require.NoError(t, seq.Sequence(ctx, base))

	first := makeInvoice(t, repo, "INV-1-M1", base, 2)
	require.NoError(t, seq.Sequence(ctx, first))
	require.NotNil(t, first.ChainIndex)
	assert.Equal(t, 1, *first.ChainIndex)
	assert.Equal(t, []int{4, 5}, lineNumbers(first))

	// Chained off the first modification, not the base: the index and the
	// line numbering are chain-global regardless of the predecessor link.
	second := makeInvoice(t, repo, "INV-1-M2", first, 1)
	require.NoError(t, seq.Sequence(ctx, second))
	require.NotNil(t, second.ChainIndex)
	assert.Equal(t, 2, *second.ChainIndex)
	assert.Equal(t, []int{6}, lineNumbers(second))

	// The base row carries the chain length counter.
	assert.Equal(t, 2, *repo.invoices[base.ID].ChainIndex)

	// Locking targeted the base row both times.
	assert.Equal(t, []id.ID{base.ID, base.ID}, txm.locked)
}

func TestSequenceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	seq := NewSequencer(repo, &fakeTxm{})

	base := makeInvoice(t, repo, "INV-1", nil, 1)
	require.NoError(t, seq.Sequence(ctx, base))
	mod := makeInvoice(t, repo, "INV-1-M1", base, 1)
	require.NoError(t, seq.Sequence(ctx, mod))

	require.NoError(t, seq.Sequence(ctx, mod))
	assert.Equal(t, 1, *mod.ChainIndex)
	assert.Equal(t, []int{2}, lineNumbers(mod))
	assert.Equal(t, 1, *repo.invoices[base.ID].ChainIndex)
}

func TestSequenceLockConflictPropagates(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	txm := &fakeTxm{}
	seq := NewSequencer(repo, txm)

	base := makeInvoice(t, repo, "INV-1", nil, 1)
	require.NoError(t, seq.Sequence(ctx, base))

	txm.conflict = true
	mod := makeInvoice(t, repo, "INV-1-M1", base, 1)
	err := seq.Sequence(ctx, mod)

	require.Error(t, err)
	assert.True(t, apperror.IsLockConflict(err))
	assert.Nil(t, mod.ChainIndex, "a failed attempt must not leave a partial assignment")
}

func TestResidualGrossClassifiesStorno(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	seq := NewSequencer(repo, &fakeTxm{})

	base := makeInvoice(t, repo, "INV-1", nil, 1) // gross 127
	require.NoError(t, seq.Sequence(ctx, base))

	partial := NewInvoice(base.CompanyID, base.PartnerID, base.CurrencyID)
	partial.Number = "INV-1-M1"
	partial.ReversedEntryID = &base.ID
	partial.AddLine(nil, "partial credit", types.MustMoney("-1"), types.MustMoney("27"), types.MustMoney("27"), "VAT27")
	require.NoError(t, repo.Create(ctx, partial))

	chain, err := BuildChain(ctx, repo, partial)
	require.NoError(t, err)
	assert.False(t, chain.ResidualGross(partial).IsZero(), "partial credit leaves a residual")

	// A full reversal of an untouched chain settles it to zero.
	base2 := makeInvoice(t, repo, "INV-2", nil, 1)
	require.NoError(t, seq.Sequence(ctx, base2))

	full := NewInvoice(base2.CompanyID, base2.PartnerID, base2.CurrencyID)
	full.Number = "INV-2-M1"
	full.ReversedEntryID = &base2.ID
	full.AddLine(nil, "full storno", types.MustMoney("-1"), types.MustMoney("100"), types.MustMoney("27"), "VAT27")
	require.NoError(t, repo.Create(ctx, full))

	chain, err = BuildChain(ctx, repo, full)
	require.NoError(t, err)
	assert.True(t, chain.ResidualGross(full).IsZero(), "full reversal settles the chain")
}
