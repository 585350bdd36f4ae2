package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/id"
	"navgate/internal/core/numerator"
	"navgate/internal/core/types"
)

func TestCreateAssignsNumberFromSeries(t *testing.T) {
	repo := newFakeRepo()
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(_ context.Context, cfg numerator.Config, _ *numerator.Options, _ time.Time) (string, error) {
			assert.Equal(t, "INV", cfg.Prefix)
			assert.NotEmpty(t, cfg.Scope, "series must be scoped per company")
			return "INV-2026-00007", nil
		},
	}
	svc := NewService(repo, &fakeTxm{}, gen)

	inv := NewInvoice(id.New(), id.New(), id.New())
	inv.AddLine(nil, "item", types.MustMoney("1"), types.MustMoney("100"), types.MustMoney("27"), "VAT27")

	require.NoError(t, svc.Create(context.Background(), inv))
	assert.Equal(t, "INV-2026-00007", inv.Number)
}

func TestCreateKeepsSuppliedNumber(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeTxm{}, &numerator.MockGenerator{})

	inv := NewInvoice(id.New(), id.New(), id.New())
	inv.Number = "INV/2026/00042"
	inv.AddLine(nil, "item", types.MustMoney("1"), types.MustMoney("100"), types.MustMoney("27"), "VAT27")

	require.NoError(t, svc.Create(context.Background(), inv))
	assert.Equal(t, "INV/2026/00042", inv.Number)
}

func TestFinalizeSequencesAndPosts(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeTxm{}, &numerator.MockGenerator{})
	inv := makeInvoice(t, repo, "INV/2026/00001", nil, 1)

	out, err := svc.Finalize(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.True(t, out.Posted)
	require.NotNil(t, out.ChainIndex)
	assert.Equal(t, 0, *out.ChainIndex)

	// retrying is a no-op
	again, err := svc.Finalize(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, out.ChainIndex, again.ChainIndex)
}
