package postgres

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "navgate/internal/core/context"
	"navgate/internal/core/id"
	"navgate/internal/core/security"
)

func TestAuditPrepareFillsActorAndDefaults(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "u-1",
		Email:  "alice@example.com",
	})
	ctx = security.WithScope(ctx, security.NewAccessScope(ctx))

	entry := svc.prepare(ctx, AuditEntry{
		EntityType: "currency",
		EntityID:   id.New(),
		Action:     AuditActionCreate,
		Changes:    []byte(`{"code":"HUF"}`),
	})

	assert.False(t, id.IsNil(entry.ID))
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, "u-1", entry.UserID)
	assert.Equal(t, "alice@example.com", entry.UserEmail)
	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.JSONEq(t, `{"code":"HUF"}`, string(entry.Changes))
	assert.Empty(t, entry.ChangesCompressed)
}

func TestAuditPrepareCompressesLargeSnapshots(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	big := append([]byte(`{"blob":"`), bytes.Repeat([]byte("x"), auditCompressThreshold+1)...)
	big = append(big, `"}`...)

	entry := svc.prepare(context.Background(), AuditEntry{
		EntityType: "invoice",
		EntityID:   id.New(),
		Action:     AuditActionUpdate,
		Changes:    big,
	})

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	require.NotEmpty(t, entry.ChangesCompressed)

	decoded, err := svc.decoder.DecodeAll(entry.ChangesCompressed, nil)
	require.NoError(t, err)
	assert.Equal(t, big, decoded)
}

func TestAuditPrepareKeepsExplicitActor(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "u-ctx",
		Email:  "ctx@example.com",
	})

	entry := svc.prepare(ctx, AuditEntry{
		EntityType: "partner",
		EntityID:   id.New(),
		Action:     AuditActionDelete,
		UserID:     "u-explicit",
		UserEmail:  "explicit@example.com",
	})

	assert.Equal(t, "u-explicit", entry.UserID)
	assert.Equal(t, "explicit@example.com", entry.UserEmail)
}
