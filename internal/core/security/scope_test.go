package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "navgate/internal/core/context"
)

func TestNewAccessScopeParsesGrants(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:      "u-1",
		CompanyIDs:  []string{"c-1"},
		Permissions: []string{"invoice:read", "invoice:finalize", "malformed"},
	})

	scope := NewAccessScope(ctx)
	assert.Equal(t, "u-1", scope.UserID)
	assert.True(t, scope.HasPermission("invoice", "read"))
	assert.True(t, scope.HasPermission("invoice", "finalize"))
	assert.False(t, scope.HasPermission("invoice", "delete"))
	assert.True(t, scope.CanAccessCompany("c-1"))
	assert.False(t, scope.CanAccessCompany("c-2"))
}

func TestGetScopeReturnsStoredScope(t *testing.T) {
	stored := &AccessScope{UserID: "u-7"}
	ctx := WithScope(context.Background(), stored)

	require.Same(t, stored, GetScope(ctx))
}

func TestGetScopeFallsBackToUserContext(t *testing.T) {
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-9"})

	scope := GetScope(ctx)
	require.NotNil(t, scope)
	assert.Equal(t, "u-9", scope.UserID)
}

func TestAdminBypassesCompanyAndPermissionChecks(t *testing.T) {
	scope := &AccessScope{IsAdmin: true}
	assert.True(t, scope.CanAccessCompany("anything"))
	assert.True(t, scope.HasPermission("invoice", "delete"))
	assert.NoError(t, scope.RequirePermission("invoice", "delete"))
}
