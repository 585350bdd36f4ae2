package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
)

type memUsers struct {
	byID      map[id.ID]*User
	roles     map[id.ID][]id.ID
	roleNames map[id.ID]string
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:      make(map[id.ID]*User),
		roles:     make(map[id.ID][]id.ID),
		roleNames: make(map[id.ID]string),
	}
}

func (m *memUsers) Create(_ context.Context, user *User) error {
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, userID id.ID) (*User, error) {
	u, ok := m.byID[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (m *memUsers) Update(_ context.Context, user *User) error {
	cp := *user
	m.byID[user.ID] = &cp
	return nil
}

func (m *memUsers) Delete(_ context.Context, userID id.ID) error {
	delete(m.byID, userID)
	return nil
}

func (m *memUsers) List(_ context.Context, _ UserFilter) ([]User, int, error) {
	return nil, 0, nil
}

func (m *memUsers) LoadRoles(_ context.Context, userID id.ID) ([]Role, error) {
	var roles []Role
	for _, roleID := range m.roles[userID] {
		roles = append(roles, Role{ID: roleID, Code: m.roleNames[roleID]})
	}
	return roles, nil
}

func (m *memUsers) LoadPermissions(_ context.Context, _ id.ID) ([]string, error) {
	return nil, nil
}

func (m *memUsers) LoadCompanies(_ context.Context, _ id.ID) ([]string, error) {
	return nil, nil
}

func (m *memUsers) AssignRole(_ context.Context, userID, roleID id.ID, _ id.ID) error {
	m.roles[userID] = append(m.roles[userID], roleID)
	return nil
}

func (m *memUsers) RevokeRole(_ context.Context, userID, roleID id.ID) error {
	kept := m.roles[userID][:0]
	for _, rid := range m.roles[userID] {
		if rid != roleID {
			kept = append(kept, rid)
		}
	}
	m.roles[userID] = kept
	return nil
}

func (m *memUsers) Exists(_ context.Context, email string) (bool, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type memRoles struct {
	byCode map[string]*Role
}

func (m *memRoles) Create(_ context.Context, role *Role) error {
	m.byCode[role.Code] = role
	return nil
}

func (m *memRoles) GetByID(_ context.Context, roleID id.ID) (*Role, error) {
	for _, r := range m.byCode {
		if r.ID == roleID {
			return r, nil
		}
	}
	return nil, apperror.NewNotFound("role", roleID.String())
}

func (m *memRoles) GetByCode(_ context.Context, code string) (*Role, error) {
	r, ok := m.byCode[code]
	if !ok {
		return nil, apperror.NewNotFound("role", code)
	}
	return r, nil
}

func (m *memRoles) Update(_ context.Context, _ *Role) error  { return nil }
func (m *memRoles) Delete(_ context.Context, _ id.ID) error  { return nil }
func (m *memRoles) List(_ context.Context) ([]Role, error)   { return nil, nil }
func (m *memRoles) LoadPermissions(_ context.Context, _ id.ID) ([]Permission, error) {
	return nil, nil
}
func (m *memRoles) AssignPermission(_ context.Context, _, _ id.ID) error { return nil }
func (m *memRoles) RevokePermission(_ context.Context, _, _ id.ID) error { return nil }

type memPermissions struct{}

func (memPermissions) GetByCode(_ context.Context, code string) (*Permission, error) {
	return nil, apperror.NewNotFound("permission", code)
}
func (memPermissions) List(_ context.Context) ([]Permission, error) { return nil, nil }
func (memPermissions) ListByResource(_ context.Context, _ string) ([]Permission, error) {
	return nil, nil
}

type memTokens struct {
	byHash  map[string]*RefreshToken
	revoked map[id.ID]string
}

func newMemTokens() *memTokens {
	return &memTokens{byHash: make(map[string]*RefreshToken), revoked: make(map[id.ID]string)}
}

func (m *memTokens) SaveRefreshToken(_ context.Context, token *RefreshToken) error {
	m.byHash[token.TokenHash] = token
	return nil
}

func (m *memTokens) GetRefreshToken(_ context.Context, tokenHash string) (*RefreshToken, error) {
	t, ok := m.byHash[tokenHash]
	if !ok {
		return nil, apperror.NewNotFound("refresh_token", tokenHash)
	}
	return t, nil
}

func (m *memTokens) RevokeRefreshToken(_ context.Context, tokenID id.ID, reason string) error {
	m.revoked[tokenID] = reason
	for _, t := range m.byHash {
		if t.ID == tokenID {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (m *memTokens) RevokeAllUserTokens(_ context.Context, userID id.ID, reason string) error {
	for _, t := range m.byHash {
		if t.UserID == userID {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (m *memTokens) CleanupExpiredTokens(_ context.Context) (int, error) { return 0, nil }

type passthroughTxm struct{}

func (passthroughTxm) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type authHarness struct {
	service *Service
	users   *memUsers
	roles   *memRoles
	tokens  *memTokens
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	users := newMemUsers()
	roles := &memRoles{byCode: make(map[string]*Role)}
	tokens := newMemTokens()

	viewer := NewRole("viewer", "Read-only access")
	roles.byCode["viewer"] = viewer
	users.roleNames[viewer.ID] = "viewer"

	cfg := DefaultServiceConfig()
	cfg.MaxLoginAttempts = 3
	cfg.LockDuration = time.Hour

	service := NewService(
		users, roles, memPermissions{}, tokens,
		passthroughTxm{},
		NewJWTService(DefaultJWTConfig("test-secret")),
		cfg,
	)

	return &authHarness{service: service, users: users, roles: roles, tokens: tokens}
}

func TestRegisterAssignsViewerRole(t *testing.T) {
	h := newAuthHarness(t)

	user, err := h.service.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	roles, err := h.users.LoadRoles(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "viewer", roles[0].Code)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	h := newAuthHarness(t)

	_, err := h.service.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = h.service.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "another-pass",
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	h := newAuthHarness(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := NewUser("bob@example.com", string(hash))
	require.NoError(t, h.users.Create(context.Background(), user))

	for i := 0; i < 3; i++ {
		_, _, err := h.service.Login(context.Background(), Credentials{
			Email:    "bob@example.com",
			Password: "wrong",
		})
		require.Error(t, err)
	}

	// The right password no longer helps while the lock holds.
	_, _, err = h.service.Login(context.Background(), Credentials{
		Email:    "bob@example.com",
		Password: "correct-horse",
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	h := newAuthHarness(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := NewUser("carol@example.com", string(hash))
	require.NoError(t, h.users.Create(context.Background(), user))

	pair, _, err := h.service.Login(context.Background(), Credentials{
		Email:    "carol@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	next, err := h.service.RefreshToken(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The first refresh token was single use.
	_, err = h.service.RefreshToken(context.Background(), pair.RefreshToken)
	require.Error(t, err)
}
