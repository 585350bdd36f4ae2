// Package security provides authorization and access control.
package security

import (
	"context"
	"fmt"
	"strings"

	"navgate/internal/core/apperror"
	appctx "navgate/internal/core/context"
)

// Permission defines available permissions in the system.
type Permission string

const (
	// CRUD permissions
	PermissionRead   Permission = "read"
	PermissionCreate Permission = "create"
	PermissionUpdate Permission = "update"
	PermissionDelete Permission = "delete"

	// Submission permissions
	PermissionSubmit Permission = "submit"
	PermissionCancel Permission = "cancel"

	// Admin permissions
	PermissionAdmin Permission = "admin"
	PermissionAudit Permission = "audit"
)

// Role defines a set of permissions.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleViewer     Role = "viewer"
)

// AccessScope defines the boundaries of data visibility for the current
// request: which companies the caller may act for and with which
// permissions. Also carried for consistent logging/audit context.
type AccessScope struct {
	// UserID is the authenticated user
	UserID string

	// IsAdmin bypasses company filtering
	IsAdmin bool

	// AllowedCompanyIDs limits submission and invoice access to specific
	// companies. Empty = no access (unless IsAdmin).
	AllowedCompanyIDs []string

	// Permissions available to user
	Permissions map[string][]Permission
}

// NewAccessScope creates AccessScope from context.
func NewAccessScope(ctx context.Context) *AccessScope {
	user := appctx.GetUser(ctx)
	if user == nil {
		return &AccessScope{}
	}

	scope := &AccessScope{
		UserID:            user.UserID,
		IsAdmin:           user.IsAdmin,
		AllowedCompanyIDs: user.CompanyIDs,
	}

	if len(user.Permissions) > 0 {
		scope.Permissions = make(map[string][]Permission)
		for _, grant := range user.Permissions {
			entity, perm, ok := strings.Cut(grant, ":")
			if !ok {
				continue
			}
			scope.Permissions[entity] = append(scope.Permissions[entity], Permission(perm))
		}
	}

	return scope
}

// CanAccessCompany checks if user can act on behalf of a company.
func (s *AccessScope) CanAccessCompany(companyID string) bool {
	if s.IsAdmin {
		return true
	}
	for _, id := range s.AllowedCompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}

// HasPermission checks if user has permission on entity.
func (s *AccessScope) HasPermission(entity string, perm Permission) bool {
	if s.IsAdmin {
		return true
	}
	if perms, ok := s.Permissions[entity]; ok {
		for _, p := range perms {
			if p == perm {
				return true
			}
		}
	}
	return false
}

// RequirePermission returns error if permission is missing.
func (s *AccessScope) RequirePermission(entity string, perm Permission) error {
	if !s.HasPermission(entity, perm) {
		return apperror.NewForbidden(
			fmt.Sprintf("permission %s on %s required", perm, entity),
		).WithDetail("entity", entity).WithDetail("permission", perm)
	}
	return nil
}

// FilterCompanyIDs returns intersection of requested and allowed companies.
// Used to safely filter queries by company.
func (s *AccessScope) FilterCompanyIDs(requested []string) []string {
	if s.IsAdmin {
		return requested
	}

	if len(requested) == 0 {
		return s.AllowedCompanyIDs
	}

	allowed := make(map[string]bool, len(s.AllowedCompanyIDs))
	for _, id := range s.AllowedCompanyIDs {
		allowed[id] = true
	}

	var result []string
	for _, id := range requested {
		if allowed[id] {
			result = append(result, id)
		}
	}
	return result
}

// --- Context-based scope access ---

type scopeKey struct{}

// WithScope adds AccessScope to context.
func WithScope(ctx context.Context, scope *AccessScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScope returns AccessScope from context.
func GetScope(ctx context.Context) *AccessScope {
	if v, ok := ctx.Value(scopeKey{}).(*AccessScope); ok {
		return v
	}
	return NewAccessScope(ctx)
}
