// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains authenticated API client information.
type UserContext struct {
	UserID     string
	Email      string
	Roles      []string
	CompanyIDs []string // Companies the client may submit for
	IsAdmin    bool

	// Permissions are entity-scoped grants in "entity:action" form,
	// e.g. "invoice:submit".
	Permissions []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasCompanyAccess checks if user may act on behalf of a company.
func HasCompanyAccess(ctx context.Context, companyID string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	if u.IsAdmin {
		return true
	}
	for _, id := range u.CompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}
