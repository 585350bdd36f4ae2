// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"navgate/internal/core/security"
)

// UserContext derives the request's access scope from the authenticated
// user and stores it, together with the bare user ID, on the request
// context for the domain and audit layers.
//
// Must run AFTER Auth, which put the user on the request context.
//
// Usage in router:
//
//	protected.Use(middleware.Auth(cfg.JWTValidator))
//	protected.Use(middleware.UserContext())
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		scope := security.NewAccessScope(ctx)
		ctx = security.WithScope(ctx, scope)
		if scope.UserID != "" {
			ctx = security.WithUserID(ctx, scope.UserID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
