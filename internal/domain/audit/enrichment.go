// Package audit provides audit field enrichment for domain entities.
package audit

import (
	"context"

	"navgate/internal/core/security"
)

// EnrichCreatedBy sets CreatedBy and UpdatedBy from the context user.
// Use in before-create paths. A missing user is a no-op (system actions).
func EnrichCreatedBy(ctx context.Context, entity any) {
	userID := security.GetUserID(ctx)
	if userID == "" {
		return
	}

	if e, ok := entity.(interface {
		SetCreatedBy(string)
		SetUpdatedBy(string)
	}); ok {
		e.SetCreatedBy(userID)
		e.SetUpdatedBy(userID)
	}
}

// EnrichUpdatedBy sets only UpdatedBy from the context user.
// Use in before-update paths.
func EnrichUpdatedBy(ctx context.Context, entity any) {
	userID := security.GetUserID(ctx)
	if userID == "" {
		return
	}

	if e, ok := entity.(interface{ SetUpdatedBy(string) }); ok {
		e.SetUpdatedBy(userID)
	}
}
