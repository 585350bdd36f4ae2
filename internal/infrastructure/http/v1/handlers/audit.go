package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/infrastructure/storage/postgres"
)

// AuditHandler exposes the audit trail of single entities.
type AuditHandler struct {
	*BaseHandler
	audit *postgres.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, audit *postgres.AuditService) *AuditHandler {
	return &AuditHandler{BaseHandler: base, audit: audit}
}

// History handles GET /audit/:entityType/:id.
func (h *AuditHandler) History(c *gin.Context) {
	entityID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.History(c.Request.Context(), c.Param("entityType"), entityID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}

// Ensure the audit writer satisfies the handler-side contract.
var _ Auditor = (*postgres.AuditService)(nil)
