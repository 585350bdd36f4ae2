package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/apperror"
	"navgate/internal/domain/reports"
	"navgate/internal/infrastructure/http/v1/dto"
)

// ReportsHandler serves the read-only reporting endpoints.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

// InvoiceJournal handles GET /reports/invoice-journal.
func (h *ReportsHandler) InvoiceJournal(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.InvoiceJournalRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format in filter"))
		return
	}

	journal, err := h.service.GetInvoiceJournal(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, journal)
}

// SubmissionActivity handles GET /reports/submission-activity.
func (h *ReportsHandler) SubmissionActivity(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmissionActivityRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format in filter"))
		return
	}

	report, err := h.service.GetSubmissionActivity(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
