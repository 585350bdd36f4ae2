package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain/submission"
	"navgate/internal/infrastructure/http/v1/dto"
)

// SubmissionHandler exposes the invoice submission lifecycle: dry-run
// checks, batch submission, cancellation, status polling and history.
type SubmissionHandler struct {
	*BaseHandler
	service *submission.Service
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(base *BaseHandler, service *submission.Service) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Check handles POST /submissions/check - pre-submission dry run. Reports
// every failed readiness rule without touching any state.
func (h *SubmissionHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CheckInvoicesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoiceIDs, err := req.ParseIDs()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id format"))
		return
	}

	failures, err := h.service.Check(ctx, invoiceIDs)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCheckFailures(failures))
}

// Submit handles POST /submissions - submit finalized invoices to the
// authority as per-company batches.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitInvoicesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoiceIDs, err := req.ParseIDs()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id format"))
		return
	}

	trs, err := h.service.Submit(ctx, invoiceIDs, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	response := gin.H{"items": dto.FromTransactions(trs)}
	h.CompleteIdempotency(c, http.StatusAccepted, "application/json", response)
	c.JSON(http.StatusAccepted, response)
}

// Cancel handles POST /submissions/cancel - request technical annulments
// for confirmed invoices.
func (h *SubmissionHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CancelInvoicesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	requests, err := req.ToCancelRequests()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id format"))
		return
	}

	if err := h.service.RequestCancel(ctx, requests, h.GetUserID(c)); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.SuccessResponse{Success: true, Message: "annulment submitted"}
	h.CompleteIdempotency(c, http.StatusAccepted, "application/json", response)
	c.JSON(http.StatusAccepted, response)
}

// Abort handles POST /submissions/abort/:invoiceId - release an invoice
// stuck in a recoverable error state.
func (h *SubmissionHandler) Abort(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("invoiceId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id format"))
		return
	}

	if err := h.service.Abort(ctx, invoiceID, h.GetUserID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "submission aborted")
}

// UpdateStatus handles POST /submissions/update-status - run one poll pass
// over the in-flight transactions.
func (h *SubmissionHandler) UpdateStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.service.UpdateStatus(ctx, h.GetUserID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "status update completed")
}

// ListTransactions handles GET /submissions/transactions.
func (h *SubmissionHandler) ListTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	var filter submission.ListFilter

	if invoiceStr := c.Query("invoiceId"); invoiceStr != "" {
		invoiceID, err := id.Parse(invoiceStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid invoiceId format"))
			return
		}
		filter.InvoiceID = &invoiceID
	}
	for _, s := range c.QueryArray("state") {
		filter.States = append(filter.States, submission.State(s))
	}
	if annulment := c.Query("annulment"); annulment != "" {
		val := annulment == "true"
		filter.Annulment = &val
	}

	trs, err := h.service.ListTransactions(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": dto.FromTransactions(trs)})
}

// GetTransaction handles GET /submissions/transactions/:id.
func (h *SubmissionHandler) GetTransaction(c *gin.Context) {
	ctx := c.Request.Context()

	transactionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	tr, err := h.service.GetTransaction(ctx, transactionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTransaction(tr))
}

// History handles GET /submissions/history/:invoiceId - the full status
// movement trail of one invoice.
func (h *SubmissionHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("invoiceId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id format"))
		return
	}

	movements, err := h.service.History(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": dto.FromStatusMovements(movements)})
}
