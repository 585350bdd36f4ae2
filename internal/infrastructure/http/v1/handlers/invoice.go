package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain"
	"navgate/internal/domain/invoice"
	"navgate/internal/infrastructure/http/v1/dto"
	"navgate/internal/infrastructure/storage/postgres"
)

// InvoiceHandler handles invoice CRUD and finalization. Submission endpoints
// live on SubmissionHandler.
type InvoiceHandler struct {
	*BaseHandler
	service *invoice.Service
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(base *BaseHandler, service *invoice.Service) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
	}
}

// List handles GET /invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := invoice.ListFilter{
		ListFilter: domain.DefaultListFilter(),
		Number:     c.Query("number"),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "date")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"

	if companyStr := c.Query("companyId"); companyStr != "" {
		companyID, err := id.Parse(companyStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid companyId format"))
			return
		}
		filter.CompanyID = &companyID
	}
	if partnerStr := c.Query("partnerId"); partnerStr != "" {
		partnerID, err := id.Parse(partnerStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid partnerId format"))
			return
		}
		filter.PartnerID = &partnerID
	}
	if posted := c.Query("posted"); posted != "" {
		val := posted == "true"
		filter.Posted = &val
	}
	if cancelled := c.Query("cancelled"); cancelled != "" {
		val := cancelled == "true"
		filter.Cancelled = &val
	}

	result, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, item := range result.Items {
		items[i] = dto.FromInvoice(item)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Get handles GET /invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	inv, err := h.service.GetByID(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromInvoice(inv))
}

// Create handles POST /invoices - create a draft.
func (h *InvoiceHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := req.ToEntity()
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	if err := h.service.Create(ctx, inv); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromInvoice(inv)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Update handles PUT /invoices/:id - update a draft.
func (h *InvoiceHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := h.service.GetByID(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(inv); err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return
	}

	if err := h.service.Update(ctx, inv); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromInvoice(inv)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}

// Delete handles DELETE /invoices/:id - delete a draft.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(ctx, invoiceID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Finalize handles POST /invoices/:id/finalize - assign the invoice number,
// sequence the chain and lock the document.
func (h *InvoiceHandler) Finalize(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	inv, err := h.service.Finalize(ctx, invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Audit(c, "invoice", invoiceID, postgres.AuditActionFinalize,
		map[string]any{"number": inv.Number, "chainIndex": inv.ChainIndex})

	response := dto.FromInvoice(inv)
	h.CompleteIdempotency(c, http.StatusOK, "application/json", response)
	c.JSON(http.StatusOK, response)
}
