package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain/credentials"
	"navgate/internal/infrastructure/http/v1/dto"
)

// CredentialsHandler manages NAV technical user records. Key material is
// accepted on writes and never returned.
type CredentialsHandler struct {
	*CatalogHandler[*credentials.Credentials, dto.CreateCredentialsRequest, dto.UpdateCredentialsRequest]
	service *credentials.Service
}

// NewCredentialsHandler creates a configured credentials handler.
func NewCredentialsHandler(base *BaseHandler, service *credentials.Service) *CredentialsHandler {
	config := CatalogHandlerConfig[*credentials.Credentials, dto.CreateCredentialsRequest, dto.UpdateCredentialsRequest]{
		Service:    service.CatalogService,
		EntityName: "credentials",
		MapCreateDTO: func(req dto.CreateCredentialsRequest) (*credentials.Credentials, error) {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateCredentialsRequest, existing *credentials.Credentials) (*credentials.Credentials, error) {
			req.ApplyTo(existing)
			return existing, nil
		},
		MapToDTO: func(entity *credentials.Credentials) any {
			return dto.FromCredentials(entity)
		},
	}

	return &CredentialsHandler{
		CatalogHandler: NewCatalogHandler(base, config),
		service:        service,
	}
}

// ListByCompany handles GET /credentials?companyId=...
func (h *CredentialsHandler) ListByCompany(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, err := id.Parse(c.Query("companyId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("companyId query param is required"))
		return
	}

	items, err := h.service.ListByCompany(ctx, companyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]*dto.CredentialsResponse, len(items))
	for i, item := range items {
		response[i] = dto.FromCredentials(item)
	}

	c.JSON(http.StatusOK, gin.H{"items": response})
}

// Activate handles POST /credentials/:id/activate - make this set the active
// one of its (company, mode) pair.
func (h *CredentialsHandler) Activate(c *gin.Context) {
	ctx := c.Request.Context()

	credentialsID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Activate(ctx, credentialsID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "credentials activated")
}

// TestConnection handles POST /credentials/:id/test - run a live token
// exchange against the authority.
func (h *CredentialsHandler) TestConnection(c *gin.Context) {
	ctx := c.Request.Context()

	credentialsID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.TestConnection(ctx, credentialsID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "connection test passed")
}
