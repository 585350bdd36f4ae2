package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/infrastructure/http/v1/dto"
)

// CompanyHandler extends the generic catalog handler with default-company
// management.
type CompanyHandler struct {
	*CatalogHandler[*company.Company, dto.CreateCompanyRequest, dto.UpdateCompanyRequest]
	service *company.Service
}

// NewCompanyHandler creates a configured company handler.
func NewCompanyHandler(base *BaseHandler, service *company.Service) *CompanyHandler {
	config := CatalogHandlerConfig[*company.Company, dto.CreateCompanyRequest, dto.UpdateCompanyRequest]{
		Service:    service.CatalogService,
		EntityName: "company",
		MapCreateDTO: func(req dto.CreateCompanyRequest) (*company.Company, error) {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateCompanyRequest, existing *company.Company) (*company.Company, error) {
			if err := req.ApplyTo(existing); err != nil {
				return nil, err
			}
			return existing, nil
		},
		MapToDTO: func(entity *company.Company) any {
			return dto.FromCompany(entity)
		},
	}

	return &CompanyHandler{
		CatalogHandler: NewCatalogHandler(base, config),
		service:        service,
	}
}

// GetDefault handles GET /companies/default.
func (h *CompanyHandler) GetDefault(c *gin.Context) {
	company, err := h.service.GetDefault(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCompany(company))
}

// SetDefault handles POST /companies/:id/default.
func (h *CompanyHandler) SetDefault(c *gin.Context) {
	ctx := c.Request.Context()

	companyID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.SetDefault(ctx, companyID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "default company updated")
}
