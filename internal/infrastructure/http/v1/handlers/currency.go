package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/apperror"
	"navgate/internal/core/id"
	"navgate/internal/domain/catalogs/currency"
	"navgate/internal/infrastructure/http/v1/dto"
)

// CurrencyHandler extends the generic catalog handler with rate refresh.
type CurrencyHandler struct {
	*CatalogHandler[*currency.Currency, dto.CreateCurrencyRequest, dto.UpdateCurrencyRequest]
	service *currency.Service
}

// NewCurrencyHandler creates a configured currency handler.
func NewCurrencyHandler(base *BaseHandler, service *currency.Service) *CurrencyHandler {
	config := CatalogHandlerConfig[*currency.Currency, dto.CreateCurrencyRequest, dto.UpdateCurrencyRequest]{
		Service:    service.CatalogService,
		EntityName: "currency",
		MapCreateDTO: func(req dto.CreateCurrencyRequest) (*currency.Currency, error) {
			return req.ToEntity(), nil
		},
		MapUpdateDTO: func(req dto.UpdateCurrencyRequest, existing *currency.Currency) (*currency.Currency, error) {
			req.ApplyTo(existing)
			return existing, nil
		},
		MapToDTO: func(entity *currency.Currency) any {
			return dto.FromCurrency(entity)
		},
	}

	return &CurrencyHandler{
		CatalogHandler: NewCatalogHandler(base, config),
		service:        service,
	}
}

// UpdateRate handles POST /currencies/:id/rate - refresh the suggested HUF rate.
func (h *CurrencyHandler) UpdateRate(c *gin.Context) {
	ctx := c.Request.Context()

	currencyID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateExchangeRateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.service.UpdateRate(ctx, currencyID, req.Rate, req.Date); err != nil {
		h.Error(c, err)
		return
	}

	updated, err := h.service.GetByID(ctx, currencyID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCurrency(updated))
}
