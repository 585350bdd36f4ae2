package handlers

import (
	"navgate/internal/domain/catalogs/unit"
	"navgate/internal/infrastructure/http/v1/dto"
)

// UnitHTTPHandler is a type alias to shorten signatures.
type UnitHTTPHandler = CatalogHandler[
	*unit.Unit,
	dto.CreateUnitRequest,
	dto.UpdateUnitRequest,
]

// NewUnitHandler creates a configured generic handler for units.
func NewUnitHandler(
	base *BaseHandler,
	service *unit.Service,
) *UnitHTTPHandler {

	config := CatalogHandlerConfig[
		*unit.Unit,
		dto.CreateUnitRequest,
		dto.UpdateUnitRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "unit",

		MapCreateDTO: func(req dto.CreateUnitRequest) (*unit.Unit, error) {
			return req.ToEntity(), nil
		},

		MapUpdateDTO: func(req dto.UpdateUnitRequest, existing *unit.Unit) (*unit.Unit, error) {
			req.ApplyTo(existing)
			return existing, nil
		},

		MapToDTO: func(entity *unit.Unit) any {
			return dto.FromUnit(entity)
		},
	}

	return NewCatalogHandler(base, config)
}
