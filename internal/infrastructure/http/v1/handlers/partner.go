package handlers

import (
	"navgate/internal/domain/catalogs/partner"
	"navgate/internal/infrastructure/http/v1/dto"
)

// PartnerHTTPHandler is a type alias to shorten signatures.
type PartnerHTTPHandler = CatalogHandler[
	*partner.Partner,
	dto.CreatePartnerRequest,
	dto.UpdatePartnerRequest,
]

// NewPartnerHandler creates a configured generic handler for partners.
func NewPartnerHandler(
	base *BaseHandler,
	service *partner.Service,
) *PartnerHTTPHandler {

	config := CatalogHandlerConfig[
		*partner.Partner,
		dto.CreatePartnerRequest,
		dto.UpdatePartnerRequest,
	]{
		Service:    service.CatalogService,
		EntityName: "partner",

		MapCreateDTO: func(req dto.CreatePartnerRequest) (*partner.Partner, error) {
			return req.ToEntity(), nil
		},

		MapUpdateDTO: func(req dto.UpdatePartnerRequest, existing *partner.Partner) (*partner.Partner, error) {
			req.ApplyTo(existing)
			return existing, nil
		},

		MapToDTO: func(entity *partner.Partner) any {
			return dto.FromPartner(entity)
		},
	}

	return NewCatalogHandler(base, config)
}
