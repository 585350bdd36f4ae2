package dto

import (
	"navgate/internal/core/entity"
	"navgate/internal/domain/catalogs/partner"
)

// --- Request DTOs ---

// CreatePartnerRequest is the request body for creating a partner.
type CreatePartnerRequest struct {
	Code                 string            `json:"code"`
	Name                 string            `json:"name" binding:"required"`
	FullName             *string           `json:"fullName"`
	VATNumber            *string           `json:"vatNumber"`
	GroupMemberTaxNumber *string           `json:"groupMemberTaxNumber"`
	CommunityVATNumber   *string           `json:"communityVatNumber"`
	Country              string            `json:"country"`
	PostalCode           *string           `json:"postalCode"`
	City                 *string           `json:"city"`
	Street               *string           `json:"street"`
	PrivatePerson        bool              `json:"privatePerson"`
	Phone                *string           `json:"phone"`
	Email                *string           `json:"email"`
	Comment              *string           `json:"comment"`
	ParentID             *string           `json:"parentId"`
	IsFolder             bool              `json:"isFolder"`
	Attributes           entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreatePartnerRequest) ToEntity() *partner.Partner {
	p := partner.NewPartner(r.Code, r.Name, r.Country)
	p.FullName = r.FullName
	p.VATNumber = r.VATNumber
	p.GroupMemberTaxNumber = r.GroupMemberTaxNumber
	p.CommunityVATNumber = r.CommunityVATNumber
	p.PostalCode = r.PostalCode
	p.City = r.City
	p.Street = r.Street
	p.PrivatePerson = r.PrivatePerson
	p.Phone = r.Phone
	p.Email = r.Email
	p.Comment = r.Comment
	p.ParentID = r.ParentID
	p.IsFolder = r.IsFolder
	p.Attributes = r.Attributes
	return p
}

// UpdatePartnerRequest is the request body for updating a partner.
type UpdatePartnerRequest struct {
	Code                 string            `json:"code"`
	Name                 string            `json:"name" binding:"required"`
	FullName             *string           `json:"fullName"`
	VATNumber            *string           `json:"vatNumber"`
	GroupMemberTaxNumber *string           `json:"groupMemberTaxNumber"`
	CommunityVATNumber   *string           `json:"communityVatNumber"`
	Country              string            `json:"country"`
	PostalCode           *string           `json:"postalCode"`
	City                 *string           `json:"city"`
	Street               *string           `json:"street"`
	PrivatePerson        bool              `json:"privatePerson"`
	Phone                *string           `json:"phone"`
	Email                *string           `json:"email"`
	Comment              *string           `json:"comment"`
	ParentID             *string           `json:"parentId"`
	IsFolder             bool              `json:"isFolder"`
	Attributes           entity.Attributes `json:"attributes"`
	Version              int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdatePartnerRequest) ApplyTo(p *partner.Partner) {
	p.Code = r.Code
	p.Name = r.Name
	p.FullName = r.FullName
	p.VATNumber = r.VATNumber
	p.GroupMemberTaxNumber = r.GroupMemberTaxNumber
	p.CommunityVATNumber = r.CommunityVATNumber
	if r.Country != "" {
		p.Country = r.Country
	}
	p.PostalCode = r.PostalCode
	p.City = r.City
	p.Street = r.Street
	p.PrivatePerson = r.PrivatePerson
	p.Phone = r.Phone
	p.Email = r.Email
	p.Comment = r.Comment
	p.ParentID = r.ParentID
	p.IsFolder = r.IsFolder
	p.Attributes = r.Attributes
	p.Version = r.Version
}

// --- Response DTOs ---

// PartnerResponse is the response body for a partner.
type PartnerResponse struct {
	ID                   string            `json:"id"`
	Code                 string            `json:"code"`
	Name                 string            `json:"name"`
	FullName             *string           `json:"fullName,omitempty"`
	VATNumber            *string           `json:"vatNumber,omitempty"`
	GroupMemberTaxNumber *string           `json:"groupMemberTaxNumber,omitempty"`
	CommunityVATNumber   *string           `json:"communityVatNumber,omitempty"`
	Country              string            `json:"country"`
	PostalCode           *string           `json:"postalCode,omitempty"`
	City                 *string           `json:"city,omitempty"`
	Street               *string           `json:"street,omitempty"`
	PrivatePerson        bool              `json:"privatePerson"`
	Phone                *string           `json:"phone,omitempty"`
	Email                *string           `json:"email,omitempty"`
	Comment              *string           `json:"comment,omitempty"`
	ParentID             *string           `json:"parentId,omitempty"`
	IsFolder             bool              `json:"isFolder"`
	DeletionMark         bool              `json:"deletionMark"`
	Version              int               `json:"version"`
	Attributes           entity.Attributes `json:"attributes,omitempty"`
}

// FromPartner creates response DTO from domain entity.
func FromPartner(p *partner.Partner) *PartnerResponse {
	return &PartnerResponse{
		ID:                   p.ID.String(),
		Code:                 p.Code,
		Name:                 p.Name,
		FullName:             p.FullName,
		VATNumber:            p.VATNumber,
		GroupMemberTaxNumber: p.GroupMemberTaxNumber,
		CommunityVATNumber:   p.CommunityVATNumber,
		Country:              p.Country,
		PostalCode:           p.PostalCode,
		City:                 p.City,
		Street:               p.Street,
		PrivatePerson:        p.PrivatePerson,
		Phone:                p.Phone,
		Email:                p.Email,
		Comment:              p.Comment,
		ParentID:             p.ParentID,
		IsFolder:             p.IsFolder,
		DeletionMark:         p.DeletionMark,
		Version:              p.Version,
		Attributes:           p.Attributes,
	}
}
