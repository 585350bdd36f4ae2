package dto

import (
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/domain/catalogs/company"
)

// --- Request DTOs ---

// CreateCompanyRequest is the request body for creating a company.
type CreateCompanyRequest struct {
	Code           string            `json:"code"`
	Name           string            `json:"name" binding:"required"`
	FullName       *string           `json:"fullName"`
	VATNumber      string            `json:"vatNumber" binding:"required"`
	GroupVATNumber *string           `json:"groupVatNumber"`
	BankAccount    *string           `json:"bankAccount"`
	PostalCode     *string           `json:"postalCode"`
	City           *string           `json:"city"`
	Street         *string           `json:"street"`
	Country        string            `json:"country"`
	BaseCurrencyID string            `json:"baseCurrencyId" binding:"required"`
	GuardRule      *string           `json:"guardRule"`
	IsDefault      bool              `json:"isDefault"`
	Attributes     entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateCompanyRequest) ToEntity() (*company.Company, error) {
	currencyID, err := id.Parse(r.BaseCurrencyID)
	if err != nil {
		return nil, err
	}

	c := company.NewCompany(r.Code, r.Name, r.VATNumber, currencyID)
	c.FullName = r.FullName
	c.GroupVATNumber = r.GroupVATNumber
	c.BankAccount = r.BankAccount
	c.PostalCode = r.PostalCode
	c.City = r.City
	c.Street = r.Street
	if r.Country != "" {
		c.Country = r.Country
	}
	c.GuardRule = r.GuardRule
	c.IsDefault = r.IsDefault
	c.Attributes = r.Attributes
	return c, nil
}

// UpdateCompanyRequest is the request body for updating a company.
type UpdateCompanyRequest struct {
	Code           string            `json:"code"`
	Name           string            `json:"name" binding:"required"`
	FullName       *string           `json:"fullName"`
	VATNumber      string            `json:"vatNumber" binding:"required"`
	GroupVATNumber *string           `json:"groupVatNumber"`
	BankAccount    *string           `json:"bankAccount"`
	PostalCode     *string           `json:"postalCode"`
	City           *string           `json:"city"`
	Street         *string           `json:"street"`
	Country        string            `json:"country"`
	BaseCurrencyID string            `json:"baseCurrencyId" binding:"required"`
	GuardRule      *string           `json:"guardRule"`
	IsDefault      bool              `json:"isDefault"`
	Attributes     entity.Attributes `json:"attributes"`
	Version        int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateCompanyRequest) ApplyTo(c *company.Company) error {
	currencyID, err := id.Parse(r.BaseCurrencyID)
	if err != nil {
		return err
	}

	c.Code = r.Code
	c.Name = r.Name
	c.FullName = r.FullName
	c.VATNumber = r.VATNumber
	c.GroupVATNumber = r.GroupVATNumber
	c.BankAccount = r.BankAccount
	c.PostalCode = r.PostalCode
	c.City = r.City
	c.Street = r.Street
	if r.Country != "" {
		c.Country = r.Country
	}
	c.BaseCurrencyID = currencyID
	c.GuardRule = r.GuardRule
	c.IsDefault = r.IsDefault
	c.Attributes = r.Attributes
	c.Version = r.Version
	return nil
}

// --- Response DTOs ---

// CompanyResponse is the response body for a company.
type CompanyResponse struct {
	ID             string            `json:"id"`
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	FullName       *string           `json:"fullName,omitempty"`
	VATNumber      string            `json:"vatNumber"`
	GroupVATNumber *string           `json:"groupVatNumber,omitempty"`
	BankAccount    *string           `json:"bankAccount,omitempty"`
	PostalCode     *string           `json:"postalCode,omitempty"`
	City           *string           `json:"city,omitempty"`
	Street         *string           `json:"street,omitempty"`
	Country        string            `json:"country"`
	BaseCurrencyID string            `json:"baseCurrencyId"`
	GuardRule      *string           `json:"guardRule,omitempty"`
	IsDefault      bool              `json:"isDefault"`
	DeletionMark   bool              `json:"deletionMark"`
	Version        int               `json:"version"`
	Attributes     entity.Attributes `json:"attributes,omitempty"`
}

// FromCompany creates response DTO from domain entity.
func FromCompany(c *company.Company) *CompanyResponse {
	return &CompanyResponse{
		ID:             c.ID.String(),
		Code:           c.Code,
		Name:           c.Name,
		FullName:       c.FullName,
		VATNumber:      c.VATNumber,
		GroupVATNumber: c.GroupVATNumber,
		BankAccount:    c.BankAccount,
		PostalCode:     c.PostalCode,
		City:           c.City,
		Street:         c.Street,
		Country:        c.Country,
		BaseCurrencyID: c.BaseCurrencyID.String(),
		GuardRule:      c.GuardRule,
		IsDefault:      c.IsDefault,
		DeletionMark:   c.DeletionMark,
		Version:        c.Version,
		Attributes:     c.Attributes,
	}
}
