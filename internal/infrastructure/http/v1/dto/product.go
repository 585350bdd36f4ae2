package dto

import (
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
	"navgate/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Code         string              `json:"code"`
	Name         string              `json:"name" binding:"required"`
	Type         product.ProductType `json:"type" binding:"required"`
	Article      *string             `json:"article"`
	UnitID       *string             `json:"unitId"`
	VATCategory  string              `json:"vatCategory"`
	VATPercent   types.Money         `json:"vatPercent"`
	DefaultPrice types.Money         `json:"defaultPrice"`
	Description  *string             `json:"description"`
	ParentID     *string             `json:"parentId"`
	IsFolder     bool                `json:"isFolder"`
	Attributes   entity.Attributes   `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity() (*product.Product, error) {
	p := product.NewProduct(r.Code, r.Name, r.Type)
	p.Article = r.Article
	if r.UnitID != nil {
		unitID, err := id.Parse(*r.UnitID)
		if err != nil {
			return nil, err
		}
		p.UnitID = &unitID
	}
	if r.VATCategory != "" {
		p.VATCategory = r.VATCategory
	}
	p.VATPercent = r.VATPercent
	p.DefaultPrice = r.DefaultPrice
	p.Description = r.Description
	p.ParentID = r.ParentID
	p.IsFolder = r.IsFolder
	p.Attributes = r.Attributes
	return p, nil
}

// UpdateProductRequest is the request body for updating a product.
type UpdateProductRequest struct {
	Code         string              `json:"code"`
	Name         string              `json:"name" binding:"required"`
	Type         product.ProductType `json:"type" binding:"required"`
	Article      *string             `json:"article"`
	UnitID       *string             `json:"unitId"`
	VATCategory  string              `json:"vatCategory"`
	VATPercent   types.Money         `json:"vatPercent"`
	DefaultPrice types.Money         `json:"defaultPrice"`
	Description  *string             `json:"description"`
	ParentID     *string             `json:"parentId"`
	IsFolder     bool                `json:"isFolder"`
	Attributes   entity.Attributes   `json:"attributes"`
	Version      int                 `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) error {
	p.Code = r.Code
	p.Name = r.Name
	p.Type = r.Type
	p.Article = r.Article
	p.UnitID = nil
	if r.UnitID != nil {
		unitID, err := id.Parse(*r.UnitID)
		if err != nil {
			return err
		}
		p.UnitID = &unitID
	}
	p.VATCategory = r.VATCategory
	p.VATPercent = r.VATPercent
	p.DefaultPrice = r.DefaultPrice
	p.Description = r.Description
	p.ParentID = r.ParentID
	p.IsFolder = r.IsFolder
	p.Attributes = r.Attributes
	p.Version = r.Version
	return nil
}

// --- Response DTOs ---

// ProductResponse is the response body for a product.
type ProductResponse struct {
	ID           string              `json:"id"`
	Code         string              `json:"code"`
	Name         string              `json:"name"`
	Type         product.ProductType `json:"type"`
	Article      *string             `json:"article,omitempty"`
	UnitID       *string             `json:"unitId,omitempty"`
	VATCategory  string              `json:"vatCategory"`
	VATPercent   types.Money         `json:"vatPercent"`
	DefaultPrice types.Money         `json:"defaultPrice"`
	Description  *string             `json:"description,omitempty"`
	ParentID     *string             `json:"parentId,omitempty"`
	IsFolder     bool                `json:"isFolder"`
	DeletionMark bool                `json:"deletionMark"`
	Version      int                 `json:"version"`
	Attributes   entity.Attributes   `json:"attributes,omitempty"`
}

// FromProduct creates response DTO from domain entity.
func FromProduct(p *product.Product) *ProductResponse {
	resp := &ProductResponse{
		ID:           p.ID.String(),
		Code:         p.Code,
		Name:         p.Name,
		Type:         p.Type,
		Article:      p.Article,
		VATCategory:  p.VATCategory,
		VATPercent:   p.VATPercent,
		DefaultPrice: p.DefaultPrice,
		Description:  p.Description,
		ParentID:     p.ParentID,
		IsFolder:     p.IsFolder,
		DeletionMark: p.DeletionMark,
		Version:      p.Version,
		Attributes:   p.Attributes,
	}
	if p.UnitID != nil {
		s := p.UnitID.String()
		resp.UnitID = &s
	}
	return resp
}
