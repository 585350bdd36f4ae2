package dto

import (
	"navgate/internal/core/entity"
	"navgate/internal/domain/catalogs/unit"
)

// --- Request DTOs ---

// CreateUnitRequest is the request body for creating a unit.
type CreateUnitRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	NAVCode     unit.NAVCode      `json:"navCode" binding:"required"`
	Symbol      string            `json:"symbol" binding:"required"`
	Description *string           `json:"description"`
	ParentID    *string           `json:"parentId"`
	IsFolder    bool              `json:"isFolder"`
	Attributes  entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateUnitRequest) ToEntity() *unit.Unit {
	u := unit.NewUnit(r.Code, r.Name, r.Symbol, r.NAVCode)
	u.Description = r.Description
	u.ParentID = r.ParentID
	u.IsFolder = r.IsFolder
	u.Attributes = r.Attributes
	return u
}

// UpdateUnitRequest is the request body for updating a unit.
type UpdateUnitRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	NAVCode     unit.NAVCode      `json:"navCode" binding:"required"`
	Symbol      string            `json:"symbol" binding:"required"`
	Description *string           `json:"description"`
	ParentID    *string           `json:"parentId"`
	IsFolder    bool              `json:"isFolder"`
	Attributes  entity.Attributes `json:"attributes"`
	Version     int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateUnitRequest) ApplyTo(u *unit.Unit) {
	u.Code = r.Code
	u.Name = r.Name
	u.NAVCode = r.NAVCode
	u.Symbol = r.Symbol
	u.Description = r.Description
	u.ParentID = r.ParentID
	u.IsFolder = r.IsFolder
	u.Attributes = r.Attributes
	u.Version = r.Version
}

// --- Response DTOs ---

// UnitResponse is the response body for a unit.
type UnitResponse struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	Name         string            `json:"name"`
	NAVCode      unit.NAVCode      `json:"navCode"`
	Symbol       string            `json:"symbol"`
	Description  *string           `json:"description,omitempty"`
	ParentID     *string           `json:"parentId,omitempty"`
	IsFolder     bool              `json:"isFolder"`
	DeletionMark bool              `json:"deletionMark"`
	Version      int               `json:"version"`
	Attributes   entity.Attributes `json:"attributes,omitempty"`
}

// FromUnit creates response DTO from domain entity.
func FromUnit(u *unit.Unit) *UnitResponse {
	return &UnitResponse{
		ID:           u.ID.String(),
		Code:         u.Code,
		Name:         u.Name,
		NAVCode:      u.NAVCode,
		Symbol:       u.Symbol,
		Description:  u.Description,
		ParentID:     u.ParentID,
		IsFolder:     u.IsFolder,
		DeletionMark: u.DeletionMark,
		Version:      u.Version,
		Attributes:   u.Attributes,
	}
}
