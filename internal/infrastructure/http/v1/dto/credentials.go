package dto

import (
	"navgate/internal/core/id"
	"navgate/internal/domain/credentials"
	"navgate/internal/nav"
)

// --- Request DTOs ---

// CreateCredentialsRequest is the request body for registering a NAV
// technical user. Key material is accepted here and never echoed back.
type CreateCredentialsRequest struct {
	CompanyID      string   `json:"companyId" binding:"required"`
	Mode           nav.Mode `json:"mode" binding:"required"`
	Username       string   `json:"username" binding:"required"`
	Password       string   `json:"password" binding:"required"`
	SignatureKey   string   `json:"signatureKey" binding:"required"`
	ReplacementKey string   `json:"replacementKey" binding:"required"`
	Activate       bool     `json:"activate"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateCredentialsRequest) ToEntity() (*credentials.Credentials, error) {
	companyID, err := id.Parse(r.CompanyID)
	if err != nil {
		return nil, err
	}

	c := credentials.NewCredentials(companyID, r.Mode, r.Username)
	c.Password = r.Password
	c.SignatureKey = r.SignatureKey
	c.ReplacementKey = r.ReplacementKey
	c.Active = r.Activate
	return c, nil
}

// UpdateCredentialsRequest is the request body for rotating a technical
// user's key material. Omitted secret fields keep their stored value.
type UpdateCredentialsRequest struct {
	Username       string  `json:"username" binding:"required"`
	Password       *string `json:"password"`
	SignatureKey   *string `json:"signatureKey"`
	ReplacementKey *string `json:"replacementKey"`
	Version        int     `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateCredentialsRequest) ApplyTo(c *credentials.Credentials) {
	c.Username = r.Username
	c.Code = r.Username
	c.Name = r.Username
	if r.Password != nil {
		c.Password = *r.Password
	}
	if r.SignatureKey != nil {
		c.SignatureKey = *r.SignatureKey
	}
	if r.ReplacementKey != nil {
		c.ReplacementKey = *r.ReplacementKey
	}
	c.Version = r.Version
}

// --- Response DTOs ---

// CredentialsResponse is the response body for a credential set. Secrets
// are write-only and intentionally absent.
type CredentialsResponse struct {
	ID           string   `json:"id"`
	CompanyID    string   `json:"companyId"`
	Mode         nav.Mode `json:"mode"`
	Username     string   `json:"username"`
	Active       bool     `json:"active"`
	DeletionMark bool     `json:"deletionMark"`
	Version      int      `json:"version"`
}

// FromCredentials creates response DTO from domain entity.
func FromCredentials(c *credentials.Credentials) *CredentialsResponse {
	return &CredentialsResponse{
		ID:           c.ID.String(),
		CompanyID:    c.CompanyID.String(),
		Mode:         c.Mode,
		Username:     c.Username,
		Active:       c.Active,
		DeletionMark: c.DeletionMark,
		Version:      c.Version,
	}
}
