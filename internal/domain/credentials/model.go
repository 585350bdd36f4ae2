// Package credentials manages the per-company NAV technical user records.
// Submission always uses the single active credential set of the invoice's
// (company, mode) pair; key material is write-only towards the API.
package credentials

import (
	"context"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/nav"
)

// Credentials is one NAV technical user of a company.
type Credentials struct {
	entity.Catalog

	// CompanyID is the owning company
	CompanyID id.ID `db:"company_id" json:"companyId"`

	// Mode selects the production or test environment
	Mode nav.Mode `db:"mode" json:"mode"`

	// Username is the technical user login
	Username string `db:"username" json:"username"`

	// Password, SignatureKey and ReplacementKey are write-only: never
	// serialized in API responses and never logged.
	Password       string `db:"password" json:"-"`
	SignatureKey   string `db:"signature_key" json:"-"`
	ReplacementKey string `db:"replacement_key" json:"-"`

	// Active marks the credential set used for submission. At most one
	// active set per (company, mode), enforced by the service.
	Active bool `db:"active" json:"active"`
}

// NewCredentials creates a credential set for a company.
func NewCredentials(companyID id.ID, mode nav.Mode, username string) *Credentials {
	return &Credentials{
		Catalog:   entity.NewCatalog(username, username),
		CompanyID: companyID,
		Mode:      mode,
		Username:  username,
	}
}

// Validate implements entity.Validatable interface.
func (c *Credentials) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(c.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if c.Mode != nav.ModeProduction && c.Mode != nav.ModeTest {
		return apperror.NewValidation("mode must be production or test").
			WithDetail("field", "mode")
	}
	if c.Username == "" {
		return apperror.NewValidation("username is required").
			WithDetail("field", "username")
	}
	if c.Password == "" {
		return apperror.NewValidation("password is required").
			WithDetail("field", "password")
	}
	if c.SignatureKey == "" {
		return apperror.NewValidation("signature key is required").
			WithDetail("field", "signatureKey")
	}
	if c.ReplacementKey == "" {
		return apperror.NewValidation("replacement key is required").
			WithDetail("field", "replacementKey")
	}

	return nil
}

// ToNAV assembles the wire credentials for the given company tax number.
func (c *Credentials) ToNAV(companyVAT string) nav.Credentials {
	return nav.Credentials{
		VAT:            companyVAT,
		Mode:           c.Mode,
		Username:       c.Username,
		Password:       c.Password,
		SignatureKey:   c.SignatureKey,
		ReplacementKey: c.ReplacementKey,
	}
}
