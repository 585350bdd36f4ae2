// Package company provides the Company catalog.
// Companies are the invoice sellers; each owns its NAV credential sets.
package company

import (
	"context"
	"regexp"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
)

var hungarianVATRE = regexp.MustCompile(`^\d{8}-[1-5]-\d{2}$`)

// Company represents a legal entity issuing invoices.
type Company struct {
	entity.Catalog

	// FullName is the official full name of the company
	FullName *string `db:"full_name" json:"fullName,omitempty"`

	// VATNumber is the Hungarian tax number (adószám), format 12345678-1-12.
	// The first 8 digits identify the taxpayer towards the authority.
	VATNumber string `db:"vat_number" json:"vatNumber"`

	// GroupVATNumber is the VAT group id when the company is a group member
	GroupVATNumber *string `db:"group_vat_number" json:"groupVatNumber,omitempty"`

	// BankAccount is the primary bank account reported on invoices
	BankAccount *string `db:"bank_account" json:"bankAccount,omitempty"`

	// Address fields (reported in the supplier block of every invoice)
	PostalCode *string `db:"postal_code" json:"postalCode,omitempty"`
	City       *string `db:"city" json:"city,omitempty"`
	Street     *string `db:"street" json:"street,omitempty"`

	// Country is the ISO 3166-1 alpha-2 code
	Country string `db:"country" json:"country"`

	// BaseCurrencyID is the accounting currency (HUF for Hungarian companies)
	BaseCurrencyID id.ID `db:"base_currency_id" json:"baseCurrencyId,omitempty"`

	// GuardRule is an optional CEL expression evaluated against every
	// invoice before submission; a false result blocks the upload.
	// Example: gross <= 5000000.0 || currency == "HUF"
	GuardRule *string `db:"guard_rule" json:"guardRule,omitempty"`

	// IsDefault indicates if this is the default company for new invoices
	IsDefault bool `db:"is_default" json:"isDefault"`
}

// NewCompany creates a new Company with required fields.
func NewCompany(code, name, vatNumber string, baseCurrencyID id.ID) *Company {
	return &Company{
		Catalog:        entity.NewCatalog(code, name),
		VATNumber:      vatNumber,
		Country:        "HU",
		BaseCurrencyID: baseCurrencyID,
	}
}

// Validate implements entity.Validatable interface.
func (c *Company) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.VATNumber == "" {
		return apperror.NewValidation("tax number is required").
			WithDetail("field", "vatNumber")
	}
	if !hungarianVATRE.MatchString(c.VATNumber) {
		return apperror.NewValidation("invalid Hungarian tax number (expected 12345678-1-12)").
			WithDetail("field", "vatNumber").
			WithDetail("value", c.VATNumber)
	}

	if c.GroupVATNumber != nil && *c.GroupVATNumber != "" {
		if !hungarianVATRE.MatchString(*c.GroupVATNumber) {
			return apperror.NewValidation("invalid group tax number (expected 12345678-1-12)").
				WithDetail("field", "groupVatNumber")
		}
	}

	return nil
}

// TaxNumber returns the 8-digit taxpayer id used in request headers.
func (c *Company) TaxNumber() string {
	if len(c.VATNumber) < 8 {
		return c.VATNumber
	}
	return c.VATNumber[:8]
}
