// Package partner provides the Partner catalog.
// Partners are the invoice buyers: companies, VAT-group members, private persons.
package partner

import (
	"context"
	"regexp"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
)

// Pre-compiled regex patterns for validation (performance optimization)
var (
	// Hungarian tax number: 8-digit base, VAT code 1-5, 2-digit county
	hungarianVATRE = regexp.MustCompile(`^\d{8}-[1-5]-\d{2}$`)
	emailRE        = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Partner represents an invoice buyer.
type Partner struct {
	entity.Catalog

	// FullName is the official registered name
	FullName *string `db:"full_name" json:"fullName,omitempty"`

	// VATNumber is the Hungarian tax number (adószám), format 12345678-1-12
	VATNumber *string `db:"vat_number" json:"vatNumber,omitempty"`

	// GroupMemberTaxNumber identifies a member of a VAT group
	// (reported alongside the group's VATNumber)
	GroupMemberTaxNumber *string `db:"group_member_tax_number" json:"groupMemberTaxNumber,omitempty"`

	// CommunityVATNumber is the EU VAT id for non-Hungarian partners
	CommunityVATNumber *string `db:"community_vat_number" json:"communityVatNumber,omitempty"`

	// Country is the ISO 3166-1 alpha-2 code
	Country string `db:"country" json:"country"`

	// Address fields
	PostalCode *string `db:"postal_code" json:"postalCode,omitempty"`
	City       *string `db:"city" json:"city,omitempty"`
	Street     *string `db:"street" json:"street,omitempty"`

	// PrivatePerson marks a natural person; their tax id must never be reported
	PrivatePerson bool `db:"private_person" json:"privatePerson"`

	// Contact fields
	Phone *string `db:"phone" json:"phone,omitempty"`
	Email *string `db:"email" json:"email,omitempty"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewPartner creates a new Partner with required fields.
func NewPartner(code, name, country string) *Partner {
	return &Partner{
		Catalog: entity.NewCatalog(code, name),
		Country: country,
	}
}

// Validate implements entity.Validatable interface.
func (p *Partner) Validate(ctx context.Context) error {
	// Base catalog validation
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.Country == "" {
		return apperror.NewValidation("country is required").
			WithDetail("field", "country")
	}

	// Private persons are reported without any tax identifier
	if p.PrivatePerson {
		if (p.VATNumber != nil && *p.VATNumber != "") ||
			(p.GroupMemberTaxNumber != nil && *p.GroupMemberTaxNumber != "") {
			return apperror.NewValidation("private person must not carry a tax number").
				WithDetail("field", "vatNumber")
		}
		return nil
	}

	// Hungarian tax number validation (if provided)
	if p.VATNumber != nil && *p.VATNumber != "" && p.IsDomestic() {
		if !hungarianVATRE.MatchString(*p.VATNumber) {
			return apperror.NewValidation("invalid Hungarian tax number (expected 12345678-1-12)").
				WithDetail("field", "vatNumber").
				WithDetail("value", *p.VATNumber)
		}
	}

	if p.GroupMemberTaxNumber != nil && *p.GroupMemberTaxNumber != "" {
		if !hungarianVATRE.MatchString(*p.GroupMemberTaxNumber) {
			return apperror.NewValidation("invalid group member tax number (expected 12345678-1-12)").
				WithDetail("field", "groupMemberTaxNumber")
		}
	}

	// Email validation (if provided)
	if p.Email != nil && *p.Email != "" && !emailRE.MatchString(*p.Email) {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}

	return nil
}

// IsDomestic returns true for Hungarian partners.
func (p *Partner) IsDomestic() bool {
	return p.Country == "HU"
}

// HasTaxNumber returns true if any reportable tax identifier is set.
func (p *Partner) HasTaxNumber() bool {
	if p.VATNumber != nil && *p.VATNumber != "" {
		return true
	}
	if p.CommunityVATNumber != nil && *p.CommunityVATNumber != "" {
		return true
	}
	return false
}
