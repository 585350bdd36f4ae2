// Package product provides the Product catalog. Products carry the default
// unit and Hungarian VAT category picked up by new invoice lines.
package product

import (
	"context"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
)

// ProductType defines the type of item.
type ProductType string

const (
	TypeGoods   ProductType = "goods"
	TypeService ProductType = "service"
)

// VAT tax categories accepted as a product default. VAT5/18/27 are the
// percentage rates; the rest are exemption or out-of-scope cases.
var vatCategories = map[string]bool{
	"AAM": true, "TAM": true, "KBAET": true, "KBAUK": true, "EAM": true,
	"NAM": true, "ATK": true, "EUFAD37": true, "EUFADE": true, "EUE": true,
	"HO": true, "FAD": true, "VAT5": true, "VAT18": true, "VAT27": true,
}

// Product represents a good or service sold on invoices.
type Product struct {
	entity.Catalog

	// Type defines item category
	Type ProductType `db:"type" json:"type"`

	// Article is the item article/SKU
	Article *string `db:"article" json:"article,omitempty"`

	// UnitID is the default unit of measure
	UnitID *id.ID `db:"unit_id" json:"unitId,omitempty"`

	// VATCategory is the default Hungarian tax category for invoice lines
	VATCategory string `db:"vat_category" json:"vatCategory"`

	// VATPercent is the numeric rate backing a VAT% category; zero for
	// exemption and out-of-scope categories
	VATPercent types.Money `db:"vat_percent" json:"vatPercent"`

	// DefaultPrice is the suggested unit price for new invoice lines
	DefaultPrice types.Money `db:"default_price" json:"defaultPrice"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, productType ProductType) *Product {
	return &Product{
		Catalog:     entity.NewCatalog(code, name),
		Type:        productType,
		VATCategory: "VAT27",
		VATPercent:  types.MustMoney("27"),
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if p.Type != TypeGoods && p.Type != TypeService {
		return apperror.NewValidation("invalid product type").
			WithDetail("field", "type").
			WithDetail("value", string(p.Type))
	}

	if !vatCategories[p.VATCategory] {
		return apperror.NewValidation("invalid VAT tax category").
			WithDetail("field", "vatCategory").
			WithDetail("value", p.VATCategory)
	}

	if p.VATPercent.IsNegative() {
		return apperror.NewValidation("VAT percent cannot be negative").
			WithDetail("field", "vatPercent")
	}

	if p.DefaultPrice.IsNegative() {
		return apperror.NewValidation("default price cannot be negative").
			WithDetail("field", "defaultPrice")
	}

	return nil
}

// IsPhysical returns true if item has physical presence (not a service).
func (p *Product) IsPhysical() bool {
	return p.Type == TypeGoods
}
