// Package currency provides the Currency catalog. Invoices are reported to
// the authority in HUF terms, so every non-HUF currency carries a rate
// estimation input for the payload value map.
package currency

import (
	"context"
	"regexp"
	"time"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/types"
)

var isoCodeRE = regexp.MustCompile(`^[A-Z]{3}$`)

// Currency represents a monetary unit.
type Currency struct {
	entity.Catalog

	// ISOCode is the ISO 4217 alphabetic code (e.g., "HUF", "EUR")
	ISOCode *string `db:"iso_code" json:"isoCode"`

	// ISONumericCode is the ISO 4217 numeric code (e.g., 348, 978)
	ISONumericCode *string `db:"iso_numeric_code" json:"isoNumericCode,omitempty"`

	// Symbol is the currency symbol (e.g., "Ft", "€")
	Symbol *string `db:"symbol" json:"symbol"`

	// DecimalPlaces is the number of decimal places (0 for HUF)
	DecimalPlaces int `db:"decimal_places" json:"decimalPlaces"`

	// IsBase indicates the accounting currency (HUF for Hungarian companies)
	IsBase bool `db:"is_base" json:"isBase"`

	// RateToHUF is the default HUF conversion rate suggested for new
	// invoices in this currency. The invoice stores its own effective rate;
	// this is only the estimation input.
	RateToHUF types.Money `db:"rate_to_huf" json:"rateToHuf"`

	// RateDate is when RateToHUF was last refreshed
	RateDate *time.Time `db:"rate_date" json:"rateDate,omitempty"`
}

// NewCurrency creates a new Currency with required fields.
func NewCurrency(code, name string, isoCode, symbol *string) *Currency {
	return &Currency{
		Catalog:       entity.NewCatalog(code, name),
		ISOCode:       isoCode,
		Symbol:        symbol,
		DecimalPlaces: 2,
		RateToHUF:     types.MustMoney("1"),
	}
}

// Validate implements entity.Validatable interface.
func (c *Currency) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.ISOCode == nil || !isoCodeRE.MatchString(*c.ISOCode) {
		return apperror.NewValidation("ISO code must be 3 uppercase letters").
			WithDetail("field", "isoCode")
	}

	if c.DecimalPlaces < 0 || c.DecimalPlaces > 8 {
		return apperror.NewValidation("decimal places must be between 0 and 8").
			WithDetail("field", "decimalPlaces")
	}

	if c.RateToHUF.IsNegative() {
		return apperror.NewValidation("rate to HUF must not be negative").
			WithDetail("field", "rateToHuf")
	}

	return nil
}

// IsHUF reports whether this is the forint itself.
func (c *Currency) IsHUF() bool {
	return c.ISOCode != nil && *c.ISOCode == "HUF"
}

// ToHUF converts an amount using the stored estimation rate, rounded to
// whole forints.
func (c *Currency) ToHUF(amount types.Money) types.Money {
	if c.IsHUF() {
		return amount.Round(0)
	}
	return amount.Mul(c.RateToHUF).Round(0)
}
