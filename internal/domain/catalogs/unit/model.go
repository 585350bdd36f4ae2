// Package unit provides the Unit catalog. Every unit maps to one of the
// authority's unit-of-measure codes so invoice lines can be reported with a
// schema-valid measure.
package unit

import (
	"context"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
)

// NAVCode is the authority's unit-of-measure code list. Units without a
// direct equivalent report CodeOwn plus their own symbol.
type NAVCode string

const (
	CodePiece       NAVCode = "PIECE"
	CodeKilogram    NAVCode = "KILOGRAM"
	CodeTon         NAVCode = "TON"
	CodeKWH         NAVCode = "KWH"
	CodeDay         NAVCode = "DAY"
	CodeHour        NAVCode = "HOUR"
	CodeMinute      NAVCode = "MINUTE"
	CodeMonth       NAVCode = "MONTH"
	CodeLitre       NAVCode = "LITRE"
	CodeKilometer   NAVCode = "KILOMETER"
	CodeCubicMeter  NAVCode = "CUBIC_METER"
	CodeMeter       NAVCode = "METER"
	CodeLinearMeter NAVCode = "LINEAR_METER"
	CodeCarton      NAVCode = "CARTON"
	CodePack        NAVCode = "PACK"
	CodeOwn         NAVCode = "OWN"
)

var navCodes = map[NAVCode]bool{
	CodePiece: true, CodeKilogram: true, CodeTon: true, CodeKWH: true,
	CodeDay: true, CodeHour: true, CodeMinute: true, CodeMonth: true,
	CodeLitre: true, CodeKilometer: true, CodeCubicMeter: true,
	CodeMeter: true, CodeLinearMeter: true, CodeCarton: true,
	CodePack: true, CodeOwn: true,
}

// Unit represents a measurement unit.
type Unit struct {
	entity.Catalog

	// NAVCode is the reported unit-of-measure code
	NAVCode NAVCode `db:"nav_code" json:"navCode"`

	// Symbol is the short symbol (e.g., "kg", "db"); reported as the
	// custom measure text when NAVCode is OWN
	Symbol string `db:"symbol" json:"symbol"`

	// Description is a free-form note
	Description *string `db:"description" json:"description,omitempty"`
}

// NewUnit creates a new Unit with required fields.
func NewUnit(code, name, symbol string, navCode NAVCode) *Unit {
	return &Unit{
		Catalog: entity.NewCatalog(code, name),
		NAVCode: navCode,
		Symbol:  symbol,
	}
}

// Validate implements entity.Validatable interface.
func (u *Unit) Validate(ctx context.Context) error {
	if err := u.Catalog.Validate(ctx); err != nil {
		return err
	}

	if u.Symbol == "" {
		return apperror.NewValidation("symbol is required").
			WithDetail("field", "symbol")
	}

	if !navCodes[u.NAVCode] {
		return apperror.NewValidation("invalid unit-of-measure code").
			WithDetail("field", "navCode").
			WithDetail("value", string(u.NAVCode))
	}

	return nil
}
