// Package invoice provides the sales invoice document and its chain
// mechanics: gapless chain indices, chain-global line numbering, and the
// pre-submission payload data.
package invoice

import (
	"context"
	"time"

	"navgate/internal/core/apperror"
	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
)

// LineKind distinguishes product lines from the rounding adjustment line.
type LineKind string

const (
	LineKindProduct  LineKind = "product"
	LineKindRounding LineKind = "rounding"
)

// VAT tax categories of the Hungarian reporting schema. Product lines carry
// exactly one; the rounding line always uses ATK (outside the VAT Act).
var VATCategories = []string{
	"AAM", "TAM", "KBAET", "KBAUK", "EAM", "NAM", "ATK",
	"EUFAD37", "EUFADE", "EUE", "HO", "FAD",
	"VAT5", "VAT18", "VAT27",
}

// VATCategoryATK is the category of rounding lines.
const VATCategoryATK = "ATK"

// Invoice represents a sales invoice document.
//
// Chain semantics: a base invoice carries ChainIndex 0 and uses the field as
// the length counter of its chain (incremented under lock when modifications
// are sequenced). A modification invoice (credit/debit note) references its
// predecessor via ReversedEntryID and carries its 1-based position in the
// chain. A nil ChainIndex means the invoice has not been sequenced yet.
type Invoice struct {
	entity.Document

	// PartnerID is the buyer.
	PartnerID id.ID `db:"partner_id" json:"partnerId"`

	entity.CurrencyAware

	// DeliveryDate determines the currency rate date in Hungary.
	DeliveryDate *time.Time `db:"delivery_date" json:"deliveryDate,omitempty"`
	DueDate      *time.Time `db:"due_date" json:"dueDate,omitempty"`

	// ReversedEntryID links a modification invoice to its predecessor.
	ReversedEntryID *id.ID `db:"reversed_entry_id" json:"reversedEntryId,omitempty"`

	// ChainIndex: see type comment. Assigned exactly once at finalization.
	ChainIndex *int `db:"chain_index" json:"chainIndex,omitempty"`

	// Cancelled is set when a technical annulment was verified by the
	// authority. Distinct from DeletionMark: a cancelled invoice stays
	// visible as part of the audit trail.
	Cancelled bool `db:"cancelled" json:"cancelled"`

	// ExchangeRate is the invoice currency / HUF rate used for reporting.
	ExchangeRate types.Money `db:"exchange_rate" json:"exchangeRate"`

	// Totals in invoice currency and in HUF.
	NetAmount      types.Money `db:"net_amount" json:"netAmount"`
	VATAmount      types.Money `db:"vat_amount" json:"vatAmount"`
	GrossAmount    types.Money `db:"gross_amount" json:"grossAmount"`
	NetAmountHUF   types.Money `db:"net_amount_huf" json:"netAmountHuf"`
	VATAmountHUF   types.Money `db:"vat_amount_huf" json:"vatAmountHuf"`
	GrossAmountHUF types.Money `db:"gross_amount_huf" json:"grossAmountHuf"`

	// Lines: product lines plus at most one rounding line.
	Lines []Line `db:"-" json:"lines"`
}

// Line is one invoice line. LineNo is the display order within this invoice;
// LineNumber is the chain-global consecutive number assigned at finalization
// (0 = not yet assigned).
type Line struct {
	LineID     id.ID    `db:"line_id" json:"lineId"`
	LineNo     int      `db:"line_no" json:"lineNo"`
	LineNumber int      `db:"line_number" json:"lineNumber"`
	Kind       LineKind `db:"kind" json:"kind"`

	ProductID   *id.ID `db:"product_id" json:"productId,omitempty"`
	Description string `db:"description" json:"description"`

	Quantity  types.Money `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// VATCategory is the Hungarian tax category; exactly one per product line.
	VATCategory string      `db:"vat_category" json:"vatCategory"`
	VATPercent  types.Money `db:"vat_percent" json:"vatPercent"`

	NetAmount      types.Money `db:"net_amount" json:"netAmount"`
	VATAmount      types.Money `db:"vat_amount" json:"vatAmount"`
	GrossAmount    types.Money `db:"gross_amount" json:"grossAmount"`
	NetAmountHUF   types.Money `db:"net_amount_huf" json:"netAmountHuf"`
	VATAmountHUF   types.Money `db:"vat_amount_huf" json:"vatAmountHuf"`
	GrossAmountHUF types.Money `db:"gross_amount_huf" json:"grossAmountHuf"`
}

// NewInvoice creates a draft invoice.
func NewInvoice(companyID, partnerID, currencyID id.ID) *Invoice {
	inv := &Invoice{
		Document:  entity.NewDocument(companyID),
		PartnerID: partnerID,
	}
	inv.CurrencyID = currencyID
	inv.ExchangeRate = types.MustMoney("1")
	return inv
}

// IsModification reports whether this invoice modifies a predecessor.
func (i *Invoice) IsModification() bool {
	return i.ReversedEntryID != nil && !id.IsNil(*i.ReversedEntryID)
}

// IsSequenced reports whether chain sequencing already ran.
func (i *Invoice) IsSequenced() bool {
	return i.ChainIndex != nil
}

// ProductLines returns the product lines in display order.
func (i *Invoice) ProductLines() []Line {
	var out []Line
	for _, l := range i.Lines {
		if l.Kind == LineKindProduct {
			out = append(out, l)
		}
	}
	return out
}

// RoundingLine returns the rounding line, if any.
func (i *Invoice) RoundingLine() *Line {
	for idx := range i.Lines {
		if i.Lines[idx].Kind == LineKindRounding {
			return &i.Lines[idx]
		}
	}
	return nil
}

// MaxLineNumber returns the highest assigned chain-global line number, 0 if
// none was assigned yet.
func (i *Invoice) MaxLineNumber() int {
	max := 0
	for _, l := range i.Lines {
		if l.LineNumber > max {
			max = l.LineNumber
		}
	}
	return max
}

// AddLine appends a product line and recomputes totals.
func (i *Invoice) AddLine(productID *id.ID, description string, quantity, unitPrice, vatPercent types.Money, vatCategory string) {
	net := quantity.Mul(unitPrice).Round(2)
	vat := net.Mul(vatPercent).Div(types.MustMoney("100")).Round(2)

	line := Line{
		LineID:      id.New(),
		LineNo:      len(i.Lines) + 1,
		Kind:        LineKindProduct,
		ProductID:   productID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATCategory: vatCategory,
		VATPercent:  vatPercent,
		NetAmount:   net,
		VATAmount:   vat,
		GrossAmount: net.Add(vat),
	}
	i.Lines = append(i.Lines, line)
	i.recalculate()
}

// SetRounding sets or replaces the rounding line (cash rounding to whole HUF).
func (i *Invoice) SetRounding(amount types.Money) {
	if r := i.RoundingLine(); r != nil {
		r.UnitPrice = amount
		r.NetAmount = amount
		r.GrossAmount = amount
		i.recalculate()
		return
	}
	i.Lines = append(i.Lines, Line{
		LineID:      id.New(),
		LineNo:      len(i.Lines) + 1,
		Kind:        LineKindRounding,
		Description: "Rounding",
		Quantity:    types.MustMoney("1"),
		UnitPrice:   amount,
		VATCategory: VATCategoryATK,
		NetAmount:   amount,
		GrossAmount: amount,
	})
	i.recalculate()
}

// Recalculate recomputes invoice totals and the HUF mirror amounts from the
// lines and the exchange rate.
func (i *Invoice) Recalculate() { i.recalculate() }

func (i *Invoice) recalculate() {
	zero := types.Money{}
	i.NetAmount, i.VATAmount, i.GrossAmount = zero, zero, zero
	for idx := range i.Lines {
		l := &i.Lines[idx]
		l.NetAmountHUF = l.NetAmount.Mul(i.ExchangeRate).Round(0)
		l.VATAmountHUF = l.VATAmount.Mul(i.ExchangeRate).Round(0)
		l.GrossAmountHUF = l.GrossAmount.Mul(i.ExchangeRate).Round(0)
		i.NetAmount = i.NetAmount.Add(l.NetAmount)
		i.VATAmount = i.VATAmount.Add(l.VATAmount)
		i.GrossAmount = i.GrossAmount.Add(l.GrossAmount)
	}
	i.NetAmountHUF = i.NetAmount.Mul(i.ExchangeRate).Round(0)
	i.VATAmountHUF = i.VATAmount.Mul(i.ExchangeRate).Round(0)
	i.GrossAmountHUF = i.GrossAmount.Mul(i.ExchangeRate).Round(0)
}

// Validate implements entity.Validatable.
func (i *Invoice) Validate(ctx context.Context) error {
	if err := i.Document.Validate(ctx); err != nil {
		return err
	}
	if err := i.ValidateCurrency(ctx); err != nil {
		return err
	}
	if id.IsNil(i.PartnerID) {
		return apperror.NewValidation("partner is required").
			WithDetail("field", "partnerId")
	}
	if len(i.ProductLines()) == 0 {
		return apperror.NewValidation("at least one product line is required").
			WithDetail("field", "lines")
	}

	rounding := 0
	for idx, l := range i.Lines {
		if l.Kind == LineKindRounding {
			rounding++
			continue
		}
		if l.Quantity.IsZero() {
			return apperror.NewValidation("quantity must not be zero").
				WithDetail("field", "lines").
				WithDetail("lineNo", idx+1)
		}
	}
	if rounding > 1 {
		return apperror.NewValidation("at most one rounding line is allowed").
			WithDetail("field", "lines")
	}

	return nil
}
