package dto

import (
	"time"

	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/core/types"
	"navgate/internal/domain/invoice"
)

// --- Request DTOs ---

// InvoiceLineRequest is one product line in an invoice write request.
type InvoiceLineRequest struct {
	ProductID   *string     `json:"productId"`
	Description string      `json:"description" binding:"required"`
	Quantity    types.Money `json:"quantity" binding:"required"`
	UnitPrice   types.Money `json:"unitPrice"`
	VATCategory string      `json:"vatCategory" binding:"required"`
	VATPercent  types.Money `json:"vatPercent"`
}

// CreateInvoiceRequest is the request body for creating a draft invoice.
type CreateInvoiceRequest struct {
	CompanyID       string               `json:"companyId" binding:"required"`
	PartnerID       string               `json:"partnerId" binding:"required"`
	CurrencyID      string               `json:"currencyId" binding:"required"`
	Date            *time.Time           `json:"date"`
	DeliveryDate    *time.Time           `json:"deliveryDate"`
	DueDate         *time.Time           `json:"dueDate"`
	ReversedEntryID *string              `json:"reversedEntryId"`
	ExchangeRate    *types.Money         `json:"exchangeRate"`
	Rounding        *types.Money         `json:"rounding"`
	Comment         string               `json:"comment"`
	Lines           []InvoiceLineRequest `json:"lines" binding:"required,min=1"`
	Attributes      entity.Attributes    `json:"attributes"`
}

// ToEntity converts DTO to a draft invoice with recomputed totals.
func (r *CreateInvoiceRequest) ToEntity() (*invoice.Invoice, error) {
	companyID, err := id.Parse(r.CompanyID)
	if err != nil {
		return nil, err
	}
	partnerID, err := id.Parse(r.PartnerID)
	if err != nil {
		return nil, err
	}
	currencyID, err := id.Parse(r.CurrencyID)
	if err != nil {
		return nil, err
	}

	inv := invoice.NewInvoice(companyID, partnerID, currencyID)
	if r.Date != nil {
		inv.Date = *r.Date
	}
	inv.DeliveryDate = r.DeliveryDate
	inv.DueDate = r.DueDate
	if r.ReversedEntryID != nil {
		reversedID, err := id.Parse(*r.ReversedEntryID)
		if err != nil {
			return nil, err
		}
		inv.ReversedEntryID = &reversedID
	}
	if r.ExchangeRate != nil {
		inv.ExchangeRate = *r.ExchangeRate
	}
	inv.Comment = r.Comment
	inv.Attributes = r.Attributes

	if err := applyLines(inv, r.Lines); err != nil {
		return nil, err
	}
	if r.Rounding != nil {
		inv.SetRounding(*r.Rounding)
	}
	return inv, nil
}

// UpdateInvoiceRequest is the request body for updating a draft invoice.
// Lines are replaced wholesale; totals are recomputed server-side.
type UpdateInvoiceRequest struct {
	PartnerID    string               `json:"partnerId" binding:"required"`
	CurrencyID   string               `json:"currencyId" binding:"required"`
	Date         *time.Time           `json:"date"`
	DeliveryDate *time.Time           `json:"deliveryDate"`
	DueDate      *time.Time           `json:"dueDate"`
	ExchangeRate *types.Money         `json:"exchangeRate"`
	Rounding     *types.Money         `json:"rounding"`
	Comment      string               `json:"comment"`
	Lines        []InvoiceLineRequest `json:"lines" binding:"required,min=1"`
	Attributes   entity.Attributes    `json:"attributes"`
	Version      int                  `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateInvoiceRequest) ApplyTo(inv *invoice.Invoice) error {
	partnerID, err := id.Parse(r.PartnerID)
	if err != nil {
		return err
	}
	currencyID, err := id.Parse(r.CurrencyID)
	if err != nil {
		return err
	}

	inv.PartnerID = partnerID
	inv.CurrencyID = currencyID
	if r.Date != nil {
		inv.Date = *r.Date
	}
	inv.DeliveryDate = r.DeliveryDate
	inv.DueDate = r.DueDate
	if r.ExchangeRate != nil {
		inv.ExchangeRate = *r.ExchangeRate
	}
	inv.Comment = r.Comment
	inv.Attributes = r.Attributes
	inv.Version = r.Version

	inv.Lines = nil
	if err := applyLines(inv, r.Lines); err != nil {
		return err
	}
	if r.Rounding != nil {
		inv.SetRounding(*r.Rounding)
	}
	return nil
}

func applyLines(inv *invoice.Invoice, lines []InvoiceLineRequest) error {
	for _, l := range lines {
		var productID *id.ID
		if l.ProductID != nil {
			parsed, err := id.Parse(*l.ProductID)
			if err != nil {
				return err
			}
			productID = &parsed
		}
		inv.AddLine(productID, l.Description, l.Quantity, l.UnitPrice, l.VATPercent, l.VATCategory)
	}
	return nil
}

// --- Response DTOs ---

// InvoiceLineResponse is one line in an invoice response.
type InvoiceLineResponse struct {
	LineID         string           `json:"lineId"`
	LineNo         int              `json:"lineNo"`
	LineNumber     int              `json:"lineNumber,omitempty"`
	Kind           invoice.LineKind `json:"kind"`
	ProductID      *string          `json:"productId,omitempty"`
	Description    string           `json:"description"`
	Quantity       types.Money      `json:"quantity"`
	UnitPrice      types.Money      `json:"unitPrice"`
	VATCategory    string           `json:"vatCategory"`
	VATPercent     types.Money      `json:"vatPercent"`
	NetAmount      types.Money      `json:"netAmount"`
	VATAmount      types.Money      `json:"vatAmount"`
	GrossAmount    types.Money      `json:"grossAmount"`
	NetAmountHUF   types.Money      `json:"netAmountHuf"`
	VATAmountHUF   types.Money      `json:"vatAmountHuf"`
	GrossAmountHUF types.Money      `json:"grossAmountHuf"`
}

// InvoiceResponse is the response body for an invoice.
type InvoiceResponse struct {
	DocumentResponse
	PartnerID       string                `json:"partnerId"`
	CurrencyID      string                `json:"currencyId"`
	DeliveryDate    *time.Time            `json:"deliveryDate,omitempty"`
	DueDate         *time.Time            `json:"dueDate,omitempty"`
	ReversedEntryID *string               `json:"reversedEntryId,omitempty"`
	ChainIndex      *int                  `json:"chainIndex,omitempty"`
	Cancelled       bool                  `json:"cancelled"`
	ExchangeRate    types.Money           `json:"exchangeRate"`
	NetAmount       types.Money           `json:"netAmount"`
	VATAmount       types.Money           `json:"vatAmount"`
	GrossAmount     types.Money           `json:"grossAmount"`
	NetAmountHUF    types.Money           `json:"netAmountHuf"`
	VATAmountHUF    types.Money           `json:"vatAmountHuf"`
	GrossAmountHUF  types.Money           `json:"grossAmountHuf"`
	Lines           []InvoiceLineResponse `json:"lines,omitempty"`
}

// FromInvoice creates response DTO from domain entity.
func FromInvoice(inv *invoice.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		DocumentResponse: FromDocument(inv.Document),
		PartnerID:        inv.PartnerID.String(),
		CurrencyID:       inv.CurrencyID.String(),
		DeliveryDate:     inv.DeliveryDate,
		DueDate:          inv.DueDate,
		ChainIndex:       inv.ChainIndex,
		Cancelled:        inv.Cancelled,
		ExchangeRate:     inv.ExchangeRate,
		NetAmount:        inv.NetAmount,
		VATAmount:        inv.VATAmount,
		GrossAmount:      inv.GrossAmount,
		NetAmountHUF:     inv.NetAmountHUF,
		VATAmountHUF:     inv.VATAmountHUF,
		GrossAmountHUF:   inv.GrossAmountHUF,
	}
	if inv.ReversedEntryID != nil {
		s := inv.ReversedEntryID.String()
		resp.ReversedEntryID = &s
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, fromInvoiceLine(l))
	}
	return resp
}

func fromInvoiceLine(l invoice.Line) InvoiceLineResponse {
	line := InvoiceLineResponse{
		LineID:         l.LineID.String(),
		LineNo:         l.LineNo,
		LineNumber:     l.LineNumber,
		Kind:           l.Kind,
		Description:    l.Description,
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		VATCategory:    l.VATCategory,
		VATPercent:     l.VATPercent,
		NetAmount:      l.NetAmount,
		VATAmount:      l.VATAmount,
		GrossAmount:    l.GrossAmount,
		NetAmountHUF:   l.NetAmountHUF,
		VATAmountHUF:   l.VATAmountHUF,
		GrossAmountHUF: l.GrossAmountHUF,
	}
	if l.ProductID != nil {
		s := l.ProductID.String()
		line.ProductID = &s
	}
	return line
}
