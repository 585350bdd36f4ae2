package invoice

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"navgate/internal/core/apperror"
	"navgate/internal/core/types"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/catalogs/partner"
)

// nsData is the reporting schema namespace of the submitted invoice payload.
const nsData = "http://schemas.nav.gov.hu/OSA/3.0/data"

// PartyValues carries the identity block of one invoice party.
type PartyValues struct {
	Name        string
	TaxNumber   string // 8-digit taxpayer id, empty for foreign/private parties
	VATCode     string // 1 digit
	CountyCode  string // 2 digits
	GroupID     string
	CommunityID string
	PostalCode  string
	City        string
	Street      string
	CountryCode string
	BankAccount string
	Private     bool
}

// LineValues is one fully resolved invoice line with its chain-global number.
type LineValues struct {
	LineNumber  int
	Description string
	Quantity    types.Money
	UnitPrice   types.Money
	Rounding    bool

	VATCategory string
	VATPercent  types.Money

	Net      types.Money
	VAT      types.Money
	Gross    types.Money
	NetHUF   types.Money
	VATHUF   types.Money
	GrossHUF types.Money
}

// PayloadValues is the fully resolved value map handed to the payload
// renderer: amounts, identities and per-line numbering with nothing left to
// look up. Rendering the same values must yield byte-identical XML, since
// timeout recovery matches submissions by exact payload comparison.
type PayloadValues struct {
	InvoiceNumber string
	IssueDate     time.Time
	DeliveryDate  time.Time
	PaymentDate   time.Time

	Seller PartyValues
	Buyer  PartyValues

	CurrencyCode string
	ExchangeRate types.Money

	// OriginalInvoiceNumber and ModificationIndex are set for modification
	// invoices only; a base invoice leaves them zero.
	OriginalInvoiceNumber string
	ModificationIndex     int

	Lines []LineValues

	Net      types.Money
	VAT      types.Money
	Gross    types.Money
	NetHUF   types.Money
	VATHUF   types.Money
	GrossHUF types.Money
}

// Renderer turns resolved payload values into the exact XML document
// submitted to the authority. Implementations must be deterministic.
type Renderer interface {
	Render(ctx context.Context, values PayloadValues) ([]byte, error)
}

// BuildPayloadValues resolves an invoice into the renderer value map.
// The invoice must be sequenced: line numbers and, for modifications, the
// chain index feed directly into the payload.
func BuildPayloadValues(inv *Invoice, chain *Chain, comp *company.Company, buyer *partner.Partner, currencyCode string) (PayloadValues, error) {
	if !inv.IsSequenced() {
		return PayloadValues{}, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"invoice must be sequenced before rendering").
			WithDetail("invoice", inv.Number)
	}

	v := PayloadValues{
		InvoiceNumber: inv.Number,
		IssueDate:     inv.Date,
		Seller:        sellerValues(comp),
		Buyer:         buyerValues(buyer),
		CurrencyCode:  currencyCode,
		ExchangeRate:  inv.ExchangeRate,
		Net:           inv.NetAmount,
		VAT:           inv.VATAmount,
		Gross:         inv.GrossAmount,
		NetHUF:        inv.NetAmountHUF,
		VATHUF:        inv.VATAmountHUF,
		GrossHUF:      inv.GrossAmountHUF,
	}
	if inv.DeliveryDate != nil {
		v.DeliveryDate = *inv.DeliveryDate
	} else {
		v.DeliveryDate = inv.Date
	}
	if inv.DueDate != nil {
		v.PaymentDate = *inv.DueDate
	}

	if inv.IsModification() {
		v.OriginalInvoiceNumber = chain.Base.Number
		v.ModificationIndex = *inv.ChainIndex
	}

	for _, l := range inv.Lines {
		if l.LineNumber == 0 {
			return PayloadValues{}, apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"invoice line is missing its chain-global number").
				WithDetail("invoice", inv.Number).
				WithDetail("lineNo", l.LineNo)
		}
		v.Lines = append(v.Lines, LineValues{
			LineNumber:  l.LineNumber,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Rounding:    l.Kind == LineKindRounding,
			VATCategory: l.VATCategory,
			VATPercent:  l.VATPercent,
			Net:         l.NetAmount,
			VAT:         l.VATAmount,
			Gross:       l.GrossAmount,
			NetHUF:      l.NetAmountHUF,
			VATHUF:      l.VATAmountHUF,
			GrossHUF:    l.GrossAmountHUF,
		})
	}

	return v, nil
}

func sellerValues(comp *company.Company) PartyValues {
	p := PartyValues{
		Name:        comp.Name,
		CountryCode: comp.Country,
	}
	p.TaxNumber, p.VATCode, p.CountyCode = splitTaxNumber(comp.VATNumber)
	if comp.GroupVATNumber != nil {
		p.GroupID = *comp.GroupVATNumber
	}
	if comp.FullName != nil && *comp.FullName != "" {
		p.Name = *comp.FullName
	}
	if comp.PostalCode != nil {
		p.PostalCode = *comp.PostalCode
	}
	if comp.City != nil {
		p.City = *comp.City
	}
	if comp.Street != nil {
		p.Street = *comp.Street
	}
	if comp.BankAccount != nil {
		p.BankAccount = *comp.BankAccount
	}
	return p
}

func buyerValues(buyer *partner.Partner) PartyValues {
	p := PartyValues{
		Name:        buyer.Name,
		CountryCode: buyer.Country,
		Private:     buyer.PrivatePerson,
	}
	if buyer.FullName != nil && *buyer.FullName != "" {
		p.Name = *buyer.FullName
	}
	// A private person's identity is never reported.
	if buyer.PrivatePerson {
		return p
	}
	if buyer.VATNumber != nil {
		p.TaxNumber, p.VATCode, p.CountyCode = splitTaxNumber(*buyer.VATNumber)
	}
	if buyer.GroupMemberTaxNumber != nil {
		p.GroupID = *buyer.GroupMemberTaxNumber
	}
	if buyer.CommunityVATNumber != nil {
		p.CommunityID = *buyer.CommunityVATNumber
	}
	if buyer.PostalCode != nil {
		p.PostalCode = *buyer.PostalCode
	}
	if buyer.City != nil {
		p.City = *buyer.City
	}
	if buyer.Street != nil {
		p.Street = *buyer.Street
	}
	return p
}

// splitTaxNumber splits 12345678-1-12 into its three reported elements.
func splitTaxNumber(vat string) (taxpayer, vatCode, county string) {
	parts := strings.SplitN(vat, "-", 3)
	taxpayer = parts[0]
	if len(parts) > 1 {
		vatCode = parts[1]
	}
	if len(parts) > 2 {
		county = parts[2]
	}
	return taxpayer, vatCode, county
}

// XMLRenderer renders the reporting-schema invoice document. Element order
// is fixed and no indentation is emitted, so equal values produce equal
// bytes.
type XMLRenderer struct{}

// NewXMLRenderer creates the default payload renderer.
func NewXMLRenderer() *XMLRenderer { return &XMLRenderer{} }

// Render implements Renderer.
func (r *XMLRenderer) Render(_ context.Context, v PayloadValues) ([]byte, error) {
	doc := etree.NewDocument()

	root := doc.CreateElement("InvoiceData")
	root.CreateAttr("xmlns", nsData)
	root.CreateElement("invoiceNumber").SetText(v.InvoiceNumber)
	root.CreateElement("invoiceIssueDate").SetText(formatDate(v.IssueDate))
	root.CreateElement("completenessIndicator").SetText("false")

	main := root.CreateElement("invoiceMain")
	invEl := main.CreateElement("invoice")

	if v.OriginalInvoiceNumber != "" {
		ref := invEl.CreateElement("invoiceReference")
		ref.CreateElement("originalInvoiceNumber").SetText(v.OriginalInvoiceNumber)
		ref.CreateElement("modifyWithoutMaster").SetText("false")
		ref.CreateElement("modificationIndex").SetText(formatInt(v.ModificationIndex))
	}

	head := invEl.CreateElement("invoiceHead")
	r.renderSupplier(head, v.Seller)
	r.renderCustomer(head, v.Buyer)
	r.renderDetail(head, v)
	r.renderLines(invEl, v)
	r.renderSummary(invEl, v)

	return serializePayload(doc)
}

func (r *XMLRenderer) renderSupplier(head *etree.Element, seller PartyValues) {
	sup := head.CreateElement("supplierInfo")
	renderTaxNumber(sup, "supplierTaxNumber", seller)
	if seller.GroupID != "" {
		g, _, _ := splitTaxNumber(seller.GroupID)
		sup.CreateElement("groupMemberTaxNumber").CreateElement("taxpayerId").SetText(g)
	}
	sup.CreateElement("supplierName").SetText(seller.Name)
	renderAddress(sup, "supplierAddress", seller)
	if seller.BankAccount != "" {
		sup.CreateElement("supplierBankAccountNumber").SetText(seller.BankAccount)
	}
}

func (r *XMLRenderer) renderCustomer(head *etree.Element, buyer PartyValues) {
	cust := head.CreateElement("customerInfo")
	switch {
	case buyer.Private:
		cust.CreateElement("customerVatStatus").SetText("PRIVATE_PERSON")
	case buyer.TaxNumber != "" || buyer.CommunityID != "":
		cust.CreateElement("customerVatStatus").SetText("DOMESTIC")
		vat := cust.CreateElement("customerVatData")
		if buyer.TaxNumber != "" {
			renderTaxNumber(vat, "customerTaxNumber", buyer)
		} else {
			vat.CreateElement("communityVatNumber").SetText(buyer.CommunityID)
		}
	default:
		cust.CreateElement("customerVatStatus").SetText("OTHER")
	}
	cust.CreateElement("customerName").SetText(buyer.Name)
	renderAddress(cust, "customerAddress", buyer)
}

func (r *XMLRenderer) renderDetail(head *etree.Element, v PayloadValues) {
	det := head.CreateElement("invoiceDetail")
	det.CreateElement("invoiceCategory").SetText("NORMAL")
	det.CreateElement("invoiceDeliveryDate").SetText(formatDate(v.DeliveryDate))
	det.CreateElement("currencyCode").SetText(v.CurrencyCode)
	det.CreateElement("exchangeRate").SetText(formatAmount(v.ExchangeRate, 6))
	if !v.PaymentDate.IsZero() {
		det.CreateElement("paymentDate").SetText(formatDate(v.PaymentDate))
	}
	det.CreateElement("invoiceAppearance").SetText("ELECTRONIC")
}

func (r *XMLRenderer) renderLines(invEl *etree.Element, v PayloadValues) {
	lines := invEl.CreateElement("invoiceLines")
	lines.CreateElement("mergedItemIndicator").SetText("false")
	for _, l := range v.Lines {
		line := lines.CreateElement("line")
		line.CreateElement("lineNumber").SetText(formatInt(l.LineNumber))
		if v.OriginalInvoiceNumber != "" {
			mod := line.CreateElement("lineModificationReference")
			mod.CreateElement("lineNumberReference").SetText(formatInt(l.LineNumber))
			mod.CreateElement("lineOperation").SetText("CREATE")
		}
		line.CreateElement("lineExpressionIndicator").SetText("true")
		line.CreateElement("lineDescription").SetText(l.Description)
		line.CreateElement("quantity").SetText(formatAmount(l.Quantity, 6))
		line.CreateElement("unitOfMeasure").SetText("PIECE")
		line.CreateElement("unitPrice").SetText(formatAmount(l.UnitPrice, 6))

		amounts := line.CreateElement("lineAmountsNormal")
		net := amounts.CreateElement("lineNetAmountData")
		net.CreateElement("lineNetAmount").SetText(formatAmount(l.Net, 2))
		net.CreateElement("lineNetAmountHUF").SetText(formatAmount(l.NetHUF, 2))
		rate := amounts.CreateElement("lineVatRate")
		renderVATRate(rate, l.VATCategory, l.VATPercent)
		vat := amounts.CreateElement("lineVatData")
		vat.CreateElement("lineVatAmount").SetText(formatAmount(l.VAT, 2))
		vat.CreateElement("lineVatAmountHUF").SetText(formatAmount(l.VATHUF, 2))
		gross := amounts.CreateElement("lineGrossAmountData")
		gross.CreateElement("lineGrossAmountNormal").SetText(formatAmount(l.Gross, 2))
		gross.CreateElement("lineGrossAmountNormalHUF").SetText(formatAmount(l.GrossHUF, 2))
	}
}

func (r *XMLRenderer) renderSummary(invEl *etree.Element, v PayloadValues) {
	sum := invEl.CreateElement("invoiceSummary")
	normal := sum.CreateElement("summaryNormal")

	// One summaryByVatRate block per distinct rate, in line order.
	type rateTotal struct {
		category string
		percent  types.Money
		net      types.Money
		netHUF   types.Money
		vat      types.Money
		vatHUF   types.Money
	}
	var order []string
	totals := map[string]*rateTotal{}
	for _, l := range v.Lines {
		key := l.VATCategory + "|" + l.VATPercent.String()
		t, ok := totals[key]
		if !ok {
			t = &rateTotal{category: l.VATCategory, percent: l.VATPercent}
			totals[key] = t
			order = append(order, key)
		}
		t.net = t.net.Add(l.Net)
		t.netHUF = t.netHUF.Add(l.NetHUF)
		t.vat = t.vat.Add(l.VAT)
		t.vatHUF = t.vatHUF.Add(l.VATHUF)
	}
	for _, key := range order {
		t := totals[key]
		byRate := normal.CreateElement("summaryByVatRate")
		renderVATRate(byRate.CreateElement("vatRate"), t.category, t.percent)
		netEl := byRate.CreateElement("vatRateNetData")
		netEl.CreateElement("vatRateNetAmount").SetText(formatAmount(t.net, 2))
		netEl.CreateElement("vatRateNetAmountHUF").SetText(formatAmount(t.netHUF, 2))
		vatEl := byRate.CreateElement("vatRateVatData")
		vatEl.CreateElement("vatRateVatAmount").SetText(formatAmount(t.vat, 2))
		vatEl.CreateElement("vatRateVatAmountHUF").SetText(formatAmount(t.vatHUF, 2))
	}

	normal.CreateElement("invoiceNetAmount").SetText(formatAmount(v.Net, 2))
	normal.CreateElement("invoiceNetAmountHUF").SetText(formatAmount(v.NetHUF, 2))
	normal.CreateElement("invoiceVatAmount").SetText(formatAmount(v.VAT, 2))
	normal.CreateElement("invoiceVatAmountHUF").SetText(formatAmount(v.VATHUF, 2))
	sum.CreateElement("invoiceGrossAmount").SetText(formatAmount(v.Gross, 2))
	sum.CreateElement("invoiceGrossAmountHUF").SetText(formatAmount(v.GrossHUF, 2))
}

func renderTaxNumber(parent *etree.Element, tag string, p PartyValues) {
	tn := parent.CreateElement(tag)
	tn.CreateElement("taxpayerId").SetText(p.TaxNumber)
	if p.VATCode != "" {
		tn.CreateElement("vatCode").SetText(p.VATCode)
	}
	if p.CountyCode != "" {
		tn.CreateElement("countyCode").SetText(p.CountyCode)
	}
}

func renderAddress(parent *etree.Element, tag string, p PartyValues) {
	addr := parent.CreateElement(tag).CreateElement("simpleAddress")
	addr.CreateElement("countryCode").SetText(p.CountryCode)
	addr.CreateElement("postalCode").SetText(p.PostalCode)
	addr.CreateElement("city").SetText(p.City)
	addr.CreateElement("additionalAddressDetail").SetText(p.Street)
}

// renderVATRate maps a tax category to the schema's rate element: VAT%
// categories report a numeric percentage, ATK an out-of-scope block, the
// rest an exemption block with the category as the reason code.
func renderVATRate(rate *etree.Element, category string, percent types.Money) {
	switch {
	case strings.HasPrefix(category, "VAT"):
		rate.CreateElement("vatPercentage").SetText(formatAmount(percent.Div(types.MustMoney("100")), 4))
	case category == VATCategoryATK:
		oos := rate.CreateElement("vatOutOfScope")
		oos.CreateElement("case").SetText(VATCategoryATK)
		oos.CreateElement("reason").SetText("Outside the scope of the VAT Act")
	default:
		ex := rate.CreateElement("vatExemption")
		ex.CreateElement("case").SetText(category)
		ex.CreateElement("reason").SetText("Exempt under the reported case")
	}
}

func formatDate(t time.Time) string { return t.UTC().Format("2006-01-02") }

func formatInt(n int) string { return strconv.Itoa(n) }

func formatAmount(m types.Money, places int32) string { return m.StringFixed(places) }

func serializePayload(doc *etree.Document) ([]byte, error) {
	doc.Indent(etree.NoIndent)
	return doc.WriteToBytes()
}
