package invoice

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"navgate/internal/core/id"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/catalogs/currency"
	"navgate/internal/domain/catalogs/partner"
)

var hungarianVATRE = regexp.MustCompile(`^\d{8}-[1-5]-\d{2}$`)

// CheckFailure is one failed pre-submission rule with the invoices it
// applies to, so callers can render a jump-to-records list.
type CheckFailure struct {
	Rule       string  `json:"rule"`
	Message    string  `json:"message"`
	InvoiceIDs []id.ID `json:"invoiceIds"`
}

// PartnerLookup resolves invoice buyers.
type PartnerLookup interface {
	GetByID(ctx context.Context, partnerID id.ID) (*partner.Partner, error)
}

// CurrencyLookup resolves invoice currencies.
type CurrencyLookup interface {
	GetByID(ctx context.Context, currencyID id.ID) (*currency.Currency, error)
}

// Checker runs the pre-submission rule set over a batch of invoices.
// Any failure blocks the whole batch before a single remote call is made.
type Checker struct {
	partners   PartnerLookup
	currencies CurrencyLookup
	guard      *GuardEvaluator
	now        func() time.Time
}

// NewChecker creates a pre-submission checker.
func NewChecker(partners PartnerLookup, currencies CurrencyLookup, guard *GuardEvaluator) *Checker {
	return &Checker{
		partners:   partners,
		currencies: currencies,
		guard:      guard,
		now:        time.Now,
	}
}

// Check runs all rules against the invoices of one company. Rule failures
// are collected, not short-circuited: the caller gets the complete list.
// The returned error covers lookup problems only, never rule outcomes.
func (c *Checker) Check(ctx context.Context, comp *company.Company, invoices []*Invoice) ([]CheckFailure, error) {
	collector := newFailureCollector()

	if !hungarianVATRE.MatchString(comp.VATNumber) {
		for _, inv := range invoices {
			collector.add("seller-tax-number",
				fmt.Sprintf("Seller tax number %q is not a valid Hungarian tax number", comp.VATNumber),
				inv.ID)
		}
	}

	today := c.now().UTC().Truncate(24 * time.Hour)

	for _, inv := range invoices {
		buyer, err := c.partners.GetByID(ctx, inv.PartnerID)
		if err != nil {
			return nil, err
		}
		curr, err := c.currencies.GetByID(ctx, inv.CurrencyID)
		if err != nil {
			return nil, err
		}
		isoCode := ""
		if curr.ISOCode != nil {
			isoCode = *curr.ISOCode
		}

		c.checkBuyer(collector, inv, buyer)
		c.checkCurrency(collector, inv, isoCode)

		if inv.Date.UTC().Truncate(24 * time.Hour).After(today) {
			collector.add("issue-date",
				"Issue date must not be in the future", inv.ID)
		}

		c.checkLines(collector, inv)

		if comp.GuardRule != nil && *comp.GuardRule != "" {
			pass, err := c.guard.Evaluate(*comp.GuardRule, inv, isoCode, buyer.Country)
			if err != nil {
				return nil, err
			}
			if !pass {
				collector.add("guard-rule",
					"Company guard rule blocked the invoice", inv.ID)
			}
		}
	}

	return collector.failures(), nil
}

func (c *Checker) checkBuyer(fc *failureCollector, inv *Invoice, buyer *partner.Partner) {
	if buyer.PrivatePerson {
		return
	}
	if buyer.IsDomestic() {
		if !buyer.HasTaxNumber() && (buyer.GroupMemberTaxNumber == nil || *buyer.GroupMemberTaxNumber == "") {
			fc.add("buyer-tax-number",
				fmt.Sprintf("Domestic buyer %q has no tax number", buyer.Name), inv.ID)
			return
		}
		if buyer.VATNumber != nil && *buyer.VATNumber != "" && !hungarianVATRE.MatchString(*buyer.VATNumber) {
			fc.add("buyer-tax-number",
				fmt.Sprintf("Buyer tax number %q is not a valid Hungarian tax number", *buyer.VATNumber), inv.ID)
		}
	}
}

func (c *Checker) checkCurrency(fc *failureCollector, inv *Invoice, isoCode string) {
	if isoCode == "HUF" {
		return
	}
	if !inv.ExchangeRate.IsPositive() {
		fc.add("currency-rate",
			fmt.Sprintf("Invoice in %s needs a positive HUF exchange rate", isoCode), inv.ID)
	}
}

func (c *Checker) checkLines(fc *failureCollector, inv *Invoice) {
	valid := make(map[string]bool, len(VATCategories))
	for _, cat := range VATCategories {
		valid[cat] = true
	}

	for _, line := range inv.Lines {
		switch line.Kind {
		case LineKindRounding:
			if line.VATCategory != VATCategoryATK {
				fc.add("line-vat-category",
					"Rounding line must use the ATK tax category", inv.ID)
			}
		default:
			if !valid[line.VATCategory] {
				fc.add("line-vat-category",
					fmt.Sprintf("Line %d has no valid Hungarian VAT tax category", line.LineNo), inv.ID)
			}
		}
	}
}

// failureCollector groups failures by (rule, message) so one broken rule
// over many invoices renders as a single row with all affected records.
type failureCollector struct {
	order []string
	byKey map[string]*CheckFailure
}

func newFailureCollector() *failureCollector {
	return &failureCollector{byKey: map[string]*CheckFailure{}}
}

func (fc *failureCollector) add(rule, message string, invoiceID id.ID) {
	key := rule + "\x00" + message
	f, ok := fc.byKey[key]
	if !ok {
		f = &CheckFailure{Rule: rule, Message: message}
		fc.byKey[key] = f
		fc.order = append(fc.order, key)
	}
	for _, existing := range f.InvoiceIDs {
		if existing == invoiceID {
			return
		}
	}
	f.InvoiceIDs = append(f.InvoiceIDs, invoiceID)
}

func (fc *failureCollector) failures() []CheckFailure {
	out := make([]CheckFailure, 0, len(fc.order))
	for _, key := range fc.order {
		out = append(out, *fc.byKey[key])
	}
	return out
}
