// Package nav implements the client side of the Hungarian tax authority's
// Online Számla 3.0 invoice reporting API: token exchange, invoice batch
// submission, transaction status/list queries and technical annulment.
//
// The client is stateless; all per-company state (credentials) is passed
// into every call. Wire format is XML over HTTPS, built and parsed with etree.
package nav

import (
	"time"
)

// Mode selects the authority environment.
type Mode string

const (
	ModeProduction Mode = "production"
	ModeTest       Mode = "test"
)

// BaseURL returns the invoiceService v3 base URL for the mode.
func (m Mode) BaseURL() string {
	if m == ModeProduction {
		return "https://api.onlineszamla.nav.gov.hu/invoiceService/v3/"
	}
	return "https://api-test.onlineszamla.nav.gov.hu/invoiceService/v3/"
}

// Credentials is the per-company authentication material. Read-only to the
// client; owned by the credentials catalog.
type Credentials struct {
	// VAT is the full Hungarian tax number (12345678-1-12);
	// only its first 8 digits are sent in the request header.
	VAT            string
	Mode           Mode
	Username       string
	Password       string
	SignatureKey   string
	ReplacementKey string
}

// TaxNumber returns the 8-digit taxpayer id used in request headers.
func (c Credentials) TaxNumber() string {
	if len(c.VAT) < 8 {
		return c.VAT
	}
	return c.VAT[:8]
}

// Software identifies the reporting software in every request header.
// The values are registered with the authority and come from configuration.
type Software struct {
	ID         string
	Name       string
	Version    string
	DevName    string
	DevContact string
	DevCountry string
	DevTaxNum  string
}

// Token is the short-lived exchange token required by submit operations.
// The wire form is AES-128-ECB encrypted; Value is the decrypted token.
type Token struct {
	Value      string
	ValidUntil time.Time
}

// Operation classifies a submitted invoice's relationship to its chain
// predecessor.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationModify Operation = "MODIFY"
	OperationStorno Operation = "STORNO"
)

// InvoiceOperation is one invoice within a manageInvoice batch.
type InvoiceOperation struct {
	// Index is the 1-based position within the batch, echoed back by the
	// authority to correlate per-invoice results.
	Index     int
	Operation Operation
	// Payload is the raw invoice XML (not yet base64-encoded).
	Payload []byte
}

// AnnulmentCode is the reason category of a technical annulment.
type AnnulmentCode string

const (
	AnnulmentErraticData        AnnulmentCode = "ERRATIC_DATA"
	AnnulmentErraticNumber      AnnulmentCode = "ERRATIC_INVOICE_NUMBER"
	AnnulmentErraticIssueDate   AnnulmentCode = "ERRATIC_INVOICE_ISSUE_DATE"
	AnnulmentErraticHash        AnnulmentCode = "ERRATIC_ELECTRONIC_HASH_VALUE"
)

// AnnulmentOperation is one annulment within a manageAnnulment batch.
type AnnulmentOperation struct {
	Index int
	// Reference is the number of the invoice to annul.
	Reference string
	Code      AnnulmentCode
	Reason    string
}

// Invoice processing statuses reported by queryTransactionStatus.
const (
	StatusReceived   = "RECEIVED"
	StatusProcessing = "PROCESSING"
	StatusSaved      = "SAVED"
	StatusDone       = "DONE"
	StatusAborted    = "ABORTED"
)

// Annulment verification statuses.
const (
	AnnulmentNotVerifiable        = "NOT_VERIFIABLE"
	AnnulmentVerificationPending  = "VERIFICATION_PENDING"
	AnnulmentVerificationDone     = "VERIFICATION_DONE"
	AnnulmentVerificationRejected = "VERIFICATION_REJECTED"
)

// ValidationMessage is one business or technical validation message attached
// to a processing result.
type ValidationMessage struct {
	ResultCode string
	ErrorCode  string
	Message    string
}

// ProcessingResult is the authority's verdict on one invoice of a batch.
type ProcessingResult struct {
	// Index is the batch index as a string, exactly as returned.
	// String-compared against the local record's index (see matching rules).
	Index              string
	InvoiceStatus      string
	BusinessMessages   []ValidationMessage
	TechnicalMessages  []ValidationMessage
	// OriginalPayload is the originally submitted invoice XML, echoed back
	// when the status query requested it (timeout recovery matching).
	OriginalPayload []byte
}

// Messages returns all validation messages formatted for audit display.
func (r ProcessingResult) Messages() []string {
	out := make([]string, 0, len(r.BusinessMessages)+len(r.TechnicalMessages))
	for _, m := range append(append([]ValidationMessage{}, r.BusinessMessages...), r.TechnicalMessages...) {
		out = append(out, "("+m.ResultCode+") "+m.ErrorCode+": "+m.Message)
	}
	return out
}

// TransactionStatus is the full result of a queryTransactionStatus call.
type TransactionStatus struct {
	Results []ProcessingResult
	// AnnulmentStatus is set when the queried transaction was an annulment.
	AnnulmentStatus string
}

// TransactionListItem is one entry of a queryTransactionList page.
type TransactionListItem struct {
	TransactionCode string
	Annulment       bool
	Username        string
	// Source is the submission channel; batch machine uploads are "MGM".
	Source   string
	SendTime time.Time
}

// TransactionList is one page of the authority's transaction list.
type TransactionList struct {
	Transactions   []TransactionListItem
	AvailablePages int
}

// SourceMachine is the transaction-list source value of batch machine uploads.
const SourceMachine = "MGM"
