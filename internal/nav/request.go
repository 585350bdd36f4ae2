package nav

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/gzip"
)

// XML namespaces of the Online Számla 3.0 API.
const (
	nsAPI    = "http://schemas.nav.gov.hu/OSA/3.0/api"
	nsCommon = "http://schemas.nav.gov.hu/NTCA/1.0/common"
	nsAnnul  = "http://schemas.nav.gov.hu/OSA/3.0/annul"
)

// requestBuilder assembles one signed request envelope. A builder is used for
// a single request and carries the freshly generated id and timestamp so the
// signature and the header always agree.
type requestBuilder struct {
	creds     Credentials
	software  Software
	requestID string
	timestamp time.Time
}

func newRequestBuilder(creds Credentials, software Software, now time.Time) *requestBuilder {
	return &requestBuilder{
		creds:     creds,
		software:  software,
		requestID: newRequestID(),
		timestamp: now.UTC(),
	}
}

// envelope creates the request document with header, user and software
// blocks. payloadHashes bind the submitted content into the signature;
// empty for query operations.
func (b *requestBuilder) envelope(rootName string, payloadHashes []string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(rootName)
	root.CreateAttr("xmlns", nsAPI)
	root.CreateAttr("xmlns:common", nsCommon)

	header := root.CreateElement("common:header")
	header.CreateElement("common:requestId").SetText(b.requestID)
	header.CreateElement("common:timestamp").SetText(formatTimestamp(b.timestamp))
	header.CreateElement("common:requestVersion").SetText("3.0")
	header.CreateElement("common:headerVersion").SetText("1.0")

	user := root.CreateElement("common:user")
	user.CreateElement("common:login").SetText(b.creds.Username)
	pw := user.CreateElement("common:passwordHash")
	pw.CreateAttr("cryptoType", "SHA-512")
	pw.SetText(passwordHash(b.creds.Password))
	user.CreateElement("common:taxNumber").SetText(b.creds.TaxNumber())
	sig := user.CreateElement("common:requestSignature")
	sig.CreateAttr("cryptoType", "SHA3-512")
	sig.SetText(requestSignature(b.creds.SignatureKey, b.requestID, b.timestamp, payloadHashes))

	software := root.CreateElement("software")
	software.CreateElement("softwareId").SetText(b.software.ID)
	software.CreateElement("softwareName").SetText(b.software.Name)
	software.CreateElement("softwareOperation").SetText("ONLINE_SERVICE")
	software.CreateElement("softwareMainVersion").SetText(b.software.Version)
	software.CreateElement("softwareDevName").SetText(b.software.DevName)
	software.CreateElement("softwareDevContact").SetText(b.software.DevContact)
	software.CreateElement("softwareDevCountryCode").SetText(b.software.DevCountry)
	if b.software.DevTaxNum != "" {
		software.CreateElement("softwareDevTaxNumber").SetText(b.software.DevTaxNum)
	}

	return doc, root
}

func (b *requestBuilder) tokenExchange() ([]byte, error) {
	doc, _ := b.envelope("TokenExchangeRequest", nil)
	return serialize(doc)
}

// manageInvoice builds the batch submission request. Payloads are gzip
// compressed when compress is set, then base64 encoded; the content hash of
// every item is computed over operation + base64 payload and bound into the
// request signature.
func (b *requestBuilder) manageInvoice(token string, operations []InvoiceOperation, compress bool) ([]byte, error) {
	hashes := make([]string, 0, len(operations))
	encoded := make([]string, 0, len(operations))
	for _, op := range operations {
		payload := op.Payload
		if compress {
			var err error
			if payload, err = gzipBytes(payload); err != nil {
				return nil, fmt.Errorf("compress invoice %d: %w", op.Index, err)
			}
		}
		b64 := base64.StdEncoding.EncodeToString(payload)
		encoded = append(encoded, b64)
		hashes = append(hashes, contentHash(string(op.Operation)+b64))
	}

	doc, root := b.envelope("ManageInvoiceRequest", hashes)
	root.CreateElement("exchangeToken").SetText(token)

	ops := root.CreateElement("invoiceOperations")
	ops.CreateElement("compressedContent").SetText(formatBool(compress))
	for i, op := range operations {
		item := ops.CreateElement("invoiceOperation")
		item.CreateElement("index").SetText(strconv.Itoa(op.Index))
		item.CreateElement("invoiceOperation").SetText(string(op.Operation))
		item.CreateElement("invoiceData").SetText(encoded[i])
	}

	return serialize(doc)
}

func (b *requestBuilder) queryTransactionStatus(transactionCode string, returnOriginal bool) ([]byte, error) {
	doc, root := b.envelope("QueryTransactionStatusRequest", nil)
	root.CreateElement("transactionId").SetText(transactionCode)
	root.CreateElement("returnOriginalRequest").SetText(formatBool(returnOriginal))
	return serialize(doc)
}

func (b *requestBuilder) queryTransactionList(from, to time.Time, page int) ([]byte, error) {
	doc, root := b.envelope("QueryTransactionListRequest", nil)
	root.CreateElement("page").SetText(strconv.Itoa(page))
	interval := root.CreateElement("insDate")
	interval.CreateElement("dateTimeFrom").SetText(formatTimestamp(from))
	interval.CreateElement("dateTimeTo").SetText(formatTimestamp(to))
	return serialize(doc)
}

func (b *requestBuilder) manageAnnulment(token string, operations []AnnulmentOperation, now time.Time) ([]byte, error) {
	hashes := make([]string, 0, len(operations))
	encoded := make([]string, 0, len(operations))
	for _, op := range operations {
		payload, err := annulmentPayload(op, now)
		if err != nil {
			return nil, fmt.Errorf("render annulment %d: %w", op.Index, err)
		}
		b64 := base64.StdEncoding.EncodeToString(payload)
		encoded = append(encoded, b64)
		hashes = append(hashes, contentHash("ANNUL"+b64))
	}

	doc, root := b.envelope("ManageAnnulmentRequest", hashes)
	root.CreateElement("exchangeToken").SetText(token)

	ops := root.CreateElement("annulmentOperations")
	for i, op := range operations {
		item := ops.CreateElement("annulmentOperation")
		item.CreateElement("index").SetText(strconv.Itoa(op.Index))
		item.CreateElement("annulmentOperation").SetText("ANNUL")
		item.CreateElement("invoiceAnnulment").SetText(encoded[i])
	}

	return serialize(doc)
}

// annulmentPayload renders the InvoiceAnnulment document embedded base64
// encoded in the batch. The annulment reference carries the invoice number,
// which timeout recovery later uses for matching.
func annulmentPayload(op AnnulmentOperation, now time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("InvoiceAnnulment")
	root.CreateAttr("xmlns", nsAnnul)
	root.CreateElement("annulmentReference").SetText(op.Reference)
	root.CreateElement("annulmentTimestamp").SetText(formatTimestamp(now))
	root.CreateElement("annulmentCode").SetText(string(op.Code))
	root.CreateElement("annulmentReason").SetText(op.Reason)

	return serialize(doc)
}

func serialize(doc *etree.Document) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
