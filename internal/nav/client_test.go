package nav

import (
	"context"
	"crypto/aes"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navgate/internal/core/apperror"
)

var testCreds = Credentials{
	VAT:            "12345678-2-41",
	Mode:           ModeTest,
	Username:       "testuser1234",
	Password:       "hunter2hunter2",
	SignatureKey:   "ce-8f5e-215119fa7dd621DLMRHRLH2S",
	ReplacementKey: "53clic87g3ch721g",
}

func testClient(baseURL string) *Client {
	return NewClient(Config{
		Software: Software{
			ID:         "HU12345678-NAVGATE1",
			Name:       "navgate",
			Version:    "1.0",
			DevName:    "Navgate Kft.",
			DevContact: "dev@navgate.example",
			DevCountry: "HU",
		},
		Timeout:         2 * time.Second,
		SubmitTimeout:   2 * time.Second,
		BaseURLOverride: baseURL,
	})
}

// encryptECB mirrors the authority's AES-128-ECB + PKCS7 token encryption.
func encryptECB(t *testing.T, key, plaintext string) string {
	t.Helper()
	block, err := aes.NewCipher([]byte(key))
	require.NoError(t, err)

	pad := block.BlockSize() - len(plaintext)%block.BlockSize()
	plain := []byte(plaintext)
	for range pad {
		plain = append(plain, byte(pad))
	}
	encrypted := make([]byte, len(plain))
	for i := 0; i < len(plain); i += block.BlockSize() {
		block.Encrypt(encrypted[i:i+block.BlockSize()], plain[i:i+block.BlockSize()])
	}
	return base64.StdEncoding.EncodeToString(encrypted)
}

func okEnvelope(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<TokenExchangeResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>OK</funcCode></result>
  ` + inner + `
</TokenExchangeResponse>`
}

func TestTokenExchange(t *testing.T) {
	var requestBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokenExchange", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		requestBody, _ = io.ReadAll(r.Body)

		io.WriteString(w, okEnvelope(
			`<encodedExchangeToken>`+encryptECB(t, testCreds.ReplacementKey, "exchange-token-1")+`</encodedExchangeToken>
  <tokenValidityTo>2026-03-14T10:05:00.000Z</tokenValidityTo>`))
	}))
	defer srv.Close()

	token, err := testClient(srv.URL + "/").TokenExchange(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, "exchange-token-1", token.Value)
	assert.Equal(t, time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC), token.ValidUntil)

	// The request carries the signed header and the 8-digit tax number.
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(requestBody))
	assert.Equal(t, "12345678", doc.Root().FindElement("//taxNumber").Text())
	assert.Equal(t, "testuser1234", doc.Root().FindElement("//login").Text())
	assert.NotEmpty(t, doc.Root().FindElement("//requestSignature").Text())
	assert.Equal(t, "3.0", doc.Root().FindElement("//requestVersion").Text())
}

func TestManageInvoiceReturnsTransactionCode(t *testing.T) {
	var requestBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manageInvoice", r.URL.Path)
		requestBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<ManageInvoiceResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>OK</funcCode></result>
  <transactionId>4Q2XO8YCV1ZTJP2F</transactionId>
</ManageInvoiceResponse>`)
	}))
	defer srv.Close()

	code, err := testClient(srv.URL+"/").ManageInvoice(context.Background(), testCreds,
		Token{Value: "tok"},
		[]InvoiceOperation{
			{Index: 1, Operation: OperationCreate, Payload: []byte("<InvoiceData>A</InvoiceData>")},
			{Index: 2, Operation: OperationStorno, Payload: []byte("<InvoiceData>B</InvoiceData>")},
		})
	require.NoError(t, err)
	assert.Equal(t, "4Q2XO8YCV1ZTJP2F", code)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(requestBody))
	ops := doc.Root().FindElements("//invoiceOperation/index")
	require.Len(t, ops, 2)
	assert.Equal(t, "1", ops[0].Text())
	assert.Equal(t, "2", ops[1].Text())
	assert.Equal(t, "tok", doc.Root().FindElement("//exchangeToken").Text())
	assert.Equal(t, "false", doc.Root().FindElement("//compressedContent").Text())

	// Payloads travel base64 encoded.
	data := doc.Root().FindElements("//invoiceOperation/invoiceData")
	require.Len(t, data, 2)
	decoded, err := base64.StdEncoding.DecodeString(data[0].Text())
	require.NoError(t, err)
	assert.Equal(t, "<InvoiceData>A</InvoiceData>", string(decoded))
}

func TestManageInvoiceTimeoutIsDistinguished(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	client := testClient(srv.URL + "/")
	client.cfg.SubmitTimeout = 50 * time.Millisecond

	_, err := client.ManageInvoice(context.Background(), testCreds, Token{Value: "tok"},
		[]InvoiceOperation{{Index: 1, Operation: OperationCreate, Payload: []byte("<x/>")}})
	require.Error(t, err)
	assert.True(t, apperror.IsRemoteTimeout(err), "timeout must map to CodeRemoteTimeout, got: %v", err)
}

func TestErrorEnvelopeRaises(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<GeneralErrorResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>ERROR</funcCode><errorCode>INVALID_REQUEST</errorCode><message>bad</message></result>
  <technicalValidationMessages>
    <validationResultCode>ERROR</validationResultCode>
    <validationErrorCode>SCHEMA_VIOLATION</validationErrorCode>
    <message>Line 3: invalid element</message>
  </technicalValidationMessages>
</GeneralErrorResponse>`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL + "/").TokenExchange(context.Background(), testCreds)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeRemote, appErr.Code)
	assert.Contains(t, appErr.Details["errors"], "SCHEMA_VIOLATION: Line 3: invalid element")
}

func TestNonOKFuncCodeRaises(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<QueryTransactionStatusResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>ERROR</funcCode></result>
</QueryTransactionStatusResponse>`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL+"/").QueryTransactionStatus(context.Background(), testCreds, "TX1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-OK funcCode")
}

func TestQueryTransactionStatusParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<QueryTransactionStatusResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>OK</funcCode></result>
  <processingResults>
    <processingResult>
      <index>1</index>
      <invoiceStatus>DONE</invoiceStatus>
    </processingResult>
    <processingResult>
      <index>2</index>
      <invoiceStatus>DONE</invoiceStatus>
      <businessValidationMessages>
        <validationResultCode>WARN</validationResultCode>
        <validationErrorCode>INCORRECT_VAT_DATA</validationErrorCode>
        <message>Buyer VAT inactive</message>
      </businessValidationMessages>
    </processingResult>
    <annulmentData>
      <annulmentVerificationStatus>VERIFICATION_DONE</annulmentVerificationStatus>
    </annulmentData>
  </processingResults>
</QueryTransactionStatusResponse>`)
	}))
	defer srv.Close()

	status, err := testClient(srv.URL+"/").QueryTransactionStatus(context.Background(), testCreds, "TX1", false)
	require.NoError(t, err)
	require.Len(t, status.Results, 2)
	assert.Equal(t, "1", status.Results[0].Index)
	assert.Equal(t, StatusDone, status.Results[0].InvoiceStatus)
	assert.Empty(t, status.Results[0].Messages())
	assert.Equal(t, []string{"(WARN) INCORRECT_VAT_DATA: Buyer VAT inactive"}, status.Results[1].Messages())
	assert.Equal(t, AnnulmentVerificationDone, status.AnnulmentStatus)
}

func TestQueryTransactionStatusDecodesOriginalPayload(t *testing.T) {
	original := base64.StdEncoding.EncodeToString([]byte("<InvoiceData>orig</InvoiceData>"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<returnOriginalRequest>true</returnOriginalRequest>")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<QueryTransactionStatusResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>OK</funcCode></result>
  <processingResults>
    <processingResult>
      <index>1</index>
      <invoiceStatus>DONE</invoiceStatus>
      <originalRequest>`+original+`</originalRequest>
    </processingResult>
  </processingResults>
</QueryTransactionStatusResponse>`)
	}))
	defer srv.Close()

	status, err := testClient(srv.URL+"/").QueryTransactionStatus(context.Background(), testCreds, "TX1", true)
	require.NoError(t, err)
	require.Len(t, status.Results, 1)
	assert.Equal(t, "<InvoiceData>orig</InvoiceData>", string(status.Results[0].OriginalPayload))
}

func TestQueryTransactionList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "<page>2</page>")
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<QueryTransactionListResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>OK</funcCode></result>
  <transactionListResult>
    <availablePage>3</availablePage>
    <transaction>
      <insDate>2026-03-14T09:26:53.123Z</insDate>
      <insCusUser>testuser1234</insCusUser>
      <source>MGM</source>
      <transactionId>TX9</transactionId>
      <technicalAnnulment>false</technicalAnnulment>
    </transaction>
  </transactionListResult>
</QueryTransactionListResponse>`)
	}))
	defer srv.Close()

	from := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	list, err := testClient(srv.URL+"/").QueryTransactionList(context.Background(), testCreds, from, from.Add(10*time.Minute), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, list.AvailablePages)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, "TX9", list.Transactions[0].TransactionCode)
	assert.Equal(t, SourceMachine, list.Transactions[0].Source)
	assert.False(t, list.Transactions[0].Annulment)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 26, 53, 123_000_000, time.UTC), list.Transactions[0].SendTime)
}

func TestManageAnnulmentEmbedsReference(t *testing.T) {
	var requestBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<ManageAnnulmentResponse xmlns="http://schemas.nav.gov.hu/OSA/3.0/api">
  <result><funcCode>OK</funcCode></result>
  <transactionId>ANTX1</transactionId>
</ManageAnnulmentResponse>`)
	}))
	defer srv.Close()

	code, err := testClient(srv.URL+"/").ManageAnnulment(context.Background(), testCreds, Token{Value: "tok"},
		[]AnnulmentOperation{{Index: 1, Reference: "INV/2026/00042", Code: AnnulmentErraticData, Reason: "wrong buyer"}})
	require.NoError(t, err)
	assert.Equal(t, "ANTX1", code)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(requestBody))
	annulment := doc.Root().FindElement("//invoiceAnnulment")
	require.NotNil(t, annulment)
	decoded, err := base64.StdEncoding.DecodeString(annulment.Text())
	require.NoError(t, err)

	inner := etree.NewDocument()
	require.NoError(t, inner.ReadFromBytes(decoded))
	assert.Equal(t, "INV/2026/00042", inner.Root().FindElement("//annulmentReference").Text())
	assert.Equal(t, "ERRATIC_DATA", inner.Root().FindElement("//annulmentCode").Text())
	assert.Equal(t, "wrong buyer", inner.Root().FindElement("//annulmentReason").Text())
}
