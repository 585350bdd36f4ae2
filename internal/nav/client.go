package nav

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/beevik/etree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"navgate/internal/core/apperror"
	"navgate/pkg/logger"
)

var tracer = otel.Tracer("navgate/nav")

// Config tunes the protocol client.
type Config struct {
	Software Software

	// Timeout applies to query operations.
	Timeout time.Duration

	// SubmitTimeout applies to manageInvoice and manageAnnulment, which the
	// authority processes more slowly.
	SubmitTimeout time.Duration

	// CompressPayloads gzips invoice payloads before base64 encoding.
	CompressPayloads bool

	// BaseURLOverride replaces the environment base URL (tests only).
	BaseURLOverride string

	// Archiver, when set, receives every request/response exchange for
	// audit retention. Archiving must never fail the call.
	Archiver Archiver
}

// Archiver persists raw protocol exchanges. A nil response marks a call
// that never produced one (transport error or timeout).
type Archiver interface {
	Archive(ctx context.Context, operation string, request, response []byte)
}

// Client is the stateless Online Számla 3.0 protocol client. Safe for
// concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

// NewClient creates a protocol client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// TokenExchange obtains a short-lived token for submit operations. The token
// arrives encrypted and is decrypted with the credential's replacement key.
func (c *Client) TokenExchange(ctx context.Context, creds Credentials) (Token, error) {
	body, err := newRequestBuilder(creds, c.cfg.Software, c.now()).tokenExchange()
	if err != nil {
		return Token{}, apperror.NewInternal(err)
	}

	root, err := c.call(ctx, creds.Mode, "tokenExchange", body, c.cfg.Timeout)
	if err != nil {
		return Token{}, err
	}
	return parseTokenExchange(root, creds.ReplacementKey, c.now())
}

// ManageInvoice submits a batch of invoice operations and returns the
// transaction code assigned by the authority. A timeout here is the
// distinguished CodeRemoteTimeout error: the batch may have been received
// despite the client-side timeout, so the caller must enter timeout
// recovery, never plain retry.
func (c *Client) ManageInvoice(ctx context.Context, creds Credentials, token Token, operations []InvoiceOperation) (string, error) {
	body, err := newRequestBuilder(creds, c.cfg.Software, c.now()).
		manageInvoice(token.Value, operations, c.cfg.CompressPayloads)
	if err != nil {
		return "", apperror.NewInternal(err)
	}

	root, err := c.call(ctx, creds.Mode, "manageInvoice", body, c.cfg.SubmitTimeout)
	if err != nil {
		return "", err
	}
	return parseTransactionCode(root)
}

// QueryTransactionStatus queries the per-invoice processing results of a
// previously submitted batch. With includeOriginal the originally submitted
// payloads are echoed back for recovery matching.
func (c *Client) QueryTransactionStatus(ctx context.Context, creds Credentials, transactionCode string, includeOriginal bool) (*TransactionStatus, error) {
	body, err := newRequestBuilder(creds, c.cfg.Software, c.now()).
		queryTransactionStatus(transactionCode, includeOriginal)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	root, err := c.call(ctx, creds.Mode, "queryTransactionStatus", body, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return parseTransactionStatus(root, includeOriginal)
}

// QueryTransactionList pages through the transactions submitted for this
// taxpayer in the given interval.
func (c *Client) QueryTransactionList(ctx context.Context, creds Credentials, from, to time.Time, page int) (*TransactionList, error) {
	body, err := newRequestBuilder(creds, c.cfg.Software, c.now()).
		queryTransactionList(from, to, page)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	root, err := c.call(ctx, creds.Mode, "queryTransactionList", body, c.cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return parseTransactionList(root)
}

// ManageAnnulment submits a batch of technical annulments. Timeout handling
// matches ManageInvoice.
func (c *Client) ManageAnnulment(ctx context.Context, creds Credentials, token Token, operations []AnnulmentOperation) (string, error) {
	body, err := newRequestBuilder(creds, c.cfg.Software, c.now()).
		manageAnnulment(token.Value, operations, c.now())
	if err != nil {
		return "", apperror.NewInternal(err)
	}

	root, err := c.call(ctx, creds.Mode, "manageAnnulment", body, c.cfg.SubmitTimeout)
	if err != nil {
		return "", err
	}
	return parseTransactionCode(root)
}

// call performs one POST against the selected environment and runs the
// generic envelope validation. Credentials and tokens never reach the span
// attributes or logs.
func (c *Client) call(ctx context.Context, mode Mode, operation string, body []byte, timeout time.Duration) (*etree.Element, error) {
	ctx, span := tracer.Start(ctx, "nav."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("nav.operation", operation),
			attribute.String("nav.environment", string(mode)),
			attribute.Int("nav.request_bytes", len(body)),
		),
	)
	defer span.End()

	endpoint := mode.BaseURL() + operation
	if c.cfg.BaseURLOverride != "" {
		endpoint = c.cfg.BaseURLOverride + operation
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		c.archive(ctx, operation, body, nil)
		if isTimeout(err) {
			logger.Warn(ctx, "authority call timed out", "operation", operation)
			return nil, apperror.NewRemoteTimeout(operation)
		}
		logger.Error(ctx, "authority call failed", "operation", operation, "error", err)
		return nil, apperror.NewRemote("could not reach the authority").WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.archive(ctx, operation, body, nil)
		if isTimeout(err) {
			return nil, apperror.NewRemoteTimeout(operation)
		}
		return nil, apperror.NewRemote("could not read authority response").WithCause(err)
	}
	c.archive(ctx, operation, body, respBody)

	return parseResponse(respBody)
}

func (c *Client) archive(ctx context.Context, operation string, request, response []byte) {
	if c.cfg.Archiver == nil {
		return
	}
	c.cfg.Archiver.Archive(ctx, operation, request, response)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
