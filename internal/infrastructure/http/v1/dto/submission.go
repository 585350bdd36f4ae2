package dto

import (
	"time"

	"navgate/internal/core/entity"
	"navgate/internal/core/id"
	"navgate/internal/domain/invoice"
	"navgate/internal/domain/submission"
	"navgate/internal/nav"
)

// --- Request DTOs ---

// SubmitInvoicesRequest is the request body for submitting invoices.
type SubmitInvoicesRequest struct {
	InvoiceIDs []string `json:"invoiceIds" binding:"required,min=1"`
}

// ParseIDs parses the invoice IDs.
func (r *SubmitInvoicesRequest) ParseIDs() ([]id.ID, error) {
	return parseIDList(r.InvoiceIDs)
}

// CheckInvoicesRequest is the request body for the pre-submission dry run.
type CheckInvoicesRequest struct {
	InvoiceIDs []string `json:"invoiceIds" binding:"required,min=1"`
}

// ParseIDs parses the invoice IDs.
func (r *CheckInvoicesRequest) ParseIDs() ([]id.ID, error) {
	return parseIDList(r.InvoiceIDs)
}

func parseIDList(raw []string) ([]id.ID, error) {
	ids := make([]id.ID, 0, len(raw))
	for _, s := range raw {
		parsed, err := id.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}

// CancelInvoiceRequest is one annulment in a cancellation request.
type CancelInvoiceRequest struct {
	InvoiceID string            `json:"invoiceId" binding:"required"`
	Code      nav.AnnulmentCode `json:"code" binding:"required"`
	Reason    string            `json:"reason" binding:"required"`
}

// CancelInvoicesRequest is the request body for requesting technical
// annulments.
type CancelInvoicesRequest struct {
	Items []CancelInvoiceRequest `json:"items" binding:"required,min=1"`
}

// ToCancelRequests converts the request to domain cancel requests.
func (r *CancelInvoicesRequest) ToCancelRequests() ([]submission.CancelRequest, error) {
	out := make([]submission.CancelRequest, 0, len(r.Items))
	for _, item := range r.Items {
		invoiceID, err := id.Parse(item.InvoiceID)
		if err != nil {
			return nil, err
		}
		out = append(out, submission.CancelRequest{
			InvoiceID: invoiceID,
			Code:      item.Code,
			Reason:    item.Reason,
		})
	}
	return out, nil
}

// --- Response DTOs ---

// TransactionResponse is the response body for a submission transaction.
type TransactionResponse struct {
	ID              string                      `json:"id"`
	InvoiceID       string                      `json:"invoiceId"`
	CredentialsID   string                      `json:"credentialsId"`
	Operation       nav.Operation               `json:"operation,omitempty"`
	Annulment       bool                        `json:"annulment"`
	BatchIndex      int                         `json:"batchIndex"`
	TransactionCode string                      `json:"transactionCode,omitempty"`
	State           submission.State            `json:"state"`
	SendTime        *time.Time                  `json:"sendTime,omitempty"`
	Outcome         submission.OperationOutcome `json:"outcome"`
	Version         int                         `json:"version"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

// FromTransaction creates response DTO from domain entity. The submitted
// payload is never exposed here.
func FromTransaction(t *submission.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID.String(),
		InvoiceID:       t.InvoiceID.String(),
		CredentialsID:   t.CredentialsID.String(),
		Operation:       t.Operation,
		Annulment:       t.Annulment,
		BatchIndex:      t.BatchIndex,
		TransactionCode: t.TransactionCode,
		State:           t.State,
		SendTime:        t.SendTime,
		Outcome:         t.Outcome,
		Version:         t.Version,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// FromTransactions maps a transaction slice.
func FromTransactions(trs []*submission.Transaction) []*TransactionResponse {
	out := make([]*TransactionResponse, len(trs))
	for i, t := range trs {
		out[i] = FromTransaction(t)
	}
	return out
}

// CheckFailureResponse is one failed validation rule of the dry run.
type CheckFailureResponse struct {
	Rule       string   `json:"rule"`
	Message    string   `json:"message"`
	InvoiceIDs []string `json:"invoiceIds"`
}

// CheckResponse is the dry-run result.
type CheckResponse struct {
	OK       bool                   `json:"ok"`
	Failures []CheckFailureResponse `json:"failures,omitempty"`
}

// FromCheckFailures creates the dry-run response.
func FromCheckFailures(failures []invoice.CheckFailure) *CheckResponse {
	resp := &CheckResponse{OK: len(failures) == 0}
	for _, f := range failures {
		item := CheckFailureResponse{Rule: f.Rule, Message: f.Message}
		for _, invID := range f.InvoiceIDs {
			item.InvoiceIDs = append(item.InvoiceIDs, invID.String())
		}
		resp.Failures = append(resp.Failures, item)
	}
	return resp
}

// StatusMovementResponse is one status history entry.
type StatusMovementResponse struct {
	LineID    string    `json:"lineId"`
	InvoiceID string    `json:"invoiceId"`
	Period    time.Time `json:"period"`
	FromState string    `json:"fromState"`
	ToState   string    `json:"toState"`
	Action    string    `json:"action"`
	Title     string    `json:"title,omitempty"`
	Actor     string    `json:"actor,omitempty"`
}

// FromStatusMovements maps status history entries.
func FromStatusMovements(movements []entity.StatusMovement) []StatusMovementResponse {
	out := make([]StatusMovementResponse, len(movements))
	for i, m := range movements {
		out[i] = StatusMovementResponse{
			LineID:    m.LineID.String(),
			InvoiceID: m.InvoiceID.String(),
			Period:    m.Period,
			FromState: m.FromState,
			ToState:   m.ToState,
			Action:    m.Action,
			Title:     m.Title,
			Actor:     m.Actor,
		}
	}
	return out
}
