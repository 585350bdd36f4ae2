// Package entity provides core domain entities.
package entity

import (
	"time"

	"navgate/internal/core/id"
)

// RegisterKind defines the type of register.
type RegisterKind string

const (
	// RegisterKindAccumulation tracks quantities and amounts over time
	RegisterKindAccumulation RegisterKind = "accumulation"
	// RegisterKindInformation stores dimensional facts, latest value wins
	RegisterKindInformation RegisterKind = "information"
)

// MovementBase contains common fields for all register entries.
// Entries are immutable - they are never updated, only appended.
type MovementBase struct {
	// LineID is unique identifier for this entry (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecorderID is the record that produced this entry
	RecorderID id.ID `db:"recorder_id" json:"recorderId"`

	// RecorderType is the recorder's type (e.g., "SubmissionTransaction")
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// Period is the business timestamp of the entry (for period-based queries)
	Period time.Time `db:"period" json:"period"`

	// CreatedAt is when the entry was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovementBase creates a new movement base with generated LineID.
func NewMovementBase(recorderID id.ID, recorderType string, period time.Time) MovementBase {
	return MovementBase{
		LineID:       id.New(),
		RecorderID:   recorderID,
		RecorderType: recorderType,
		Period:       period,
		CreatedAt:    time.Now().UTC(),
	}
}

// StatusMovement represents an entry in the submission history register
// (information register). One entry per state transition of a submission
// transaction, forming the user-visible audit trail.
type StatusMovement struct {
	MovementBase

	// Dimensions
	InvoiceID id.ID `db:"invoice_id" json:"invoiceId"`

	// Attributes
	FromState string `db:"from_state" json:"fromState"`
	ToState   string `db:"to_state" json:"toState"`
	Action    string `db:"action" json:"action"`
	Title     string `db:"title" json:"title,omitempty"`
	Actor     string `db:"actor" json:"actor,omitempty"`
}

// NewStatusMovement creates a new status history entry.
// The recorder is the submission transaction whose state changed.
func NewStatusMovement(
	transactionID id.ID,
	invoiceID id.ID,
	period time.Time,
	fromState, toState, action string,
) StatusMovement {
	return StatusMovement{
		MovementBase: NewMovementBase(transactionID, "SubmissionTransaction", period),
		InvoiceID:    invoiceID,
		FromState:    fromState,
		ToState:      toState,
		Action:       action,
	}
}

// WithActor sets the acting user (or "worker" for scheduled passes).
func (m StatusMovement) WithActor(actor string) StatusMovement {
	m.Actor = actor
	return m
}
