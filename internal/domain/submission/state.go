// Package submission implements the NAV submission lifecycle: the
// transaction state machine, batch coordination, status polling and the
// timeout-recovery reconciliation pass.
package submission

import (
	"navgate/internal/core/apperror"
)

// State is the submission transaction state.
type State string

const (
	// StateToSend: created or reset for (re)submission, nothing sent yet.
	StateToSend State = "to_send"
	// StateUnsent: aborted before any remote effect; non-blocking terminal.
	StateUnsent State = "unsent"
	// StateTokenError: token exchange failed; upload can be retried.
	StateTokenError State = "token_error"
	// StateSent: batch accepted by the authority, awaiting processing.
	StateSent State = "sent"
	// StateSendError: upload failed with a definitive remote error.
	StateSendError State = "send_error"
	// StateSendTimeout: upload timed out; the invoice's fate is unknown
	// until the recovery pass reconciles it.
	StateSendTimeout State = "send_timeout"
	// StateConfirmed: accepted without messages; blocking terminal.
	StateConfirmed State = "confirmed"
	// StateConfirmedWarning: accepted with validation messages; blocking.
	StateConfirmedWarning State = "confirmed_warning"
	// StateRejected: definitively refused; the invoice may be resubmitted
	// under a new transaction.
	StateRejected State = "rejected"
	// StateCancelSent: annulment submitted, awaiting processing.
	StateCancelSent State = "cancel_sent"
	// StateCancelTimeout: annulment submission timed out.
	StateCancelTimeout State = "cancel_timeout"
	// StateCancelPending: annulment processed, awaiting manual verification
	// on the authority's portal.
	StateCancelPending State = "cancel_pending"
	// StateCancelled: annulment verified; the invoice number is released.
	StateCancelled State = "cancelled"
	// StateQueryError: the authority returned an uninterpretable status.
	StateQueryError State = "query_error"
)

// Action is a state machine operation.
type Action string

const (
	ActionUpload         Action = "upload"
	ActionAbort          Action = "abort"
	ActionQueryStatus    Action = "query_status"
	ActionRecoverTimeout Action = "recover_timeout"
	ActionRequestCancel  Action = "request_cancel"
)

// startStates is the guard table: the states an action may start from.
// An action attempted outside its start set is a logic error, never a
// retryable condition.
var startStates = map[Action][]State{
	ActionUpload:         {StateToSend, StateTokenError},
	ActionAbort:          {StateToSend, StateTokenError},
	ActionQueryStatus:    {StateSent, StateCancelSent, StateCancelPending, StateQueryError},
	ActionRecoverTimeout: {StateSendTimeout, StateCancelTimeout},
	ActionRequestCancel:  {StateConfirmed, StateConfirmedWarning},
}

// Guard verifies that the action may start from the given state.
func Guard(action Action, state State) error {
	for _, s := range startStates[action] {
		if s == state {
			return nil
		}
	}
	return apperror.NewStateGuard(string(action), string(state))
}

// nonBlockingTerminal holds the states that release the invoice: the
// authority holds no reservation of the invoice number, so a new
// transaction may be opened. A definitive send error belongs here too:
// the batch never reached the processing queue, and the invoice stays
// resubmittable once the cause is fixed.
var nonBlockingTerminal = map[State]bool{
	StateUnsent:    true,
	StateRejected:  true,
	StateSendError: true,
}

// IsActive reports whether a transaction in this state still binds its
// invoice. Any state that could still resolve to a NAV-side confirmed
// reservation counts as active.
func (s State) IsActive() bool {
	return !nonBlockingTerminal[s]
}

// IsTerminal reports whether the state machine is done with this
// transaction: no action can advance it further.
func (s State) IsTerminal() bool {
	switch s {
	case StateUnsent, StateConfirmed, StateRejected, StateCancelled, StateSendError:
		return true
	}
	return false
}

// IsBlocking reports whether the authority permanently reserves the invoice
// number in this state. A blocking invoice can only move forward through
// cancellation, never back to draft.
func (s State) IsBlocking() bool {
	switch s {
	case StateConfirmed, StateConfirmedWarning,
		StateCancelSent, StateCancelTimeout, StateCancelPending, StateCancelled:
		return true
	}
	return false
}

// IsCancelFlow reports whether the state belongs to the annulment sub-flow.
func (s State) IsCancelFlow() bool {
	switch s {
	case StateCancelSent, StateCancelTimeout, StateCancelPending, StateCancelled:
		return true
	}
	return false
}

// Severity classifies an operation outcome.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
)

// OperationOutcome is the structured message bundle recorded on a
// transaction after each action, surfaced to users as part of the audit
// trail.
type OperationOutcome struct {
	Title    string   `json:"title"`
	Errors   []string `json:"errors,omitempty"`
	Severity Severity `json:"severity"`
}

// InfoOutcome builds a non-blocking informational outcome.
func InfoOutcome(title string, errors ...string) OperationOutcome {
	return OperationOutcome{Title: title, Errors: errors, Severity: SeverityInfo}
}

// WarningOutcome builds a warning outcome.
func WarningOutcome(title string, errors ...string) OperationOutcome {
	return OperationOutcome{Title: title, Errors: errors, Severity: SeverityWarning}
}

// BlockingOutcome builds a blocking outcome.
func BlockingOutcome(title string, errors ...string) OperationOutcome {
	return OperationOutcome{Title: title, Errors: errors, Severity: SeverityBlocking}
}
