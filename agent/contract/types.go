package contract

import (
	"encoding/json"
)

// ChatRequest is one turn of the chat endpoint. Exactly one of Message or
// Approval must be set; Approval additionally requires SessionID.
type ChatRequest struct {
	Message   string    `json:"message,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Approval  *Approval `json:"approval,omitempty"`
}

// Approval is the user's decision on a pending tool run.
type Approval struct {
	Approved bool `json:"approved"`
}

// ChatResult is the outcome of one turn.
type ChatResult struct {
	Response           string         `json:"response"`
	SessionID          string         `json:"sessionId"`
	RequiresApproval   bool           `json:"requiresApproval"`
	PendingCalculation map[string]any `json:"pendingCalculation,omitempty"`
}

type OutcomeKind string

const (
	OutcomeCompleted        OutcomeKind = "completed"
	OutcomeApprovalRequired OutcomeKind = "approval_required"
)

// Outcome is what a gateway generation produced: either finished text, or a
// request to pause for human approval before running the declared tool.
type Outcome struct {
	Kind OutcomeKind

	// Text is the finished reply for completed outcomes, or the approval
	// prompt shown to the user for approval-required outcomes.
	Text string

	// Interrupt is an opaque descriptor the gateway needs to resume the
	// paused generation. The orchestrator stores it verbatim.
	Interrupt json.RawMessage

	// ToolInput is the raw tool input the model asked to run.
	ToolInput map[string]any

	// PriorResponse is the gateway-side conversation snapshot at the point
	// of interruption, opaque to everything but the gateway.
	PriorResponse json.RawMessage
}
