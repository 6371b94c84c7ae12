package advisornode

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
)

// ValidateRequest checks the turn's input shape: exactly one of message or
// approval, and approval only against a named session.
func ValidateRequest(in contractx.ChatRequest, nowFn func() time.Time) (*GraphState, error) {
	hasMessage := strings.TrimSpace(in.Message) != ""
	hasApproval := in.Approval != nil

	if hasMessage == hasApproval {
		return nil, fmt.Errorf("%w: exactly one of message or approval must be provided", contractx.ErrValidation)
	}
	if hasApproval && strings.TrimSpace(in.SessionID) == "" {
		return nil, fmt.Errorf("%w: approval requires a sessionId", contractx.ErrValidation)
	}

	return &GraphState{
		Req: in,
		Now: nowFn().UTC(),
	}, nil
}
