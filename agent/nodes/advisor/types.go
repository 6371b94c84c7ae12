package advisornode

import (
	"time"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

// GraphState carries one chat turn through the advisor graph.
type GraphState struct {
	Req contractx.ChatRequest
	Now time.Time

	// SessionID is resolved by LoadSession: the existing id, or a freshly
	// generated one for new sessions.
	SessionID string
	Session   *statex.Session
	IsNew     bool

	// Filled by the gateway branch.
	Reply              string
	RequiresApproval   bool
	PendingCalculation map[string]any

	// Delta is the session carrying only this turn's new messages and the
	// next pending-interrupt value; the store merges it on Save.
	Delta *statex.Session
}

const (
	approveMessage = "Yes, proceed with the calculation"
	rejectMessage  = "No, cancel the calculation"
)
