package advisornode

import (
	"context"
	"fmt"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

// ResolveApproval continues an interrupted generation with the user's
// decision. The synthetic user message mirrors the decision so the transcript
// reads naturally; the pending interrupt is cleared by omitting it from the
// delta.
func ResolveApproval(ctx context.Context, in *GraphState, gw contractx.Gateway) (*GraphState, error) {
	if in == nil || in.Session == nil || !in.Session.HasPendingInterrupt() {
		return nil, fmt.Errorf("%w: resolve requires a session awaiting approval", contractx.ErrNoPendingApproval)
	}

	approved := in.Req.Approval.Approved
	reply, err := gw.Resume(ctx, in.Session.PendingInterrupt, approved)
	if err != nil {
		return nil, err
	}

	userText := rejectMessage
	if approved {
		userText = approveMessage
	}

	in.Reply = reply
	in.RequiresApproval = false

	delta := statex.NewSession(in.SessionID, in.Now)
	delta.Append(
		statex.Message{Role: statex.RoleUser, Text: userText},
		statex.Message{Role: statex.RoleModel, Text: reply},
	)
	in.Delta = delta
	return in, nil
}
