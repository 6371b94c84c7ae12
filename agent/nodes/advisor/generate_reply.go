package advisornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

// GenerateReply runs a message turn against the gateway with the session's
// full history as context and shapes the turn's session delta from the
// outcome.
func GenerateReply(ctx context.Context, in *GraphState, gw contractx.Gateway) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	var history []statex.Message
	if in.Session != nil {
		history = in.Session.Messages
	}
	message := strings.TrimSpace(in.Req.Message)

	out, err := gw.Generate(ctx, message, history)
	if err != nil {
		return nil, err
	}

	delta := statex.NewSession(in.SessionID, in.Now)
	delta.Append(
		statex.Message{Role: statex.RoleUser, Text: message},
		statex.Message{Role: statex.RoleModel, Text: out.Text},
	)

	switch out.Kind {
	case contractx.OutcomeApprovalRequired:
		delta.PendingInterrupt = &statex.PendingInterrupt{
			Interrupt:     out.Interrupt,
			ToolInput:     out.ToolInput,
			PriorResponse: out.PriorResponse,
		}
		in.RequiresApproval = true
		in.PendingCalculation = out.ToolInput
	case contractx.OutcomeCompleted:
		// no pending interrupt; a stale one on the stored session is
		// cleared by the merge
	default:
		return nil, fmt.Errorf("%w: unknown outcome kind %q", contractx.ErrModelInvoke, out.Kind)
	}

	in.Reply = out.Text
	in.Delta = delta
	return in, nil
}
