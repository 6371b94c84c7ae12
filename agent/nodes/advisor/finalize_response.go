package advisornode

import (
	"fmt"
	"strings"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
)

// FinalizeResponse shapes the turn's outward result.
func FinalizeResponse(in *GraphState) (contractx.ChatResult, error) {
	if in == nil {
		return contractx.ChatResult{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return contractx.ChatResult{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrEmptyModelReply)
	}

	return contractx.ChatResult{
		Response:           reply,
		SessionID:          in.SessionID,
		RequiresApproval:   in.RequiresApproval,
		PendingCalculation: in.PendingCalculation,
	}, nil
}
