package contract

import (
	"context"

	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

// Gateway is the generative-AI collaborator. It owns the model-side
// conversation format and decides, via the declared tool, whether a given
// invocation must pause for human approval.
type Gateway interface {
	Generate(ctx context.Context, message string, history []statex.Message) (Outcome, error)
	Resume(ctx context.Context, pending *statex.PendingInterrupt, approved bool) (string, error)
}
