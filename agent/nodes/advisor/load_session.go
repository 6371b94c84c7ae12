package advisornode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

// LoadSession resolves the turn's session. A missing or unknown session id on
// a message turn starts a new session with a generated id; an approval turn
// demands an existing session that is actually awaiting approval.
func LoadSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	newID func() string,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	id := strings.TrimSpace(in.Req.SessionID)
	if id != "" {
		s, err := store.Load(ctx, id)
		switch {
		case err == nil:
			in.Session = s
		case errors.Is(err, statex.ErrSessionNotFound):
			// fall through: treated as a new session on message turns
		default:
			return nil, err
		}
	}

	if in.Req.Approval != nil {
		if in.Session == nil || in.Session.Phase() != statex.PhaseAwaitingApproval {
			return nil, fmt.Errorf("%w: session=%s", contractx.ErrNoPendingApproval, id)
		}
		in.SessionID = in.Session.SessionID
		return in, nil
	}

	if in.Session != nil {
		in.SessionID = in.Session.SessionID
		return in, nil
	}

	in.SessionID = newID()
	in.IsNew = true
	return in, nil
}
