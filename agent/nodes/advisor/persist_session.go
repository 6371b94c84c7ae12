package advisornode

import (
	"context"
	"fmt"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

// PersistSession writes the turn's delta in a single Save, after the gateway
// call has already succeeded. A failing turn never reaches this node, so the
// store sees no partial history.
func PersistSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Delta == nil {
		return nil, fmt.Errorf("%w: turn delta is nil", contractx.ErrValidation)
	}

	in.Delta.Touch(in.Now)
	if err := in.Delta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	if err := store.Save(ctx, in.Delta); err != nil {
		return nil, err
	}
	return in, nil
}
