// Package advisor hosts the chat orchestrator: the per-turn state machine
// that decides between a new session, a continuing session, and an
// approval-resume, and keeps the conversation store in sync with the gateway.
package advisor

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

type Advisor struct {
	store   statex.Store
	gateway contractx.Gateway

	graphRunner compose.Runnable[contractx.ChatRequest, contractx.ChatResult]

	now          func() time.Time
	newSessionID func() string
}

func New(store statex.Store, gateway contractx.Gateway) (*Advisor, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if gateway == nil {
		return nil, errors.New("model gateway is required")
	}

	a := &Advisor{
		store:        store,
		gateway:      gateway,
		now:          time.Now,
		newSessionID: uuid.NewString,
	}

	graphRunner, err := a.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

// HandleTurn runs one chat turn to completion: validation, session
// resolution, the gateway round trip, and the single store write.
func (a *Advisor) HandleTurn(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResult, error) {
	out, err := a.graphRunner.Invoke(ctx, req)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", req.SessionID).
			Str("operation", "handle_turn").
			Msg("chat turn failed")
		return contractx.ChatResult{}, err
	}
	return out, nil
}
