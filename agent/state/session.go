package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one entry of a conversation transcript. Messages are immutable
// once appended; slice order is conversation order.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// PendingInterrupt is the paused tool-approval request of a session. It lives
// only between the turn that triggered the approval prompt and the turn that
// resolves it. At most one per session.
type PendingInterrupt struct {
	// Interrupt is the gateway's opaque resume descriptor.
	Interrupt json.RawMessage `json:"interrupt"`

	// ToolInput maps tool parameter names to the values the model proposed.
	ToolInput map[string]any `json:"tool_input,omitempty"`

	// PriorResponse is the gateway-side conversation snapshot needed to
	// resume the paused generation.
	PriorResponse json.RawMessage `json:"prior_response,omitempty"`
}

// Phase is the per-session approval state. It is derived from the presence of
// a pending interrupt: resolving an interrupt returns the session to idle.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseAwaitingApproval Phase = "awaiting_approval"
)

// Session is the server-side conversation state keyed by an opaque id.
type Session struct {
	SessionID        string            `json:"session_id"`
	Messages         []Message         `json:"messages,omitempty"`
	PendingInterrupt *PendingInterrupt `json:"pending_interrupt,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

func (s *Session) HasPendingInterrupt() bool {
	return s != nil && s.PendingInterrupt != nil
}

func (s *Session) Phase() Phase {
	if s.HasPendingInterrupt() {
		return PhaseAwaitingApproval
	}
	return PhaseIdle
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	for i, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleModel {
			return fmt.Errorf("message %d has unknown role %q", i, m.Role)
		}
	}
	return nil
}

// Clone deep-copies the session so callers cannot mutate stored state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := &Session{
		SessionID: s.SessionID,
		UpdatedAt: s.UpdatedAt,
	}
	if len(s.Messages) > 0 {
		out.Messages = make([]Message, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	out.PendingInterrupt = s.PendingInterrupt.clone()
	return out
}

func (p *PendingInterrupt) clone() *PendingInterrupt {
	if p == nil {
		return nil
	}
	out := &PendingInterrupt{
		Interrupt:     append(json.RawMessage(nil), p.Interrupt...),
		PriorResponse: append(json.RawMessage(nil), p.PriorResponse...),
	}
	if p.ToolInput != nil {
		out.ToolInput = make(map[string]any, len(p.ToolInput))
		for k, v := range p.ToolInput {
			out.ToolInput[k] = v
		}
	}
	return out
}

// mergeSessions applies upsert semantics: incoming messages are appended to
// the stored transcript, and the stored pending interrupt is overwritten by
// the incoming one, including clearing it when the incoming session carries
// none (the turn that resolved it omits it on purpose).
func mergeSessions(existing, incoming *Session) *Session {
	merged := existing.Clone()
	merged.Messages = append(merged.Messages, incoming.Messages...)
	merged.PendingInterrupt = incoming.PendingInterrupt.clone()
	merged.UpdatedAt = incoming.UpdatedAt
	return merged
}
