package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

type fakeStore struct {
	sessions map[string]*statex.Session
	loadErr  error
	saveErr  error
	saved    []*statex.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*statex.Session)}
}

func (f *fakeStore) Load(ctx context.Context, sessionID string) (*statex.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, statex.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (f *fakeStore) Save(ctx context.Context, s *statex.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, s.Clone())
	if existing, ok := f.sessions[s.SessionID]; ok {
		merged := existing.Clone()
		merged.Messages = append(merged.Messages, s.Messages...)
		merged.PendingInterrupt = s.Clone().PendingInterrupt
		merged.UpdatedAt = s.UpdatedAt
		f.sessions[s.SessionID] = merged
		return nil
	}
	f.sessions[s.SessionID] = s.Clone()
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

type generateCall struct {
	message string
	history []statex.Message
}

type resumeCall struct {
	pending  *statex.PendingInterrupt
	approved bool
}

type fakeGateway struct {
	generateOutcome contractx.Outcome
	generateErr     error
	generateCalls   []generateCall

	resumeText  string
	resumeErr   error
	resumeCalls []resumeCall
}

func (f *fakeGateway) Generate(ctx context.Context, message string, history []statex.Message) (contractx.Outcome, error) {
	f.generateCalls = append(f.generateCalls, generateCall{
		message: message,
		history: append([]statex.Message(nil), history...),
	})
	if f.generateErr != nil {
		return contractx.Outcome{}, f.generateErr
	}
	return f.generateOutcome, nil
}

func (f *fakeGateway) Resume(ctx context.Context, pending *statex.PendingInterrupt, approved bool) (string, error) {
	f.resumeCalls = append(f.resumeCalls, resumeCall{pending: pending, approved: approved})
	if f.resumeErr != nil {
		return "", f.resumeErr
	}
	return f.resumeText, nil
}

func completedOutcome(text string) contractx.Outcome {
	return contractx.Outcome{Kind: contractx.OutcomeCompleted, Text: text}
}

func approvalOutcome() contractx.Outcome {
	return contractx.Outcome{
		Kind:          contractx.OutcomeApprovalRequired,
		Text:          "Do you approve running this calculation?",
		Interrupt:     json.RawMessage(`{"tool_call_id":"call-1","tool_name":"mortgage_calculator"}`),
		ToolInput:     map[string]any{"homePrice": 300000.0},
		PriorResponse: json.RawMessage(`[]`),
	}
}

func newTestAdvisor(t *testing.T, store statex.Store, gw contractx.Gateway) *Advisor {
	t.Helper()
	a, err := New(store, gw)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a.now = func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}
	ids := 0
	a.newSessionID = func() string {
		ids++
		return fmt.Sprintf("generated-%d", ids)
	}
	return a
}

func TestHandleTurnNewSession(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{generateOutcome: completedOutcome("Happy to help with mortgages.")}
	a := newTestAdvisor(t, store, gw)

	res, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.SessionID != "generated-1" {
		t.Fatalf("SessionID = %q, want generated-1", res.SessionID)
	}
	if res.Response != "Happy to help with mortgages." {
		t.Fatalf("unexpected response: %q", res.Response)
	}
	if res.RequiresApproval {
		t.Fatal("RequiresApproval = true, want false")
	}

	if len(gw.generateCalls) != 1 {
		t.Fatalf("gateway called %d times, want 1", len(gw.generateCalls))
	}
	if len(gw.generateCalls[0].history) != 0 {
		t.Fatalf("new session sent history of %d messages", len(gw.generateCalls[0].history))
	}

	stored := store.sessions["generated-1"]
	if stored == nil {
		t.Fatal("session was not persisted")
	}
	if len(stored.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(stored.Messages))
	}
	if stored.Messages[0].Role != statex.RoleUser || stored.Messages[0].Text != "hello" {
		t.Fatalf("unexpected first message: %+v", stored.Messages[0])
	}
	if stored.Messages[1].Role != statex.RoleModel {
		t.Fatalf("unexpected second message: %+v", stored.Messages[1])
	}
}

func TestHandleTurnDistinctSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{generateOutcome: completedOutcome("reply")}
	a := newTestAdvisor(t, store, gw)

	first, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "one"})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	second, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "two"})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if first.SessionID == second.SessionID {
		t.Fatalf("both turns share session %q", first.SessionID)
	}
	if len(store.sessions[first.SessionID].Messages) != 2 {
		t.Fatalf("first session has %d messages, want 2", len(store.sessions[first.SessionID].Messages))
	}
	if len(store.sessions[second.SessionID].Messages) != 2 {
		t.Fatalf("second session has %d messages, want 2", len(store.sessions[second.SessionID].Messages))
	}
	if len(gw.generateCalls[1].history) != 0 {
		t.Fatal("second session received the first session's history")
	}
}

func TestHandleTurnContinuingSession(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seed := statex.NewSession("s1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))
	seed.Append(
		statex.Message{Role: statex.RoleUser, Text: "turn one"},
		statex.Message{Role: statex.RoleModel, Text: "reply one"},
	)
	store.sessions["s1"] = seed

	gw := &fakeGateway{generateOutcome: completedOutcome("reply two")}
	a := newTestAdvisor(t, store, gw)

	res, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "turn two", SessionID: "s1"})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.SessionID != "s1" {
		t.Fatalf("SessionID = %q, want s1", res.SessionID)
	}

	if len(gw.generateCalls[0].history) != 2 {
		t.Fatalf("gateway received history of %d messages, want 2", len(gw.generateCalls[0].history))
	}
	if gw.generateCalls[0].history[0].Text != "turn one" {
		t.Fatalf("unexpected history: %+v", gw.generateCalls[0].history)
	}

	stored := store.sessions["s1"]
	want := []string{"turn one", "reply one", "turn two", "reply two"}
	if len(stored.Messages) != len(want) {
		t.Fatalf("len(Messages) = %d, want %d", len(stored.Messages), len(want))
	}
	for i, text := range want {
		if stored.Messages[i].Text != text {
			t.Fatalf("Messages[%d].Text = %q, want %q", i, stored.Messages[i].Text, text)
		}
	}
}

func TestHandleTurnUnknownSessionStartsFresh(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{generateOutcome: completedOutcome("reply")}
	a := newTestAdvisor(t, store, gw)

	res, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "hello", SessionID: "ghost"})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.SessionID != "generated-1" {
		t.Fatalf("SessionID = %q, want a freshly generated id", res.SessionID)
	}
	if _, ok := store.sessions["ghost"]; ok {
		t.Fatal("turn was persisted under the unknown id")
	}
}

func TestHandleTurnApprovalRequired(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	gw := &fakeGateway{generateOutcome: approvalOutcome()}
	a := newTestAdvisor(t, store, gw)

	res, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "calculate my mortgage"})
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !res.RequiresApproval {
		t.Fatal("RequiresApproval = false, want true")
	}
	if res.PendingCalculation["homePrice"] != 300000.0 {
		t.Fatalf("unexpected pending calculation: %+v", res.PendingCalculation)
	}
	if res.Response != "Do you approve running this calculation?" {
		t.Fatalf("unexpected response: %q", res.Response)
	}

	stored := store.sessions[res.SessionID]
	if !stored.HasPendingInterrupt() {
		t.Fatal("pending interrupt was not persisted")
	}
	if stored.Phase() != statex.PhaseAwaitingApproval {
		t.Fatalf("Phase() = %v, want awaiting approval", stored.Phase())
	}
	if len(stored.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(stored.Messages))
	}
}

func TestHandleTurnApprovalLifecycle(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		approved bool
		wantUser string
	}{
		{name: "approved", approved: true, wantUser: "Yes, proceed with the calculation"},
		{name: "rejected", approved: false, wantUser: "No, cancel the calculation"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			seed := statex.NewSession("s1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))
			seed.Append(
				statex.Message{Role: statex.RoleUser, Text: "calculate my mortgage"},
				statex.Message{Role: statex.RoleModel, Text: "Do you approve?"},
			)
			seed.PendingInterrupt = &statex.PendingInterrupt{
				Interrupt: json.RawMessage(`{"tool_call_id":"call-1"}`),
				ToolInput: map[string]any{"homePrice": 300000.0},
			}
			store.sessions["s1"] = seed

			gw := &fakeGateway{resumeText: "Here is the outcome."}
			a := newTestAdvisor(t, store, gw)

			res, err := a.HandleTurn(context.Background(), contractx.ChatRequest{
				SessionID: "s1",
				Approval:  &contractx.Approval{Approved: tc.approved},
			})
			if err != nil {
				t.Fatalf("HandleTurn() error = %v", err)
			}
			if res.RequiresApproval {
				t.Fatal("RequiresApproval = true after resolution")
			}
			if res.Response != "Here is the outcome." {
				t.Fatalf("unexpected response: %q", res.Response)
			}

			if len(gw.resumeCalls) != 1 {
				t.Fatalf("Resume called %d times, want 1", len(gw.resumeCalls))
			}
			if gw.resumeCalls[0].approved != tc.approved {
				t.Fatalf("Resume approved = %v, want %v", gw.resumeCalls[0].approved, tc.approved)
			}
			if gw.resumeCalls[0].pending == nil || len(gw.resumeCalls[0].pending.Interrupt) == 0 {
				t.Fatal("Resume did not receive the stored interrupt")
			}
			if len(gw.generateCalls) != 0 {
				t.Fatalf("Generate called %d times on an approval turn", len(gw.generateCalls))
			}

			stored := store.sessions["s1"]
			if stored.HasPendingInterrupt() {
				t.Fatal("pending interrupt survived resolution")
			}
			if len(stored.Messages) != 4 {
				t.Fatalf("len(Messages) = %d, want 4", len(stored.Messages))
			}
			if stored.Messages[2].Role != statex.RoleUser || stored.Messages[2].Text != tc.wantUser {
				t.Fatalf("synthetic user message = %+v, want %q", stored.Messages[2], tc.wantUser)
			}
			if stored.Messages[3].Text != "Here is the outcome." {
				t.Fatalf("unexpected final message: %+v", stored.Messages[3])
			}
		})
	}
}

func TestHandleTurnApprovalWithoutPending(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seed := statex.NewSession("s1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))
	seed.Append(statex.Message{Role: statex.RoleUser, Text: "hello"})
	store.sessions["s1"] = seed

	a := newTestAdvisor(t, store, &fakeGateway{})

	_, err := a.HandleTurn(context.Background(), contractx.ChatRequest{
		SessionID: "s1",
		Approval:  &contractx.Approval{Approved: true},
	})
	if !errors.Is(err, contractx.ErrNoPendingApproval) {
		t.Fatalf("HandleTurn() error = %v, want ErrNoPendingApproval", err)
	}
}

func TestHandleTurnApprovalUnknownSession(t *testing.T) {
	t.Parallel()

	a := newTestAdvisor(t, newFakeStore(), &fakeGateway{})

	_, err := a.HandleTurn(context.Background(), contractx.ChatRequest{
		SessionID: "ghost",
		Approval:  &contractx.Approval{Approved: true},
	})
	if !errors.Is(err, contractx.ErrNoPendingApproval) {
		t.Fatalf("HandleTurn() error = %v, want ErrNoPendingApproval", err)
	}
}

func TestHandleTurnValidation(t *testing.T) {
	t.Parallel()

	a := newTestAdvisor(t, newFakeStore(), &fakeGateway{})

	cases := []struct {
		name string
		req  contractx.ChatRequest
	}{
		{name: "empty request", req: contractx.ChatRequest{}},
		{name: "blank message", req: contractx.ChatRequest{Message: "   "}},
		{
			name: "message and approval together",
			req: contractx.ChatRequest{
				Message:   "hello",
				SessionID: "s1",
				Approval:  &contractx.Approval{Approved: true},
			},
		},
		{
			name: "approval without session",
			req:  contractx.ChatRequest{Approval: &contractx.Approval{Approved: true}},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := a.HandleTurn(context.Background(), tc.req)
			if !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("HandleTurn() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestHandleTurnGatewayFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	seed := statex.NewSession("s1", time.Date(2026, 8, 1, 11, 0, 0, 0, time.UTC))
	seed.Append(
		statex.Message{Role: statex.RoleUser, Text: "turn one"},
		statex.Message{Role: statex.RoleModel, Text: "reply one"},
	)
	store.sessions["s1"] = seed

	gw := &fakeGateway{generateErr: fmt.Errorf("%w: upstream 503", contractx.ErrModelInvoke)}
	a := newTestAdvisor(t, store, gw)

	_, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "turn two", SessionID: "s1"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("HandleTurn() error = %v, want ErrModelInvoke", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("store saw %d saves on a failed turn", len(store.saved))
	}
	if len(store.sessions["s1"].Messages) != 2 {
		t.Fatalf("failed turn mutated the stored transcript: %+v", store.sessions["s1"].Messages)
	}
}

func TestHandleTurnSaveErrorPropagates(t *testing.T) {
	t.Parallel()

	saveErr := errors.New("disk full")
	store := newFakeStore()
	store.saveErr = saveErr

	gw := &fakeGateway{generateOutcome: completedOutcome("reply")}
	a := newTestAdvisor(t, store, gw)

	_, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "hello"})
	if !errors.Is(err, saveErr) {
		t.Fatalf("HandleTurn() error = %v, want the save error", err)
	}
}

func TestHandleTurnEmptyReply(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{generateOutcome: completedOutcome("   ")}
	a := newTestAdvisor(t, newFakeStore(), gw)

	_, err := a.HandleTurn(context.Background(), contractx.ChatRequest{Message: "hello"})
	if !errors.Is(err, contractx.ErrEmptyModelReply) {
		t.Fatalf("HandleTurn() error = %v, want ErrEmptyModelReply", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeGateway{}); err == nil {
		t.Fatal("New() accepted a nil store")
	}
	if _, err := New(newFakeStore(), nil); err == nil {
		t.Fatal("New() accepted a nil gateway")
	}
}
