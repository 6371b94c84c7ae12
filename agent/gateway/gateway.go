// Package gateway adapts the tool-calling chat model to the orchestrator's
// generate/resume contract, including the human-approval interrupt for the
// mortgage calculator tool.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	llmx "github.com/pattarawit/amort-mortgage-advisor/agent/llm"
	promptx "github.com/pattarawit/amort-mortgage-advisor/agent/prompt"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
	toolx "github.com/pattarawit/amort-mortgage-advisor/agent/tool"
)

// ModelGateway implements contract.Gateway on top of an eino tool-calling
// chat model with the mortgage calculator declared. The tool is never
// executed inside Generate: a tool request surfaces as an approval-required
// outcome, and Resume runs (or cancels) the calculation.
type ModelGateway struct {
	model        einomodel.ToolCallingChatModel
	systemPrompt string
}

var _ contractx.Gateway = (*ModelGateway)(nil)

func New(ctx context.Context, cfg llmx.Config) (*ModelGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	builder := cfg.OpenRouter()
	base, err := builder.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model: %v", contractx.ErrModelInvoke, err)
	}

	toolModel, err := base.WithTools([]*schema.ToolInfo{toolx.MortgageToolInfo()})
	if err != nil {
		return nil, fmt.Errorf("%w: bind mortgage tool: %v", contractx.ErrModelInvoke, err)
	}

	return newWithModel(toolModel), nil
}

func newWithModel(m einomodel.ToolCallingChatModel) *ModelGateway {
	return &ModelGateway{
		model:        m,
		systemPrompt: promptx.Assistant(),
	}
}

// resumePayload is the opaque interrupt descriptor stored on the session.
type resumePayload struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
}

func (g *ModelGateway) Generate(ctx context.Context, message string, history []statex.Message) (contractx.Outcome, error) {
	msgs := g.conversation(history, message)

	out, err := g.model.Generate(ctx, msgs)
	if err != nil {
		log.Error().Err(err).Str("operation", "generate").Msg("model invoke failed")
		return contractx.Outcome{}, fmt.Errorf("%w: generate: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil {
		return contractx.Outcome{}, fmt.Errorf("%w: nil completion", contractx.ErrEmptyModelReply)
	}

	if len(out.ToolCalls) > 0 {
		return g.interruptOutcome(msgs, out)
	}

	text := strings.TrimSpace(out.Content)
	if text == "" {
		return contractx.Outcome{}, fmt.Errorf("%w: empty completion", contractx.ErrEmptyModelReply)
	}
	return contractx.Outcome{
		Kind: contractx.OutcomeCompleted,
		Text: text,
	}, nil
}

func (g *ModelGateway) interruptOutcome(msgs []*schema.Message, out *schema.Message) (contractx.Outcome, error) {
	call := out.ToolCalls[0]
	name := strings.TrimSpace(call.Function.Name)
	if name != toolx.ToolMortgageCalculator {
		return contractx.Outcome{}, fmt.Errorf("%w: model requested unknown tool %q", contractx.ErrModelInvoke, name)
	}

	toolInput := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &toolInput); err != nil {
			return contractx.Outcome{}, fmt.Errorf("%w: invalid tool arguments: %v", contractx.ErrModelInvoke, err)
		}
	}

	interrupt, err := json.Marshal(resumePayload{
		ToolCallID: call.ID,
		ToolName:   name,
	})
	if err != nil {
		return contractx.Outcome{}, fmt.Errorf("%w: encode interrupt: %v", contractx.ErrModelInvoke, err)
	}

	prior, err := json.Marshal(append(msgs, out))
	if err != nil {
		return contractx.Outcome{}, fmt.Errorf("%w: encode prior response: %v", contractx.ErrModelInvoke, err)
	}

	log.Info().
		Str("operation", "generate").
		Str("tool", name).
		Msg("tool run paused pending approval")

	return contractx.Outcome{
		Kind:          contractx.OutcomeApprovalRequired,
		Text:          approvalPrompt(toolInput),
		Interrupt:     interrupt,
		ToolInput:     toolInput,
		PriorResponse: prior,
	}, nil
}

func (g *ModelGateway) Resume(ctx context.Context, pending *statex.PendingInterrupt, approved bool) (string, error) {
	if pending == nil {
		return "", fmt.Errorf("%w: pending interrupt is nil", contractx.ErrValidation)
	}

	var rp resumePayload
	if err := json.Unmarshal(pending.Interrupt, &rp); err != nil {
		return "", fmt.Errorf("%w: decode interrupt: %v", contractx.ErrValidation, err)
	}
	var prior []*schema.Message
	if err := json.Unmarshal(pending.PriorResponse, &prior); err != nil {
		return "", fmt.Errorf("%w: decode prior response: %v", contractx.ErrValidation, err)
	}

	toolOutput, err := g.toolResult(pending.ToolInput, approved)
	if err != nil {
		return "", err
	}

	msgs := append(prior, schema.ToolMessage(toolOutput, rp.ToolCallID))
	out, err := g.model.Generate(ctx, msgs)
	if err != nil {
		log.Error().Err(err).Str("operation", "resume").Bool("approved", approved).Msg("model invoke failed")
		return "", fmt.Errorf("%w: resume: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: nil completion", contractx.ErrEmptyModelReply)
	}

	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrEmptyModelReply)
	}
	return text, nil
}

// toolResult produces the tool message content for a resume turn. A rejected
// approval never executes the calculator; the tool reports the cancellation
// so the model can acknowledge it.
func (g *ModelGateway) toolResult(toolInput map[string]any, approved bool) (string, error) {
	if !approved {
		return `{"cancelled":true,"message":"The user declined the mortgage calculation. It was not run."}`, nil
	}

	in, err := toolx.ParseMortgageInput(toolInput)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	result := toolx.Calculate(in)
	raw, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("%w: encode tool result: %v", contractx.ErrModelInvoke, err)
	}
	return string(raw), nil
}

func (g *ModelGateway) conversation(history []statex.Message, message string) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, schema.SystemMessage(g.systemPrompt))
	for _, m := range history {
		switch m.Role {
		case statex.RoleModel:
			msgs = append(msgs, schema.AssistantMessage(m.Text, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Text))
		}
	}
	msgs = append(msgs, schema.UserMessage(message))
	return msgs
}

func approvalPrompt(toolInput map[string]any) string {
	in, err := toolx.ParseMortgageInput(toolInput)
	if err != nil {
		return "I'd like to run a mortgage calculation with the details you provided. Do you approve?"
	}
	return fmt.Sprintf(
		"I'd like to run a mortgage calculation with these details:\n"+
			"- Home price: $%.2f\n"+
			"- Down payment: $%.2f\n"+
			"- Loan term: %g years\n"+
			"- Interest rate: %g%%\n"+
			"- Zip code: %s\n"+
			"Do you approve running this calculation?",
		in.HomePrice, in.DownPayment, in.LoanTermYears, in.InterestRatePercent, in.ZipCode,
	)
}
