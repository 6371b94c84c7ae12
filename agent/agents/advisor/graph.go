package advisor

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	nodex "github.com/pattarawit/amort-mortgage-advisor/agent/nodes/advisor"
)

func (a *Advisor) compileTurnGraph(
	ctx context.Context,
) (compose.Runnable[contractx.ChatRequest, contractx.ChatResult], error) {
	graph := compose.NewGraph[contractx.ChatRequest, contractx.ChatResult]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in contractx.ChatRequest) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, a.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(ctx, in, a.store, a.newSessionID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_session: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_approval",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResolveApproval(ctx, in, a.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_approval: %w", err)
	}

	if err := graph.AddLambdaNode("generate_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.GenerateReply(ctx, in, a.gateway)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node generate_reply: %w", err)
	}

	if err := graph.AddLambdaNode("persist_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PersistSession(ctx, in, a.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_response",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (contractx.ChatResult, error) {
			return nodex.FinalizeResponse(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_response: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if in.Req.Approval != nil {
				return "resolve_approval", nil
			}
			return "generate_reply", nil
		},
		map[string]bool{
			"resolve_approval": true,
			"generate_reply":   true,
		},
	)

	if err := graph.AddEdge(compose.START, "validate_request"); err != nil {
		return nil, fmt.Errorf("add edge start->validate: %w", err)
	}
	if err := graph.AddEdge("validate_request", "load_session"); err != nil {
		return nil, fmt.Errorf("add edge validate->load: %w", err)
	}
	if err := graph.AddBranch("load_session", branch); err != nil {
		return nil, fmt.Errorf("add turn branch: %w", err)
	}
	if err := graph.AddEdge("resolve_approval", "persist_session"); err != nil {
		return nil, fmt.Errorf("add edge resolve->persist: %w", err)
	}
	if err := graph.AddEdge("generate_reply", "persist_session"); err != nil {
		return nil, fmt.Errorf("add edge generate->persist: %w", err)
	}
	if err := graph.AddEdge("persist_session", "finalize_response"); err != nil {
		return nil, fmt.Errorf("add edge persist->finalize: %w", err)
	}
	if err := graph.AddEdge("finalize_response", compose.END); err != nil {
		return nil, fmt.Errorf("add edge finalize->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("advisor.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile advisor graph: %w", err)
	}
	return runner, nil
}
