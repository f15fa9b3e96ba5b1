package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/chative-concierge/agent/nodes"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodex.NodeValidateRequest,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.TurnState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeValidateRequest, err)
	}

	turnNodes := []struct {
		name string
		fn   func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error)
	}{
		{nodex.NodeLoadSession, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.LoadSession(ctx, in, o.store)
		}},
		{nodex.NodeOrchestrate, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.Orchestrate(ctx, in, o.caps.Router, o.caps.Confirm, o.store)
		}},
		{nodex.NodeCollectInfo, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.CollectInfo(ctx, in, o.caps.Collector, o.caps.Ask, o.store)
		}},
		{nodex.NodeCatalog, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.Catalog(ctx, in, o.caps.Catalog, o.store)
		}},
		{nodex.NodeNotify, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.Notify(ctx, in, o.caps.Notifier, o.store)
		}},
		{nodex.NodeDirect, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.Direct(ctx, in, o.caps.Direct, o.store)
		}},
		{nodex.NodeCombine, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.Combine(ctx, in, o.caps.Combiner, o.store)
		}},
		{nodex.NodeFailureRecovery, func(ctx context.Context, in *nodex.TurnState) (*nodex.TurnState, error) {
			return nodex.FailureRecovery(ctx, in, o.caps.Recovery, o.store)
		}},
	}
	for _, n := range turnNodes {
		if err := graph.AddLambdaNode(n.name, compose.InvokableLambda(n.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.name, err)
		}
	}

	if err := graph.AddLambdaNode(nodex.NodeFinalizeReply,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.TurnState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodex.NodeFinalizeReply, err)
	}

	edges := [][2]string{
		{compose.START, nodex.NodeValidateRequest},
		{nodex.NodeValidateRequest, nodex.NodeLoadSession},
		{nodex.NodeLoadSession, nodex.NodeOrchestrate},
		{nodex.NodeNotify, nodex.NodeCombine},
		{nodex.NodeDirect, nodex.NodeFinalizeReply},
		{nodex.NodeCombine, nodex.NodeFinalizeReply},
		{nodex.NodeFailureRecovery, nodex.NodeFinalizeReply},
		{nodex.NodeFinalizeReply, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	branches := []struct {
		from string
		fn   func(*nodex.TurnState) string
		to   []string
	}{
		{nodex.NodeOrchestrate, nodex.AfterOrchestrate, []string{
			nodex.NodeCollectInfo, nodex.NodeDirect, nodex.NodeCatalog, nodex.NodeNotify, nodex.NodeFinalizeReply,
		}},
		{nodex.NodeCollectInfo, nodex.AfterCollect, []string{
			nodex.NodeFinalizeReply, nodex.NodeCatalog, nodex.NodeNotify,
		}},
		{nodex.NodeCatalog, nodex.AfterCatalog, []string{
			nodex.NodeFailureRecovery, nodex.NodeNotify, nodex.NodeCombine, nodex.NodeFinalizeReply,
		}},
	}
	for _, b := range branches {
		if err := graph.AddBranch(b.from, newBranch(b.fn, b.to)); err != nil {
			return nil, fmt.Errorf("add branch from %s: %w", b.from, err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}

func newBranch(pick func(*nodex.TurnState) string, targets []string) *compose.GraphBranch {
	endNodes := make(map[string]bool, len(targets))
	for _, t := range targets {
		endNodes[t] = true
	}
	return compose.NewGraphBranch(func(ctx context.Context, in *nodex.TurnState) (string, error) {
		return pick(in), nil
	}, endNodes)
}
