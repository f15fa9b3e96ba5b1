package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	llmx "github.com/tanpawarit/chative-concierge/agent/llm"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

const defaultMaxSteps = 4

// Agent answers catalog questions with a bounded tool-calling loop.
type Agent struct {
	model       einomodel.ToolCallingChatModel
	tools       *compose.ToolsNode
	temperature float32
	maxSteps    int
	now         func() time.Time
}

type AgentConfig struct {
	Temperature float32
	MaxSteps    int
}

func NewAgent(ctx context.Context, chatModel einomodel.ToolCallingChatModel, repo Repository, cfg AgentConfig) (*Agent, error) {
	if chatModel == nil {
		return nil, errors.New("catalog chat model is required")
	}
	if repo == nil {
		return nil, errors.New("catalog repository is required")
	}

	tools := NewTools(repo)
	infos, err := ToolInfos(ctx, tools)
	if err != nil {
		return nil, err
	}
	bound, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind catalog tools: %v", contractx.ErrModelInvoke, err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               tools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Ctx(ctx).Warn().Str("tool_name", name).Str("arguments", input).Msg("unknown catalog tool call")
			return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q}", name), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create catalog tools node: %w", err)
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Agent{
		model:       bound,
		tools:       toolsNode,
		temperature: cfg.Temperature,
		maxSteps:    maxSteps,
		now:         time.Now,
	}, nil
}

// Search runs the loop until the model answers without tool calls. The returned
// turns interleave assistant content with tool results.
func (a *Agent) Search(ctx context.Context, systemInstruction string, turns []statex.Turn) ([]statex.Turn, error) {
	msgs := llmx.ToMessages(systemInstruction, turns)
	out := make([]statex.Turn, 0, 2*a.maxSteps)

	for step := 1; step <= a.maxSteps; step++ {
		resp, err := a.model.Generate(ctx, msgs, einomodel.WithTemperature(a.temperature))
		if err != nil {
			return out, fmt.Errorf("%w: catalog step %d: %v", contractx.ErrModelInvoke, step, err)
		}
		if resp == nil {
			return out, fmt.Errorf("%w: catalog step %d returned no message", contractx.ErrSchemaViolation, step)
		}
		msgs = append(msgs, resp)

		if content := strings.TrimSpace(resp.Content); content != "" {
			out = append(out, statex.NewTurn(statex.RoleAssistant, content, a.now()))
		}
		if len(resp.ToolCalls) == 0 {
			return out, nil
		}

		results, err := a.tools.Invoke(ctx, resp)
		if err != nil {
			return out, fmt.Errorf("%w: catalog tools: %v", contractx.ErrCapabilityUnavailable, err)
		}
		for _, r := range results {
			msgs = append(msgs, r)
			out = append(out, statex.NewTurn(statex.RoleTool, r.Content, a.now()))
		}
		logx.Ctx(ctx).Debug().Int("step", step).Int("tool_calls", len(resp.ToolCalls)).Msg("catalog tools executed")
	}

	return out, fmt.Errorf("%w: catalog answer not reached within %d steps", contractx.ErrSchemaViolation, a.maxSteps)
}

var _ contractx.CatalogSearcher = (*Agent)(nil)

