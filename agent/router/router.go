package router

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

const (
	historyTurns   = 2
	historySnippet = 100
)

// Router classifies a turn into one handling path.
type Router struct {
	completer contractx.Completer
	prompts   *promptx.PromptSet
}

func New(completer contractx.Completer, prompts *promptx.PromptSet) (*Router, error) {
	if completer == nil {
		return nil, errors.New("router completer is required")
	}
	if prompts == nil {
		return nil, errors.New("router prompts are required")
	}
	return &Router{completer: completer, prompts: prompts}, nil
}

// Route never fails. An in-flight contact dialogue short-circuits to RouteCollect and
// anything the model answers outside the closed set becomes statex.DefaultRoute.
func (r *Router) Route(ctx context.Context, latest string, history []statex.Turn, pending bool) statex.Route {
	if pending {
		return statex.RouteCollect
	}

	instruction, err := r.prompts.Render(r.prompts.Routing, map[string]any{
		"latest_message": strings.TrimSpace(latest),
		"recent_history": recentHistory(history),
	})
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("render routing instruction failed, using default route")
		return statex.DefaultRoute
	}
	system, err := r.prompts.Render(r.prompts.Persona, nil)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("render persona failed, using default route")
		return statex.DefaultRoute
	}

	raw, err := r.completer.Complete(ctx, system, []statex.Turn{
		{Role: statex.RoleHuman, Content: instruction},
	}, contractx.TemperatureDeterministic)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Msg("route classification failed, using default route")
		return statex.DefaultRoute
	}

	route, ok := statex.ParseRoute(raw)
	if !ok {
		logx.Ctx(ctx).Warn().Str("raw", raw).Str("route", string(route)).Msg("unparseable route classification")
	}
	return route
}

// recentHistory renders the turns preceding the latest message.
func recentHistory(history []statex.Turn) string {
	turns := make([]statex.Turn, 0, len(history))
	for _, t := range history {
		if t.Role == statex.RoleHuman || t.Role == statex.RoleAssistant {
			turns = append(turns, t)
		}
	}
	// the latest human turn is already in the instruction
	if n := len(turns); n > 0 && turns[n-1].Role == statex.RoleHuman {
		turns = turns[:n-1]
	}
	if len(turns) > historyTurns {
		turns = turns[len(turns)-historyTurns:]
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, string(t.Role)+": "+truncate(strings.TrimSpace(t.Content), historySnippet))
	}
	if len(lines) == 0 {
		return "-"
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
