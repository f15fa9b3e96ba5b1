package responder

import (
	"context"
	"errors"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

// Direct answers greetings, FAQs and qualification questions without delegating.
type Direct struct {
	composer contractx.Completer
	prompts  *promptx.PromptSet
}

func NewDirect(composer contractx.Completer, prompts *promptx.PromptSet) (*Direct, error) {
	if composer == nil {
		return nil, errors.New("direct composer is required")
	}
	if prompts == nil {
		return nil, errors.New("direct prompts are required")
	}
	return &Direct{composer: composer, prompts: prompts}, nil
}

func (d *Direct) Respond(ctx context.Context, history []statex.Turn) string {
	system, err := d.prompts.Render(d.prompts.Persona, nil)
	if err == nil {
		var reply string
		reply, err = d.composer.Complete(ctx, system, history, contractx.TemperatureCompose)
		if err == nil && reply != "" {
			return reply
		}
	}
	logx.Ctx(ctx).Warn().Err(err).Msg("direct response unavailable, using greeting fallback")
	return fixed(d.prompts, d.prompts.Messages.GreetingFallback)
}

// fixed renders a locale string that only depends on the business profile.
func fixed(p *promptx.PromptSet, tpl string) string {
	out, err := p.Render(tpl, nil)
	if err != nil {
		return tpl
	}
	return out
}
