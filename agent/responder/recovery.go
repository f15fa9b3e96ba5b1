package responder

import (
	"errors"

	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
)

// Recovery produces the escalation offer used when the catalog path fails.
type Recovery struct {
	prompts *promptx.PromptSet
}

func NewRecovery(prompts *promptx.PromptSet) (*Recovery, error) {
	if prompts == nil {
		return nil, errors.New("recovery prompts are required")
	}
	return &Recovery{prompts: prompts}, nil
}

func (r *Recovery) Respond() string {
	return fixed(r.prompts, r.prompts.Messages.Escalation)
}
