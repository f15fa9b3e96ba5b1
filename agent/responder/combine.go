package responder

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

const partialSeparator = "\n\n---\n\n"

// Combiner merges the partial outputs of a turn into one reply.
type Combiner struct {
	composer contractx.Completer
	prompts  *promptx.PromptSet
}

func NewCombiner(composer contractx.Completer, prompts *promptx.PromptSet) (*Combiner, error) {
	if composer == nil {
		return nil, errors.New("combiner composer is required")
	}
	if prompts == nil {
		return nil, errors.New("combiner prompts are required")
	}
	return &Combiner{composer: composer, prompts: prompts}, nil
}

// Combine weaves catalogAnswer and notificationStatus together. When outcome is
// a recorded failure the status text is kept verbatim unless the merged reply
// already carries the public contact email.
func (c *Combiner) Combine(
	ctx context.Context,
	catalogAnswer string,
	notificationStatus string,
	outcome statex.NotificationOutcome,
) string {
	partials := make([]string, 0, 2)
	for _, p := range []string{catalogAnswer, notificationStatus} {
		if p = strings.TrimSpace(p); p != "" {
			partials = append(partials, p)
		}
	}
	if len(partials) == 0 {
		return fixed(c.prompts, c.prompts.Messages.CombineFallback)
	}

	merged, err := c.merge(ctx, partials)
	if err != nil {
		logx.Ctx(ctx).Warn().Err(err).Int("partials", len(partials)).Msg("combine failed, concatenating partials")
		merged = strings.Join(partials, "\n\n")
	}

	status := strings.TrimSpace(notificationStatus)
	if outcome != "" && outcome != statex.NotificationSent && status != "" &&
		!strings.Contains(merged, c.prompts.Business.ContactEmail) && !strings.Contains(merged, status) {
		merged += "\n\n" + status
	}
	return merged
}

func (c *Combiner) merge(ctx context.Context, partials []string) (string, error) {
	instruction, err := c.prompts.Render(c.prompts.Combine, map[string]any{
		"partials": strings.Join(partials, partialSeparator),
	})
	if err != nil {
		return "", err
	}
	system, err := c.prompts.Render(c.prompts.Persona, nil)
	if err != nil {
		return "", err
	}
	out, err := c.composer.Complete(ctx, system, []statex.Turn{
		{Role: statex.RoleHuman, Content: instruction},
	}, contractx.TemperatureCompose)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", contractx.ErrSchemaViolation
	}
	return strings.TrimSpace(out), nil
}
