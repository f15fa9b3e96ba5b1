package llm

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

// ChatCompleter adapts an eino chat model to the Completer capability.
type ChatCompleter struct {
	model einomodel.BaseChatModel
}

func NewChatCompleter(m einomodel.BaseChatModel) (*ChatCompleter, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: chat model is nil", contractx.ErrValidation)
	}
	return &ChatCompleter{model: m}, nil
}

func (c *ChatCompleter) Complete(
	ctx context.Context,
	systemInstruction string,
	turns []statex.Turn,
	temperature float32,
) (string, error) {
	msgs := ToMessages(systemInstruction, turns)
	if len(msgs) == 0 {
		return "", fmt.Errorf("%w: nothing to complete", contractx.ErrValidation)
	}

	out, err := c.model.Generate(ctx, msgs, einomodel.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: empty completion", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(out.Content), nil
}

// ToMessages converts session turns into eino messages. Tool turns are internal
// to the catalog capability and are not replayed to plain completions.
func ToMessages(systemInstruction string, turns []statex.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns)+1)
	if s := strings.TrimSpace(systemInstruction); s != "" {
		msgs = append(msgs, schema.SystemMessage(s))
	}
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		switch t.Role {
		case statex.RoleHuman:
			msgs = append(msgs, schema.UserMessage(content))
		case statex.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(content, nil))
		}
	}
	return msgs
}

var _ contractx.Completer = (*ChatCompleter)(nil)
