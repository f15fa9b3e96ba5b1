package llm

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

// SDKCompleter calls the chat completions endpoint through the OpenAI SDK
// client pointed at OpenRouter.
type SDKCompleter struct {
	client    *openaisdk.Client
	model     string
	maxTokens int64
}

func NewSDKCompleter(client *openaisdk.Client, model string, maxTokens int) (*SDKCompleter, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is nil", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrValidation)
	}
	return &SDKCompleter{client: client, model: strings.TrimSpace(model), maxTokens: int64(maxTokens)}, nil
}

func (c *SDKCompleter) Complete(
	ctx context.Context,
	systemInstruction string,
	turns []statex.Turn,
	temperature float32,
) (string, error) {
	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if s := strings.TrimSpace(systemInstruction); s != "" {
		msgs = append(msgs, openaisdk.SystemMessage(s))
	}
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		switch t.Role {
		case statex.RoleHuman:
			msgs = append(msgs, openaisdk.UserMessage(content))
		case statex.RoleAssistant:
			msgs = append(msgs, openaisdk.AssistantMessage(content))
		}
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("%w: nothing to complete", contractx.ErrValidation)
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    msgs,
		Temperature: openaisdk.Float(float64(temperature)),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrSchemaViolation)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ contractx.Completer = (*SDKCompleter)(nil)
