package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ReasoningExcluded lists models whose reasoning traces must be switched off;
// they otherwise leak into one-word routing answers.
var ReasoningExcluded = map[string]bool{
	"x-ai/grok-4.1-fast": true,
}

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken *int          `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

// WithModel returns a copy of c targeting another model and temperature.
// An empty model or a negative temperature keeps the current value.
func (c Config) WithModel(modelName string, temperature float32) Config {
	if v := strings.TrimSpace(modelName); v != "" {
		c.Model = v
	}
	if temperature >= 0 {
		c.Temperature = temperature
	}
	return c
}

// New builds the eino chat model. Attribution headers ride on the HTTP client
// so tool-calling requests carry them too.
func (c *Config) New(ctx context.Context) (model.ToolCallingChatModel, error) {
	modelName := strings.TrimSpace(c.Model)
	temperature := c.Temperature

	conf := &openaimodel.ChatModelConfig{
		BaseURL:     strings.TrimRight(c.BaseURL, "/"),
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: &temperature,
		Timeout:     c.Timeout,
		HTTPClient:  c.HTTPClient(),
	}
	if ReasoningExcluded[modelName] {
		conf.ExtraFields = map[string]any{
			"reasoning": map[string]any{
				"exclude": true,
				"effort":  "none",
			},
		}
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("openrouter: create chat model %s: %w", modelName, err)
	}
	return m, nil
}

// HTTPClient returns a client with the configured timeout that stamps the
// OpenRouter attribution headers on every request.
func (c Config) HTTPClient() *http.Client {
	return &http.Client{
		Timeout: c.Timeout,
		Transport: &attribution{
			next:     http.DefaultTransport,
			siteURL:  strings.TrimSpace(c.SiteURL),
			siteName: strings.TrimSpace(c.SiteName),
		},
	}
}

type attribution struct {
	next     http.RoundTripper
	siteURL  string
	siteName string
}

func (a *attribution) RoundTrip(req *http.Request) (*http.Response, error) {
	if a.siteURL == "" && a.siteName == "" {
		return a.next.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	if a.siteURL != "" {
		req.Header.Set("HTTP-Referer", a.siteURL)
	}
	if a.siteName != "" {
		req.Header.Set("X-Title", a.siteName)
	}
	return a.next.RoundTrip(req)
}

// NewClient creates an OpenAI SDK client pointed at OpenRouter. It returns nil
// without an API key.
func NewClient(cfg Config) *openaisdk.Client {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(cfg.HTTPClient()),
	}
	if trimmed := strings.TrimRight(cfg.BaseURL, "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	client := openaisdk.NewClient(opts...)
	return &client
}
