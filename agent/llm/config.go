package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	openrouterx "github.com/tanpawarit/chative-concierge/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAISDK  = "openai-sdk"
	ProviderGemini     = "gemini"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	RouterModel    string `envconfig:"ROUTER_MODEL" split_words:"true"`
	ExtractorModel string `envconfig:"EXTRACTOR_MODEL" split_words:"true"`
	ComposerModel  string `envconfig:"COMPOSER_MODEL" split_words:"true"`
	CatalogModel   string `envconfig:"CATALOG_MODEL" split_words:"true"`

	CatalogTemperature float32 `envconfig:"CATALOG_TEMPERATURE" split_words:"true" default:"0.1"`
	CatalogMaxSteps    int     `envconfig:"CATALOG_MAX_STEPS" split_words:"true" default:"4"`
}

func (c Config) Validate() error {
	switch strings.TrimSpace(c.Provider) {
	case ProviderOpenRouter, ProviderOpenAISDK, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// ModelFor returns the model name configured for role, or the default model.
func (c Config) ModelFor(role contractx.Role) string {
	var override string
	switch role {
	case contractx.RoleRouter:
		override = c.RouterModel
	case contractx.RoleExtractor:
		override = c.ExtractorModel
	case contractx.RoleComposer:
		override = c.ComposerModel
	case contractx.RoleCatalog:
		override = c.CatalogModel
	}
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}

// OpenRouterFor builds the chat model config of role. Per-call temperatures
// still override the configured one.
func (c Config) OpenRouterFor(role contractx.Role) openrouterx.Config {
	temp := c.Temperature
	if role == contractx.RoleCatalog {
		temp = c.CatalogTemperature
	}

	maxCompletionToken := c.MaxCompletionToken
	base := openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		MaxCompletionToken: &maxCompletionToken,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
	return base.WithModel(c.ModelFor(role), temp)
}
