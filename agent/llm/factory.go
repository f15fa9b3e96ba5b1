package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	geminix "github.com/tanpawarit/chative-concierge/pkg/gemini"
	openrouterx "github.com/tanpawarit/chative-concierge/pkg/openrouter"
)

// Completers holds one completion handle per role.
type Completers struct {
	Router    contractx.Completer
	Extractor contractx.Completer
	Composer  contractx.Completer
}

// NewCompleters builds the completion handles once at startup.
// gemini is only read when the provider is ProviderGemini.
func NewCompleters(ctx context.Context, cfg Config, gemini *geminix.Config) (Completers, error) {
	if err := cfg.Validate(); err != nil {
		return Completers{}, err
	}

	build := func(role contractx.Role) (contractx.Completer, error) {
		switch cfg.Provider {
		case ProviderOpenAISDK:
			orCfg := cfg.OpenRouterFor(role)
			client := openrouterx.NewClient(orCfg)
			return NewSDKCompleter(client, orCfg.Model, cfg.MaxCompletionToken)
		case ProviderGemini:
			if gemini == nil {
				return nil, fmt.Errorf("%w: gemini config is required for provider %s", contractx.ErrValidation, cfg.Provider)
			}
			m, err := gemini.New(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
			}
			return NewChatCompleter(m)
		default:
			orCfg := cfg.OpenRouterFor(role)
			m, err := orCfg.New(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, role, err)
			}
			return NewChatCompleter(m)
		}
	}

	router, err := build(contractx.RoleRouter)
	if err != nil {
		return Completers{}, err
	}
	extractor, err := build(contractx.RoleExtractor)
	if err != nil {
		return Completers{}, err
	}
	composer, err := build(contractx.RoleComposer)
	if err != nil {
		return Completers{}, err
	}

	return Completers{Router: router, Extractor: extractor, Composer: composer}, nil
}

// NewCatalogModel returns the tool-calling model used by the catalog agent.
func NewCatalogModel(ctx context.Context, cfg Config) (einomodel.ToolCallingChatModel, error) {
	orCfg := cfg.OpenRouterFor(contractx.RoleCatalog)
	m, err := orCfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create catalog model: %v", contractx.ErrModelInvoke, err)
	}
	return m, nil
}
