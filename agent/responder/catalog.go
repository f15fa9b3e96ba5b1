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

// Catalog answers product questions through the catalog capability.
type Catalog struct {
	searcher contractx.CatalogSearcher
	prompts  *promptx.PromptSet
}

// NewCatalog accepts a nil searcher; every query then fails and the graph
// takes the escalation path.
func NewCatalog(searcher contractx.CatalogSearcher, prompts *promptx.PromptSet) (*Catalog, error) {
	if prompts == nil {
		return nil, errors.New("catalog prompts are required")
	}
	return &Catalog{searcher: searcher, prompts: prompts}, nil
}

// Query returns the latest assistant-authored answer. false means Fail.
func (c *Catalog) Query(ctx context.Context, history []statex.Turn) (string, bool) {
	if c.searcher == nil {
		logx.Ctx(ctx).Warn().Err(contractx.ErrCapabilityUnavailable).Msg("catalog searcher is not configured")
		return "", false
	}

	system, err := c.systemInstruction()
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("render catalog instruction failed")
		return "", false
	}

	turns, err := c.searcher.Search(ctx, system, history)
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Msg("catalog search failed")
		return "", false
	}

	answer, ok := LatestAssistant(turns)
	if !ok {
		logx.Ctx(ctx).Warn().Int("turns", len(turns)).Msg("catalog search produced no assistant answer")
	}
	return answer, ok
}

// Unavailable is the provisional answer stored when Query fails.
func (c *Catalog) Unavailable() string {
	return strings.TrimSpace(c.prompts.Messages.CatalogUnavailable)
}

func (c *Catalog) systemInstruction() (string, error) {
	persona, err := c.prompts.Render(c.prompts.Persona, nil)
	if err != nil {
		return "", err
	}
	catalog, err := c.prompts.Render(c.prompts.Catalog, nil)
	if err != nil {
		return "", err
	}
	return persona + "\n\n" + catalog, nil
}

// LatestAssistant scans turns backwards for non-empty assistant content.
func LatestAssistant(turns []statex.Turn) (string, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != statex.RoleAssistant {
			continue
		}
		if content := strings.TrimSpace(turns[i].Content); content != "" {
			return content, true
		}
	}
	return "", false
}
