package orchestrator

import (
	"errors"
	"fmt"

	"github.com/tanpawarit/chative-concierge/agent/collector"
	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	llmx "github.com/tanpawarit/chative-concierge/agent/llm"
	nodex "github.com/tanpawarit/chative-concierge/agent/nodes"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	"github.com/tanpawarit/chative-concierge/agent/responder"
	"github.com/tanpawarit/chative-concierge/agent/router"
)

// Capabilities are the immutable handles the graph calls into. They are built
// once before serving traffic.
type Capabilities struct {
	Router    nodex.Router
	Confirm   nodex.Confirmer
	Collector nodex.Collector
	Ask       nodex.AskRenderer
	Catalog   nodex.CatalogResponder
	Notifier  nodex.NotifyResponder
	Direct    nodex.DirectResponder
	Combiner  nodex.Combiner
	Recovery  nodex.RecoveryResponder
}

func (c Capabilities) validate() error {
	missing := map[string]bool{
		"router":    c.Router == nil,
		"confirm":   c.Confirm == nil,
		"collector": c.Collector == nil,
		"ask":       c.Ask == nil,
		"catalog":   c.Catalog == nil,
		"notifier":  c.Notifier == nil,
		"direct":    c.Direct == nil,
		"combiner":  c.Combiner == nil,
		"recovery":  c.Recovery == nil,
	}
	for name, isMissing := range missing {
		if isMissing {
			return fmt.Errorf("%w: %s capability is required", contractx.ErrValidation, name)
		}
	}
	return nil
}

// Dependencies are the external capabilities the responders wrap. Catalog and
// Sender may be nil when the deployment has none configured.
type Dependencies struct {
	Completers llmx.Completers
	Catalog    contractx.CatalogSearcher
	Sender     contractx.NotificationSender
	Recipient  string
	Prompts    *promptx.PromptSet
}

func NewCapabilities(deps Dependencies) (Capabilities, error) {
	if deps.Prompts == nil {
		return Capabilities{}, errors.New("prompts are required")
	}
	p := deps.Prompts

	r, err := router.New(deps.Completers.Router, p)
	if err != nil {
		return Capabilities{}, err
	}
	col, err := collector.New(deps.Completers.Extractor, p)
	if err != nil {
		return Capabilities{}, err
	}
	catalog, err := responder.NewCatalog(deps.Catalog, p)
	if err != nil {
		return Capabilities{}, err
	}
	notifier, err := responder.NewNotifier(deps.Sender, p, deps.Recipient)
	if err != nil {
		return Capabilities{}, err
	}
	direct, err := responder.NewDirect(deps.Completers.Composer, p)
	if err != nil {
		return Capabilities{}, err
	}
	combiner, err := responder.NewCombiner(deps.Completers.Composer, p)
	if err != nil {
		return Capabilities{}, err
	}
	recovery, err := responder.NewRecovery(p)
	if err != nil {
		return Capabilities{}, err
	}

	return Capabilities{
		Router:    r,
		Confirm:   p,
		Collector: col,
		Ask:       p,
		Catalog:   catalog,
		Notifier:  notifier,
		Direct:    direct,
		Combiner:  combiner,
		Recovery:  recovery,
	}, nil
}
