package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

// Catalog stores the catalog answer of the turn. A failed query raises
// RetryNeeded and keeps the fixed apology as provisional answer.
func Catalog(ctx context.Context, in *TurnState, catalog CatalogResponder, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	sess := in.Session

	answer, ok := catalog.Query(ctx, sess.History())
	if !ok {
		sess.RetryNeeded = true
		answer = catalog.Unavailable()
		logx.Ctx(ctx).Warn().Msg("catalog produced no answer, escalating")
	}
	sess.CatalogAnswer = answer
	return Checkpoint(ctx, in, store)
}
