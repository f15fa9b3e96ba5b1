package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

func Combine(ctx context.Context, in *TurnState, combiner Combiner, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	sess := in.Session
	in.Reply = combiner.Combine(ctx, sess.CatalogAnswer, sess.NotificationStatus, sess.NotificationOutcome)
	return Checkpoint(ctx, in, store)
}
