package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

func Direct(ctx context.Context, in *TurnState, direct DirectResponder, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	in.Reply = direct.Respond(ctx, in.Session.History())
	return Checkpoint(ctx, in, store)
}
