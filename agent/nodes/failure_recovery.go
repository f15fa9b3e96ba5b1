package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

// FailureRecovery answers with the escalation offer. A pending "both" request
// keeps only its notification, held until the customer accepts the offer.
func FailureRecovery(ctx context.Context, in *TurnState, recovery RecoveryResponder, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	sess := in.Session
	if sess.PendingAction {
		if sess.PendingRoute == statex.RouteBoth {
			sess.PendingRoute = statex.RouteNotify
		}
		sess.AwaitingConfirmation = true
	}
	in.Reply = recovery.Respond()
	return Checkpoint(ctx, in, store)
}
