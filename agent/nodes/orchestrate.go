package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

// Orchestrate takes the routing decision of the turn. A decision that needs a
// notification raises PendingAction until the notification is attempted.
// A pending notification offered back to the customer only resumes when the
// reply accepts the offer.
func Orchestrate(ctx context.Context, in *TurnState, router Router, confirm Confirmer, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	sess := in.Session

	if sess.NotifyAttemptID != "" {
		// the sender was reached on an earlier turn but its outcome was lost
		logx.Ctx(ctx).Warn().
			Str("attempt_id", sess.NotifyAttemptID).
			Str("pending_route", string(sess.PendingRoute)).
			Msg("unrecorded notification attempt, not resending")
		sess.ClearPending()
	}
	if sess.AwaitingConfirmation {
		sess.AwaitingConfirmation = false
		if !confirm.Confirms(in.Text) {
			logx.Ctx(ctx).Info().Str("pending_route", string(sess.PendingRoute)).Msg("forwarding offer declined")
			sess.ClearPending()
		}
	}

	decision := router.Route(ctx, in.Text, sess.History(), sess.PendingAction)
	in.Decision = decision
	sess.LastRouteDecision = decision
	if decision.NeedsNotification() {
		sess.MarkPending(decision)
	}

	logx.Ctx(ctx).Info().
		Str("route", string(decision)).
		Bool("pending_action", sess.PendingAction).
		Bool("contact_complete", sess.ContactInfo.Complete()).
		Msg("turn routed")
	return Checkpoint(ctx, in, store)
}
