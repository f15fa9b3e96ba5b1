package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

// Notify attempts the pending notification once. PendingAction is cleared after
// the attempt whatever the outcome; the outcome is recorded on its own.
// The attempt itself is checkpointed before the send.
func Notify(ctx context.Context, in *TurnState, notifier NotifyResponder, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	sess := in.Session

	if turn, ok := sess.LatestHuman(); ok {
		sess.NotifyAttemptID = turn.ID
		if _, err := Checkpoint(ctx, in, store); err != nil {
			return nil, err
		}
	}

	outcome, status := notifier.Notify(ctx, sess)
	sess.NotificationOutcome = outcome
	sess.NotificationStatus = status
	sess.NotifyAttemptID = ""
	if sess.ContactInfo.Complete() {
		sess.ClearPending()
	}

	logx.Ctx(ctx).Info().Str("outcome", string(outcome)).Msg("notification step finished")
	return Checkpoint(ctx, in, store)
}
