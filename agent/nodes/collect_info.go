package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

// CollectInfo fills the contact record. While fields are missing the turn ends
// with a question naming exactly those fields and PendingAction stays raised.
func CollectInfo(
	ctx context.Context,
	in *TurnState,
	collector Collector,
	ask AskRenderer,
	store statex.Store,
) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}
	sess := in.Session

	info, missing := collector.Collect(ctx, sess)
	sess.ContactInfo = info
	in.Missing = missing

	if len(missing) > 0 {
		sess.NeedsContactInfo = sess.PendingAction
		in.Reply = ask.AskFor(missing)
	} else {
		sess.NeedsContactInfo = false
	}

	logx.Ctx(ctx).Info().
		Int("missing", len(missing)).
		Str("pending_route", string(sess.PendingRoute)).
		Msg("contact info collected")
	return Checkpoint(ctx, in, store)
}
