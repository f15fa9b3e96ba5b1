package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

// FinalizeReply appends the single assistant turn of the turn and checkpoints.
func FinalizeReply(ctx context.Context, in *TurnState, store statex.Store) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrValidation)
	}
	in.Session.AppendAssistant(reply, in.Now)
	if _, err := Checkpoint(ctx, in, store); err != nil {
		return GraphOutput{}, err
	}

	return GraphOutput{
		Reply:    reply,
		Route:    in.Decision,
		Outcome:  in.Session.NotificationOutcome,
		Pending:  in.Session.PendingAction,
		Complete: in.Session.ContactInfo.Complete(),
	}, nil
}
