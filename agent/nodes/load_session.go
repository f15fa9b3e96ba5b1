package orchestratornode

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/chative-concierge/agent/contract"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

// LoadSession resumes or creates the session, resets the per-turn scratch
// fields and appends the incoming human turn.
func LoadSession(ctx context.Context, in *TurnState, store statex.Store) (*TurnState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: turn state is nil", contractx.ErrValidation)
	}

	sess, err := loadOrCreate(ctx, store, in.SessionID, in.Now)
	if err != nil {
		return nil, err
	}
	sess.BeginTurn()
	sess.AppendHuman(in.Text, in.Now)
	in.Session = sess

	logx.Ctx(ctx).Debug().
		Int("turns", len(sess.Messages)).
		Bool("pending_action", sess.PendingAction).
		Msg("session loaded")
	return Checkpoint(ctx, in, store)
}

func loadOrCreate(ctx context.Context, store statex.Store, sessionID string, now time.Time) (*statex.Session, error) {
	sess, err := store.Load(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, statex.ErrSessionNotFound) {
		return nil, err
	}
	return statex.NewSession(sessionID, now), nil
}

// Checkpoint validates and persists the session at a transition boundary.
func Checkpoint(ctx context.Context, in *TurnState, store statex.Store) (*TurnState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: turn session is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}
	return in, nil
}
