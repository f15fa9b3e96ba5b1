package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	nodex "github.com/tanpawarit/chative-concierge/agent/nodes"
	"github.com/tanpawarit/chative-concierge/agent/observers"
	promptx "github.com/tanpawarit/chative-concierge/agent/prompt"
	statex "github.com/tanpawarit/chative-concierge/agent/state"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	// Prompts supplies the outermost apology returned by Process.
	Prompts *promptx.PromptSet
	// Observe attaches the zerolog graph observers to every turn.
	Observe bool
}

type Orchestrator struct {
	store statex.Store
	caps  Capabilities
	locks *statex.KeyedMutex

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
	callbacks   einocb.Handler
	fatalReply  string

	now func() time.Time
}

func New(store statex.Store, caps Capabilities, cfg Config) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if err := caps.validate(); err != nil {
		return nil, err
	}
	if cfg.Prompts == nil {
		return nil, errors.New("prompts are required")
	}

	o := &Orchestrator{
		store:      store,
		caps:       caps,
		locks:      statex.NewKeyedMutex(),
		fatalReply: cfg.Prompts.FatalError(),
		now:        time.Now,
	}
	if cfg.Observe {
		o.callbacks = observers.NewAllCallbacks()
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn runs one message through the graph. Turns of the same session are
// serialized; different sessions run concurrently.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, text string) (nodex.GraphOutput, error) {
	sessionID = strings.TrimSpace(sessionID)
	unlock := o.locks.Lock(sessionID)
	defer unlock()

	ctx = logx.WithFields(ctx, "request_id", uuid.NewString(), "session_id", sessionID)

	var opts []compose.Option
	if o.callbacks != nil {
		opts = append(opts, compose.WithCallbacks(o.callbacks))
	}
	return o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	}, opts...)
}

func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.HandleTurn(ctx, sessionID, text)
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Process is the inbound entry point. It never fails: any error or panic is
// logged and answered with the fixed apology.
func (o *Orchestrator) Process(ctx context.Context, sessionID string, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			logx.Ctx(ctx).Error().Interface("panic", r).Str("session_id", sessionID).Msg("turn panicked")
			reply = o.fatalReply
		}
	}()

	reply, err := o.HandleMessage(ctx, sessionID, text)
	if err != nil {
		logx.Ctx(ctx).Error().Err(err).Str("session_id", sessionID).Msg("turn failed")
		return o.fatalReply
	}
	return reply
}
