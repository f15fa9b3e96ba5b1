package orchestratornode

import (
	"context"
	"errors"
	"time"

	statex "github.com/tanpawarit/chative-concierge/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

// Node names of the turn graph.
const (
	NodeValidateRequest = "validate_request"
	NodeLoadSession     = "load_session"
	NodeOrchestrate     = "orchestrate"
	NodeCollectInfo     = "collect_info"
	NodeCatalog         = "catalog"
	NodeNotify          = "notify"
	NodeDirect          = "direct"
	NodeCombine         = "combine"
	NodeFailureRecovery = "failure_recovery"
	NodeFinalizeReply   = "finalize_reply"
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply    string
	Route    statex.Route
	Outcome  statex.NotificationOutcome
	Pending  bool
	Complete bool
}

// TurnState flows through every node of one turn. Session is the only state
// that survives the turn.
type TurnState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session  *statex.Session
	Decision statex.Route
	Missing  []statex.ContactField

	Reply string
}

// Router picks the handling path of a turn.
type Router interface {
	Route(ctx context.Context, latest string, history []statex.Turn, pending bool) statex.Route
}

// Confirmer reads whether a reply accepts an offer made on the previous turn.
type Confirmer interface {
	Confirms(text string) bool
}

type Collector interface {
	Collect(ctx context.Context, sess *statex.Session) (statex.ContactInfo, []statex.ContactField)
}

type CatalogResponder interface {
	Query(ctx context.Context, history []statex.Turn) (string, bool)
	Unavailable() string
}

type NotifyResponder interface {
	Notify(ctx context.Context, sess *statex.Session) (statex.NotificationOutcome, string)
}

type DirectResponder interface {
	Respond(ctx context.Context, history []statex.Turn) string
}

type Combiner interface {
	Combine(ctx context.Context, catalogAnswer, notificationStatus string, outcome statex.NotificationOutcome) string
}

type RecoveryResponder interface {
	Respond() string
}

// AskRenderer builds the question asking for exactly the missing fields.
type AskRenderer interface {
	AskFor(missing []statex.ContactField) string
}
