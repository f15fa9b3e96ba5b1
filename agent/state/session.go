package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session is the persistent source-of-truth for one conversation thread.
// - Gating: PendingAction + PendingRoute + NeedsContactInfo + ContactInfo
// - Resumption: AwaitingConfirmation + NotifyAttemptID
// - Per-turn scratch: CatalogAnswer, NotificationStatus, NotificationOutcome, RetryNeeded
type Session struct {
	SessionID string `json:"session_id"`

	Messages []Turn `json:"messages,omitempty"`

	PendingAction     bool        `json:"pending_action"`
	PendingRoute      Route       `json:"pending_route,omitempty"`
	NeedsContactInfo  bool        `json:"needs_contact_info"`
	ContactInfo       ContactInfo `json:"contact_info"`
	LastRouteDecision Route       `json:"last_route_decision,omitempty"`

	// AwaitingConfirmation holds a pending notification until the customer
	// accepts the forwarding offer made on the previous turn.
	AwaitingConfirmation bool `json:"awaiting_confirmation"`
	// NotifyAttemptID is the human turn whose notification is being sent. It is
	// persisted before the send and cleared with the pending action.
	NotifyAttemptID string `json:"notify_attempt_id,omitempty"`

	CatalogAnswer       string              `json:"catalog_answer,omitempty"`
	NotificationStatus  string              `json:"notification_status,omitempty"`
	NotificationOutcome NotificationOutcome `json:"notification_outcome,omitempty"`
	RetryNeeded         bool                `json:"retry_needed"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTurn(role Role, content string, now time.Time) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: now.UTC(),
	}
}

type NotificationOutcome string

const (
	NotificationSent               NotificationOutcome = "sent"
	NotificationAttemptedButFailed NotificationOutcome = "attempted_but_failed"
	NotificationNotAttempted       NotificationOutcome = "not_attempted"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidSession  = errors.New("session id is empty")
	ErrInvalidState    = errors.New("invalid session state")
)

func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID: sessionID,
		Messages:  make([]Turn, 0, 8),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// SessionKey derives the stable session key of an external user.
func SessionKey(channel, userID string) string {
	channel = strings.TrimSpace(channel)
	userID = strings.TrimSpace(userID)
	if channel == "" {
		return userID
	}
	return channel + "_" + userID
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

/* ------------------------------ Turn helpers ----------------------------- */

// BeginTurn resets the scratch fields that are only meaningful within one turn.
func (s *Session) BeginTurn() {
	s.CatalogAnswer = ""
	s.NotificationStatus = ""
	s.NotificationOutcome = ""
	s.RetryNeeded = false
}

func (s *Session) AppendHuman(content string, now time.Time) Turn {
	t := NewTurn(RoleHuman, content, now)
	s.Messages = append(s.Messages, t)
	return t
}

func (s *Session) AppendAssistant(content string, now time.Time) Turn {
	t := NewTurn(RoleAssistant, content, now)
	s.Messages = append(s.Messages, t)
	return t
}

// History returns a copy of the turn sequence. Callers may not mutate the session through it.
func (s *Session) History() []Turn {
	if s == nil || len(s.Messages) == 0 {
		return nil
	}
	out := make([]Turn, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// LastTurns returns a copy of the n most recent turns.
func (s *Session) LastTurns(n int) []Turn {
	h := s.History()
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

// LatestHuman returns the most recent human turn.
func (s *Session) LatestHuman() (Turn, bool) {
	if s == nil {
		return Turn{}, false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleHuman {
			return s.Messages[i], true
		}
	}
	return Turn{}, false
}

func (s *Session) HumanTurns() []Turn {
	if s == nil {
		return nil
	}
	out := make([]Turn, 0, len(s.Messages))
	for _, t := range s.Messages {
		if t.Role == RoleHuman {
			out = append(out, t)
		}
	}
	return out
}

/* ---------------------------- Gating helpers ---------------------------- */

// MarkPending records that a notification was decided for route and has not been attempted yet.
func (s *Session) MarkPending(route Route) {
	s.PendingAction = true
	s.PendingRoute = route
}

// ClearPending is called once the notification has been attempted, whatever the outcome.
func (s *Session) ClearPending() {
	s.PendingAction = false
	s.PendingRoute = ""
	s.NeedsContactInfo = false
	s.AwaitingConfirmation = false
	s.NotifyAttemptID = ""
}

// NotifyIdempotencyKey is stable across retries of the same attempt. It is
// empty when no attempt is in flight.
func (s *Session) NotifyIdempotencyKey() string {
	if s == nil || s.NotifyAttemptID == "" {
		return ""
	}
	return s.SessionID + "-" + s.NotifyAttemptID
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.PendingAction && !s.PendingRoute.NeedsNotification() {
		return fmt.Errorf("%w: pending action without notification route (route=%q)", ErrInvalidState, s.PendingRoute)
	}
	if s.NeedsContactInfo && !s.PendingAction {
		return fmt.Errorf("%w: collecting contact info without pending action", ErrInvalidState)
	}
	if s.AwaitingConfirmation && !s.PendingAction {
		return fmt.Errorf("%w: awaiting confirmation without pending action", ErrInvalidState)
	}
	if s.NotifyAttemptID != "" && !s.PendingAction {
		return fmt.Errorf("%w: notification attempt without pending action", ErrInvalidState)
	}
	for i, t := range s.Messages {
		switch t.Role {
		case RoleHuman, RoleAssistant, RoleTool:
		default:
			return fmt.Errorf("%w: turn %d has unknown role %q", ErrInvalidState, i, t.Role)
		}
	}
	return nil
}
