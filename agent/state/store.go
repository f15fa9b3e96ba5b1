package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	defaultStoreKeyPrefix = "chative:session:"
	defaultStoreTTL       = 7 * 24 * time.Hour
)

// Store is the persistence contract used by the orchestrator.
// Load returns ErrSessionNotFound when the key has no stored state.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, st *Session) error
	Delete(ctx context.Context, sessionID string) error
}

type storeOptions struct {
	keyPrefix string
	ttl       time.Duration
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}
}

// StoreOption customizes the key-value backed stores.
type StoreOption func(*storeOptions)

func WithKeyPrefix(prefix string) StoreOption {
	return func(o *storeOptions) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			o.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.ttl = ttl
	}
}

func (o storeOptions) key(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return o.keyPrefix + sessionID, nil
}

// checkpoint carries the metadata of a serialized snapshot. It is applied
// to the caller's session only after the backend accepted the write.
type checkpoint struct {
	version   int
	createdAt time.Time
	updatedAt time.Time
}

func (c checkpoint) commit(st *Session) {
	st.Version = c.version
	st.CreatedAt = c.createdAt
	st.UpdatedAt = c.updatedAt
}

// prepareForSave serializes the next version of st without mutating it.
func prepareForSave(st *Session) ([]byte, checkpoint, error) {
	if st == nil {
		return nil, checkpoint{}, ErrNilSession
	}
	if strings.TrimSpace(st.SessionID) == "" {
		return nil, checkpoint{}, ErrInvalidSession
	}
	if err := st.Validate(); err != nil {
		return nil, checkpoint{}, err
	}

	next := *st
	next.Version++
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = time.Now().UTC()
	} else {
		next.UpdatedAt = next.UpdatedAt.UTC()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}

	payload, err := json.Marshal(&next)
	if err != nil {
		return nil, checkpoint{}, fmt.Errorf("marshal session: %w", err)
	}
	return payload, checkpoint{
		version:   next.Version,
		createdAt: next.CreatedAt,
		updatedAt: next.UpdatedAt,
	}, nil
}

func decodeSession(raw []byte) (*Session, error) {
	var st Session
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &st, nil
}

// encodeSnapshot serializes st as-is, without stamping checkpoint metadata.
func encodeSnapshot(st *Session) ([]byte, error) {
	if st == nil {
		return nil, ErrNilSession
	}
	return json.Marshal(st)
}
