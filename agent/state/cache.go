package state

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore is a write-through LRU in front of another Store.
// Entries are kept serialized so callers never share a *Session.
// It is only coherent when a single process owns the session keys it caches.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, []byte]
}

func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	if inner == nil {
		return nil, errors.New("inner store is required")
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (s *CachedStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if raw, ok := s.cache.Get(sessionID); ok {
		return decodeSession(raw)
	}

	st, err := s.inner.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.remember(st)
	return st, nil
}

func (s *CachedStore) Save(ctx context.Context, st *Session) error {
	if err := s.inner.Save(ctx, st); err != nil {
		// a failed write must not leave a stale entry behind
		if st != nil {
			s.cache.Remove(st.SessionID)
		}
		return err
	}
	s.remember(st)
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, sessionID string) error {
	s.cache.Remove(sessionID)
	return s.inner.Delete(ctx, sessionID)
}

func (s *CachedStore) remember(st *Session) {
	raw, err := encodeSnapshot(st)
	if err != nil {
		s.cache.Remove(st.SessionID)
		return
	}
	s.cache.Add(st.SessionID, raw)
}

var _ Store = (*CachedStore)(nil)
