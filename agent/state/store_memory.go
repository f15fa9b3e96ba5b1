package state

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps serialized sessions in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	s.mu.RLock()
	raw, ok := s.data[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(raw)
}

func (s *MemoryStore) Save(ctx context.Context, st *Session) error {
	payload, cp, err := prepareForSave(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[st.SessionID] = payload
	s.mu.Unlock()
	cp.commit(st)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	delete(s.data, sessionID)
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
