package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	logx "github.com/tanpawarit/chative-concierge/pkg/logger"
)

// RedisStore persists sessions as JSON strings in Redis.
type RedisStore struct {
	rdb  redis.Cmdable
	opts storeOptions
}

func NewRedisStore(rdb redis.Cmdable, opts ...StoreOption) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	store := &RedisStore{rdb: rdb, opts: defaultStoreOptions()}
	for _, opt := range opts {
		if opt != nil {
			opt(&store.opts)
		}
	}
	if store.opts.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	key, err := s.opts.key(sessionID)
	if err != nil {
		return nil, err
	}

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return decodeSession(raw)
}

func (s *RedisStore) Save(ctx context.Context, st *Session) error {
	payload, cp, err := prepareForSave(st)
	if err != nil {
		return err
	}
	key, err := s.opts.key(st.SessionID)
	if err != nil {
		return err
	}

	// a zero ttl keeps the key without expiry
	if err := s.rdb.Set(ctx, key, payload, s.opts.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session to redis")
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	cp.commit(st)
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.opts.key(sessionID)
	if err != nil {
		return err
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
