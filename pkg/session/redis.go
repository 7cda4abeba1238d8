package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes used in Redis.
const (
	redisSessionPrefix = "folio:session:"
	redisStatePrefix   = "folio:oauth_state:"
)

// RedisStore keeps sessions in Redis with the session expiry as the key TTL,
// so Redis removes expired sessions itself.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps a connected client. Close does not close the client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if !validID(sessionID) {
		return nil, nil
	}
	data, err := s.client.Get(ctx, redisSessionPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if sess.IsExpired() {
		return nil, nil
	}
	return &sess, nil
}

func (s *RedisStore) Set(ctx context.Context, sess *Session) error {
	if !validID(sess.ID) {
		return fmt.Errorf("invalid session id")
	}
	ttl := sess.TTL()
	if ttl == 0 {
		return s.Delete(ctx, sess.ID)
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, redisSessionPrefix+sess.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisSessionPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

// Cleanup is a no-op; keys expire through their TTL.
func (s *RedisStore) Cleanup(context.Context) error { return nil }

func (s *RedisStore) Close() error { return nil }

// RedisStateStore keeps OAuth state tokens in Redis so any instance can
// finish a sign-in another instance started.
type RedisStateStore struct {
	client redis.UniversalClient
}

// NewRedisStateStore wraps a connected client.
func NewRedisStateStore(client redis.UniversalClient) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Generate(ctx context.Context, ttl time.Duration) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, redisStatePrefix+state, "1", ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set state: %w", err)
	}
	return state, nil
}

// Validate deletes the token atomically; only the first caller sees it.
func (s *RedisStateStore) Validate(ctx context.Context, state string) (bool, error) {
	if !validID(state) {
		return false, nil
	}
	n, err := s.client.Del(ctx, redisStatePrefix+state).Result()
	if err != nil {
		return false, fmt.Errorf("redis validate state: %w", err)
	}
	return n == 1, nil
}

func (s *RedisStateStore) Cleanup(context.Context) error { return nil }

var (
	_ Store      = (*RedisStore)(nil)
	_ StateStore = (*RedisStateStore)(nil)
)
