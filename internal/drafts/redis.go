package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps drafts in Redis with a sliding expiry refreshed on every save.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. A zero ttl keeps drafts until cleared.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key Key) (json.RawMessage, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(raw), true, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, key Key, draft json.RawMessage) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := validateDraft(draft); err != nil {
		return err
	}
	return s.client.Set(ctx, key.String(), []byte(draft), s.ttl).Err()
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	return s.client.Del(ctx, key.String()).Err()
}
