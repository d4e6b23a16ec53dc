package websession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps browser session contexts as JSON strings under
// websess:{id} with a fixed lifetime.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(id string) string {
	return "websess:" + id
}

func (s *RedisStore) Put(ctx context.Context, id string, wc *Context) error {
	raw, err := json.Marshal(wc)
	if err != nil {
		return fmt.Errorf("encode browser session: %w", err)
	}
	if err := s.client.Set(ctx, key(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store browser session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Context, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load browser session: %w", err)
	}
	var wc Context
	if err := json.Unmarshal(raw, &wc); err != nil {
		return nil, fmt.Errorf("decode browser session: %w", err)
	}
	return &wc, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete browser session: %w", err)
	}
	return nil
}
