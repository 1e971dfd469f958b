package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore keeps the token under prefix+key with no expiry; expiry is
// discovered by validating with the gateway.
func NewRedisStore(client *redis.Client, prefix, key string) Store {
	if key == "" {
		key = DefaultKey
	}
	return &redisStore{client: client, key: prefix + key}
}

func (s *redisStore) Save(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return token, true, nil
}

func (s *redisStore) Remove(ctx context.Context) error {
	// DEL of a missing key returns 0, not an error.
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}
