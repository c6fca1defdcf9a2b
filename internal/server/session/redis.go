package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// cmdable is the part of *redis.Client the store uses.
type cmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisStore keeps sessions as keys with a TTL, so several processes can
// share them and they survive restarts.
type RedisStore struct {
	client cmdable
	ttl    time.Duration
}

// NewRedisStoreFromURL parses redisURL, connects and pings the server.
func NewRedisStoreFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStore(client, ttl), client, nil
}

func NewRedisStore(client cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	id := newID()
	ok, err := s.client.SetNX(ctx, keyPrefix+id, 1, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis error: %w", err)
	}
	if !ok {
		return "", errors.New("session id collision")
	}
	return id, nil
}

func (s *RedisStore) Touch(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	ok, err := s.client.Expire(ctx, keyPrefix+id, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return ok, nil
}
