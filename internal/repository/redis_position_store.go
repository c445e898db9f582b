package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"reader-sync/internal/domain"
)

const positionKeyPrefix = "reader:position:"

// RedisPositionStore implements domain.PositionStore for deployments that share
// one agent cache between processes.
type RedisPositionStore struct {
	client *redis.Client
}

var _ domain.PositionStore = (*RedisPositionStore)(nil)

// NewRedisPositionStore connects using a redis:// URL.
func NewRedisPositionStore(redisURL string) (*RedisPositionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisPositionStoreWithClient(redis.NewClient(opts)), nil
}

func NewRedisPositionStoreWithClient(client *redis.Client) *RedisPositionStore {
	return &RedisPositionStore{client: client}
}

func positionKey(documentID string) string {
	return positionKeyPrefix + documentID
}

// Ping checks connectivity.
func (s *RedisPositionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisPositionStore) Get(ctx context.Context, documentID string) (*domain.Position, error) {
	data, err := s.client.Get(ctx, positionKey(documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local position: %w", err)
	}
	var pos domain.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return nil, fmt.Errorf("failed to decode local position: %w", err)
	}
	return &pos, nil
}

func (s *RedisPositionStore) Set(ctx context.Context, documentID string, pos domain.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("failed to encode local position: %w", err)
	}
	if err := s.client.Set(ctx, positionKey(documentID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write local position: %w", err)
	}
	return nil
}

func (s *RedisPositionStore) Close() error {
	return s.client.Close()
}
