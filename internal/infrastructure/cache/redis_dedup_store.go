package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorcommerce/backend/internal/domain/webhook"
)

const dedupKeyPrefix = "webhook:dedup:"

// RedisDedupStore implements the webhook DedupStore on Redis so multiple
// instances share one replay window. SETNX gives the atomic
// check-and-set; the TTL rides on the same command.
type RedisDedupStore struct {
	client *redis.Client
}

// NewRedisDedupStore connects to Redis and verifies the connection
func NewRedisDedupStore(addr, password string, db int) (*RedisDedupStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: failed to connect to redis: %w", err)
	}

	return &RedisDedupStore{client: client}, nil
}

// NewRedisDedupStoreWithClient wraps an existing client (tests, shared
// connection pools).
func NewRedisDedupStoreWithClient(client *redis.Client) *RedisDedupStore {
	return &RedisDedupStore{client: client}
}

// MarkProcessed records the delivery id atomically, returning false when
// it already existed.
func (s *RedisDedupStore) MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, dedupKeyPrefix+deliveryID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache: failed to mark delivery: %w", err)
	}
	return set, nil
}

// IsProcessed reports whether the delivery id is recorded
func (s *RedisDedupStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	n, err := s.client.Exists(ctx, dedupKeyPrefix+deliveryID).Result()
	if err != nil {
		return false, fmt.Errorf("cache: failed to check delivery: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis client
func (s *RedisDedupStore) Close() error {
	return s.client.Close()
}

// Ensure RedisDedupStore implements the DedupStore interface
var _ webhook.DedupStore = (*RedisDedupStore)(nil)
