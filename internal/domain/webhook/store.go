package webhook

import (
	"context"
	"time"
)

// DedupStore remembers which provider deliveries have already been
// processed so replayed webhooks are acknowledged without reprocessing.
// The key is the provider id plus the provider's transaction id.
type DedupStore interface {
	// MarkProcessed records the delivery, returning false when it was
	// already recorded within the TTL window. The check-and-set is atomic.
	MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the delivery is already recorded
	IsProcessed(ctx context.Context, deliveryID string) (bool, error)

	// Close releases store resources
	Close() error
}
