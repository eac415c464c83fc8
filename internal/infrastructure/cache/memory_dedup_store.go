package cache

import (
	"context"
	"sync"
	"time"

	"github.com/creatorcommerce/backend/internal/domain/webhook"
)

// MemoryDedupStore implements the webhook DedupStore with an in-process
// map. Suitable for single-instance deployments and tests; it does not
// share state across processes.
type MemoryDedupStore struct {
	mu        sync.Mutex
	deadlines map[string]time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryDedupStore creates the store and starts its expiry sweeper
func NewMemoryDedupStore() *MemoryDedupStore {
	s := &MemoryDedupStore{
		deadlines: make(map[string]time.Time),
		stop:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweep()
	return s
}

// MarkProcessed records the delivery id, returning false when a live
// record already exists.
func (s *MemoryDedupStore) MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deadline, ok := s.deadlines[deliveryID]; ok && time.Now().Before(deadline) {
		return false, nil
	}
	s.deadlines[deliveryID] = time.Now().Add(ttl)
	return true, nil
}

// IsProcessed reports whether a live record exists for the delivery id
func (s *MemoryDedupStore) IsProcessed(ctx context.Context, deliveryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.deadlines[deliveryID]
	return ok && time.Now().Before(deadline), nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *MemoryDedupStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// sweep drops expired records so replay windows don't grow unbounded
func (s *MemoryDedupStore) sweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, deadline := range s.deadlines {
				if now.After(deadline) {
					delete(s.deadlines, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Ensure MemoryDedupStore implements the DedupStore interface
var _ webhook.DedupStore = (*MemoryDedupStore)(nil)
