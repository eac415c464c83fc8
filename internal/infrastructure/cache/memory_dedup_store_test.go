package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDedupStoreMarkProcessed(t *testing.T) {
	store := NewMemoryDedupStore()
	defer store.Close()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "ccbill:txn456", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkProcessed(ctx, "ccbill:txn456", time.Hour)
	require.NoError(t, err)
	assert.False(t, second)

	processed, err := store.IsProcessed(ctx, "ccbill:txn456")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestMemoryDedupStoreExpiry(t *testing.T) {
	store := NewMemoryDedupStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "plisio:pl-1", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	processed, err := store.IsProcessed(ctx, "plisio:pl-1")
	require.NoError(t, err)
	assert.False(t, processed)

	// An expired record can be claimed again.
	again, err := store.MarkProcessed(ctx, "plisio:pl-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestMemoryDedupStoreConcurrentClaims(t *testing.T) {
	store := NewMemoryDedupStore()
	defer store.Close()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkProcessed(ctx, "coinbase:CB1", time.Hour)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly one goroutine claims a given delivery.
	assert.Equal(t, 1, winners)
}

func TestMemoryDedupStoreCloseIdempotent(t *testing.T) {
	store := NewMemoryDedupStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestMemoryDedupStoreIndependentKeys(t *testing.T) {
	store := NewMemoryDedupStore()
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := store.MarkProcessed(ctx, fmt.Sprintf("btcpay:inv-%d", i), time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
