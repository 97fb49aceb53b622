package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	t.Run("marks new event as processed", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		isNew, err := store.MarkProcessed(context.Background(), "event-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("rejects duplicate within TTL", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(context.Background(), "event-1", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(context.Background(), "event-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("accepts the same event again after TTL expiry", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(context.Background(), "event-1", time.Nanosecond)
		require.NoError(t, err)

		time.Sleep(time.Millisecond)

		isNew, err := store.MarkProcessed(context.Background(), "event-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("tracks distinct events independently", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		isNew, err := store.MarkProcessed(context.Background(), "event-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(context.Background(), "event-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	t.Run("returns false for unknown event", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		processed, err := store.IsProcessed(context.Background(), "event-1")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("returns true for marked event", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(context.Background(), "event-1", time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(context.Background(), "event-1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("returns false for expired event", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()
		defer store.Close()

		_, err := store.MarkProcessed(context.Background(), "event-1", time.Nanosecond)
		require.NoError(t, err)

		time.Sleep(time.Millisecond)

		processed, err := store.IsProcessed(context.Background(), "event-1")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_ConcurrentMarking(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	const numGoroutines = 50
	var wg sync.WaitGroup
	results := make(chan bool, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(context.Background(), "contested", time.Hour)
			assert.NoError(t, err)
			results <- isNew
		}()
	}
	wg.Wait()
	close(results)

	// Exactly one goroutine wins the first-marking race.
	newCount := 0
	for isNew := range results {
		if isNew {
			newCount++
		}
	}
	assert.Equal(t, 1, newCount)
}
