package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryProcessedKeyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryProcessedKeyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks new key as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "backfill:2024-05-01", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("returns false for already processed key", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "backfill:2024-05-02", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "backfill:2024-05-02", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "already processed key should return false")
	})

	t.Run("allows reprocessing after expiration", func(t *testing.T) {
		now := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		isNew, err := store.MarkProcessed(ctx, "backfill:2024-05-03", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)

		now = now.Add(2 * time.Minute)
		isNew, err = store.MarkProcessed(ctx, "backfill:2024-05-03", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew, "expired key should be reprocessable")
	})
}

func TestInMemoryProcessedKeyStore_Forget(t *testing.T) {
	store := NewInMemoryProcessedKeyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "open:2024-05-03:45000", time.Hour)
	require.NoError(t, err)

	processed, err := store.IsProcessed(ctx, "open:2024-05-03:45000")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, store.Forget(ctx, "open:2024-05-03:45000"))
	processed, err = store.IsProcessed(ctx, "open:2024-05-03:45000")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryProcessedKeyStore_Cleanup(t *testing.T) {
	store := NewInMemoryProcessedKeyStore()
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.MarkProcessed(ctx, "short-lived-1", time.Second)
	store.MarkProcessed(ctx, "short-lived-2", time.Second)
	store.MarkProcessed(ctx, "long-lived", time.Hour)
	assert.Equal(t, 3, store.Size())

	now = now.Add(time.Minute)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
	processed, err := store.IsProcessed(ctx, "long-lived")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryProcessedKeyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryProcessedKeyStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 100

	results := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, "backfill:2024-05-01", time.Hour)
			results <- err == nil && isNew
		}()
	}

	newCount := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			newCount++
		}
	}
	assert.Equal(t, 1, newCount, "exactly one goroutine should mark as new")
}

func TestInMemoryProcessedKeyStore_Close(t *testing.T) {
	store := NewInMemoryProcessedKeyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
