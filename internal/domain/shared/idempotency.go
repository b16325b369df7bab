package shared

import (
	"context"
	"time"
)

// ProcessedKeyStore remembers one-shot operations that already ran for a key,
// such as the backfill write of a given day
type ProcessedKeyStore interface {
	// MarkProcessed marks a key as processed with a TTL
	// Returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Forget clears a key so the operation may run again
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// ProcessedKeyConfig holds configuration for one-shot bookkeeping
type ProcessedKeyConfig struct {
	// TTL bounds how long a key is remembered
	// Default: 36 hours, long enough to span a day close
	TTL time.Duration
}

// DefaultProcessedKeyConfig returns the default configuration
func DefaultProcessedKeyConfig() ProcessedKeyConfig {
	return ProcessedKeyConfig{
		TTL: 36 * time.Hour,
	}
}
