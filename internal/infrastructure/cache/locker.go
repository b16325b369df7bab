package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when another holder owns the lock
var ErrLockNotObtained = errors.New("lock not obtained")

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker grants exclusive, expiring locks by key
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker guards operations across instances with bsm/redislock
type RedisLocker struct {
	client *redislock.Client
	prefix string
}

// NewRedisLocker creates a locker on top of a Redis client
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "dashboard:lock:"
	}
	return &RedisLocker{client: redislock.New(client), prefix: prefix}
}

// Obtain tries once; it does not wait for the current holder
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}
	return redisLock{lock: lock}, nil
}

type redisLock struct {
	lock *redislock.Lock
}

func (l redisLock) Release(ctx context.Context) error {
	err := l.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}

// LocalLocker is an in-process Locker for single-instance deployments
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocalLocker creates an in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

// Obtain grants the lock unless an unexpired holder exists
func (l *LocalLocker) Obtain(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, ErrLockNotObtained
	}
	until := now.Add(ttl)
	l.held[key] = until
	return &localLock{locker: l, key: key, until: until}, nil
}

type localLock struct {
	locker *LocalLocker
	key    string
	until  time.Time
}

func (l *localLock) Release(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if until, ok := l.locker.held[l.key]; ok && until.Equal(l.until) {
		delete(l.locker.held, l.key)
	}
	return nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
