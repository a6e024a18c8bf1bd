package rate

import (
	"context"
	"strings"
	"sync"
)

// DefaultMaxAttempts is the failed-attempt budget used when Config.MaxAttempts is zero.
const DefaultMaxAttempts = 5

// Store persists failed-attempt counters keyed by normalized identifier.
type Store interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Config holds rate limiter tuning parameters.
type Config struct {
	MaxAttempts int
}

// Limiter enforces the per-identifier failed-attempt budget.
type Limiter struct {
	store  Store
	config Config

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a [Limiter] over the given store. A nil store falls back to
// an unbounded in-memory store.
func New(store Store, cfg Config) *Limiter {
	if store == nil {
		store = NewMemoryStore(0, nil)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Limiter{
		store:  store,
		config: cfg,
		locks:  make(map[string]*keyLock),
	}
}

// Normalize returns the canonical counter key for an identifier.
func Normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// MaxAttempts reports the configured budget.
func (l *Limiter) MaxAttempts() int {
	return l.config.MaxAttempts
}

// Check returns [ErrRateLimited] when the identifier has spent its budget.
// It never mutates the counter.
func (l *Limiter) Check(ctx context.Context, identifier string) error {
	count, err := l.store.Get(ctx, Normalize(identifier))
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// RecordFailure increments the counter for identifier and returns the new count.
func (l *Limiter) RecordFailure(ctx context.Context, identifier string) (int, error) {
	count, err := l.store.Incr(ctx, Normalize(identifier))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// RecordSuccess deletes the counter for identifier.
func (l *Limiter) RecordSuccess(ctx context.Context, identifier string) error {
	return l.store.Delete(ctx, Normalize(identifier))
}

// Reset clears every counter.
func (l *Limiter) Reset(ctx context.Context) error {
	return l.store.Clear(ctx)
}

// Attempts returns the current failure count. Missing entries read as zero.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.store.Get(ctx, Normalize(identifier))
	if err != nil {
		return 0, err
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// Lock serializes attempts for one identifier so that check, network call
// and record happen as a unit. The returned function releases the lock.
func (l *Limiter) Lock(identifier string) func() {
	key := Normalize(identifier)

	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.mu.Unlock()
			l.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}
