package rate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, window time.Duration) (*Limiter, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := New(NewRedisStore(rdb, "test", window), Config{MaxAttempts: 5})
	return l, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestFiveFailuresBlockUntilSuccess(t *testing.T) {
	ctx := context.Background()
	l := New(nil, Config{MaxAttempts: 5})

	for i := 0; i < 5; i++ {
		if err := l.Check(ctx, "a@b.com"); err != nil {
			t.Fatalf("attempt %d: unexpected block: %v", i+1, err)
		}
		if _, err := l.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	if err := l.Check(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited after 5 failures, got %v", err)
	}

	if err := l.RecordSuccess(ctx, "a@b.com"); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if err := l.Check(ctx, "a@b.com"); err != nil {
		t.Fatalf("expected check to pass after success, got %v", err)
	}
	if n, _ := l.Attempts(ctx, "a@b.com"); n != 0 {
		t.Fatalf("expected counter reset to 0, got %d", n)
	}
}

func TestCheckDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	l := New(nil, Config{MaxAttempts: 2})

	for i := 0; i < 10; i++ {
		_ = l.Check(ctx, "x@y.com")
	}
	if n, _ := l.Attempts(ctx, "x@y.com"); n != 0 {
		t.Fatalf("check must not mutate, got count %d", n)
	}
}

func TestIdentifierNormalization(t *testing.T) {
	ctx := context.Background()
	l := New(nil, Config{MaxAttempts: 1})

	if _, err := l.RecordFailure(ctx, "  Alice@Example.COM "); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if err := l.Check(ctx, "alice@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected normalized identifier to be blocked, got %v", err)
	}
}

func TestResetClearsAllIdentifiers(t *testing.T) {
	ctx := context.Background()
	l := New(nil, Config{MaxAttempts: 1})
	_, _ = l.RecordFailure(ctx, "a@b.com")
	_, _ = l.RecordFailure(ctx, "c@d.com")

	if err := l.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, id := range []string{"a@b.com", "c@d.com"} {
		if err := l.Check(ctx, id); err != nil {
			t.Fatalf("%s still blocked after reset: %v", id, err)
		}
	}
}

func TestMemoryWindowExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	l := New(NewMemoryStore(time.Minute, clock), Config{MaxAttempts: 1})

	_, _ = l.RecordFailure(ctx, "a@b.com")
	if err := l.Check(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected block inside window, got %v", err)
	}
	now = now.Add(time.Minute)
	if err := l.Check(ctx, "a@b.com"); err != nil {
		t.Fatalf("expected window to expire, got %v", err)
	}
}

func TestRedisStoreFiveFailuresBlock(t *testing.T) {
	l, _, done := newRedisLimiter(t, 0)
	defer done()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := l.RecordFailure(ctx, "a@b.com"); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := l.Check(ctx, "a@b.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.RecordSuccess(ctx, "a@b.com"); err != nil {
		t.Fatalf("record success: %v", err)
	}
	if err := l.Check(ctx, "a@b.com"); err != nil {
		t.Fatalf("expected reset, got %v", err)
	}
}

func TestRedisStoreWindowTTL(t *testing.T) {
	l, mr, done := newRedisLimiter(t, time.Minute)
	defer done()
	ctx := context.Background()

	_, _ = l.RecordFailure(ctx, "a@b.com")
	if ttl := mr.TTL("sfa:test:a@b.com"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl on first hit, got %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if n, _ := l.Attempts(ctx, "a@b.com"); n != 0 {
		t.Fatalf("expected expired counter, got %d", n)
	}
}

func TestRedisStoreClearOnlyOwnNamespace(t *testing.T) {
	l, mr, done := newRedisLimiter(t, 0)
	defer done()
	ctx := context.Background()

	if err := mr.Set("unrelated", "1"); err != nil {
		t.Fatalf("seed unrelated key: %v", err)
	}
	_, _ = l.RecordFailure(ctx, "a@b.com")
	_, _ = l.RecordFailure(ctx, "c@d.com")

	if err := l.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists("sfa:test:a@b.com") || mr.Exists("sfa:test:c@d.com") {
		t.Fatal("expected namespace keys to be removed")
	}
	if !mr.Exists("unrelated") {
		t.Fatal("reset must not touch keys outside the namespace")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	l, mr, done := newRedisLimiter(t, 0)
	defer done()
	mr.Close()

	err := l.Check(context.Background(), "a@b.com")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestLockSerializesCheckAndRecord(t *testing.T) {
	ctx := context.Background()
	l := New(nil, Config{MaxAttempts: 3})

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("race@b.com")
			defer unlock()
			if err := l.Check(ctx, "race@b.com"); err != nil {
				return
			}
			admitted.Add(1)
			_, _ = l.RecordFailure(ctx, "race@b.com")
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 3 {
		t.Fatalf("expected exactly 3 admitted attempts, got %d", got)
	}
	l.mu.Lock()
	leaked := len(l.locks)
	l.mu.Unlock()
	if leaked != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", leaked)
	}
}
