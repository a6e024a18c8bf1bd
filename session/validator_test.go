package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/skillswap/authguard/tokenstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	store    *tokenstore.Store
	clock    *fakeClock
	activity *Activity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	activity := NewActivity(clock.Now)
	key, err := tokenstore.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	c, err := tokenstore.NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	store, err := tokenstore.New(nil, c, tokenstore.Options{
		Now:      clock.Now,
		Activity: activity,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return fixture{store: store, clock: clock, activity: activity}
}

func (f fixture) validator(r Refresher) *Validator {
	return NewValidator(f.store, r, f.activity, Options{Now: f.clock.Now})
}

func TestValidateNoSession(t *testing.T) {
	f := newFixture(t)
	state, ok := f.validator(nil).Validate(context.Background())
	if ok || state != StateNoSession {
		t.Fatalf("expected no_session/false, got %s/%v", state, ok)
	}
}

func TestValidateFreshSessionTouchesActivity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Put(ctx, tokenstore.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: time.Hour})

	f.clock.Advance(10 * time.Minute)
	state, ok := f.validator(nil).Validate(ctx)
	if !ok || state != StateValid {
		t.Fatalf("expected valid/true, got %s/%v", state, ok)
	}
	if !f.activity.Last().Equal(f.clock.Now()) {
		t.Fatalf("expected activity touched at %v, got %v", f.clock.Now(), f.activity.Last())
	}
}

func TestValidateNearExpiryRefreshes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Put(ctx, tokenstore.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: 4 * time.Minute})

	var gotToken string
	v := f.validator(RefresherFunc(func(_ context.Context, rt string) (tokenstore.TokenPair, error) {
		gotToken = rt
		return tokenstore.TokenPair{AccessToken: "A2", RefreshToken: "R2", ExpiresIn: time.Hour}, nil
	}))

	state, ok := v.Validate(ctx)
	if !ok || state != StateRefreshed {
		t.Fatalf("expected refreshed/true, got %s/%v", state, ok)
	}
	if gotToken != "R" {
		t.Fatalf("expected refresher to receive stored refresh token, got %q", gotToken)
	}
	if tok, _ := f.store.AccessToken(ctx); tok != "A2" {
		t.Fatalf("expected new access token stored, got %q", tok)
	}
	if state, _ := v.Validate(ctx); state != StateValid {
		t.Fatalf("expected valid after refresh, got %s", state)
	}
}

func TestValidateRefreshFailureClears(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Put(ctx, tokenstore.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: time.Minute})

	v := f.validator(RefresherFunc(func(context.Context, string) (tokenstore.TokenPair, error) {
		return tokenstore.TokenPair{}, errors.New("refresh rejected")
	}))
	state, ok := v.Validate(ctx)
	if ok || state != StateExpired {
		t.Fatalf("expected expired/false, got %s/%v", state, ok)
	}
	if f.store.Present(ctx, tokenstore.KeyRefreshToken) {
		t.Fatal("expected store cleared after refresh failure")
	}
}

func TestValidateExpiredPair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Put(ctx, tokenstore.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: time.Second})
	f.clock.Advance(2 * time.Second)

	state, ok := f.validator(nil).Validate(ctx)
	if ok || state != StateExpired {
		t.Fatalf("expected expired/false, got %s/%v", state, ok)
	}
	if state, _ := f.validator(nil).Validate(ctx); state != StateNoSession {
		t.Fatalf("expected no_session once cleared, got %s", state)
	}
}

func TestValidateNearExpiryWithoutRefresher(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Put(ctx, tokenstore.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: time.Minute})

	state, ok := f.validator(nil).Validate(ctx)
	if !ok || state != StateNearExpiry {
		t.Fatalf("expected near_expiry/true, got %s/%v", state, ok)
	}
}

func TestConcurrentValidateRefreshesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.store.Put(ctx, tokenstore.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: time.Minute})

	var calls atomic.Int32
	release := make(chan struct{})
	v := f.validator(RefresherFunc(func(context.Context, string) (tokenstore.TokenPair, error) {
		calls.Add(1)
		<-release
		return tokenstore.TokenPair{AccessToken: "A2", RefreshToken: "R2", ExpiresIn: time.Hour}, nil
	}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Validate(ctx)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single refresh call, got %d", got)
	}
}

func TestForcedRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	v := f.validator(RefresherFunc(func(context.Context, string) (tokenstore.TokenPair, error) {
		return tokenstore.TokenPair{AccessToken: "A2", RefreshToken: "R2", ExpiresIn: time.Hour}, nil
	}))

	if err := v.Refresh(ctx); !errors.Is(err, ErrNoRefreshToken) {
		t.Fatalf("expected ErrNoRefreshToken, got %v", err)
	}
	_ = f.store.Put(ctx, tokenstore.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: time.Hour})
	if err := v.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if tok, _ := f.store.AccessToken(ctx); tok != "A2" {
		t.Fatalf("expected rotated token, got %q", tok)
	}
}

func TestActivityIgnoresEarlierTouch(t *testing.T) {
	clock := &fakeClock{now: time.Unix(100, 0)}
	a := NewActivity(clock.Now)
	a.Touch(time.Unix(50, 0))
	if !a.Last().Equal(time.Unix(100, 0)) {
		t.Fatalf("expected last unchanged, got %v", a.Last())
	}
	clock.Advance(time.Minute)
	if a.Idle() != time.Minute {
		t.Fatalf("expected idle 1m, got %v", a.Idle())
	}
	a.Mark()
	if a.Idle() != 0 {
		t.Fatalf("expected idle 0 after mark, got %v", a.Idle())
	}
}
