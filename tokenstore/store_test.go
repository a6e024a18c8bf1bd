package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T, kv KV, timeout time.Duration) (*Store, *fakeClock) {
	t.Helper()
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	c, err := NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s, err := New(kv, c, Options{SessionTimeout: timeout, Now: clock.Now})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, clock
}

func samplePair(expiresIn time.Duration) TokenPair {
	return TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresIn: expiresIn}
}

func TestPutThenRead(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, nil, 0)

	if err := s.Put(ctx, samplePair(time.Hour)); err != nil {
		t.Fatalf("put: %v", err)
	}
	tok, ok := s.AccessToken(ctx)
	if !ok || tok != "A" {
		t.Fatalf("expected access token A, got %q ok=%v", tok, ok)
	}
	sess, ok := s.Current(ctx)
	if !ok {
		t.Fatal("expected session snapshot")
	}
	if sess.RefreshToken != "R" {
		t.Fatalf("expected refresh token R, got %q", sess.RefreshToken)
	}
	if want := clock.now.Add(time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, sess.ExpiresAt)
	}
}

func TestExpiredPairClearsEverything(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s, clock := newTestStore(t, kv, 0)

	if err := s.Put(ctx, samplePair(time.Second)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutUser(ctx, []byte(`{"id":"u1"}`)); err != nil {
		t.Fatalf("put user: %v", err)
	}
	clock.Advance(2 * time.Second)

	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("expected no session after expiry")
	}
	for _, k := range allKeys {
		if s.Present(ctx, k) {
			t.Fatalf("expected %s to be deleted", k)
		}
	}
	if kv.Len() != 0 {
		t.Fatalf("expected empty backend, got %d entries", kv.Len())
	}
}

func TestExpiryBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, nil, 0)

	_ = s.Put(ctx, samplePair(time.Minute))
	clock.Advance(time.Minute)
	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("token must be rejected at exactly the expiry instant")
	}
}

func TestIdleTimeoutClears(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, nil, 30*time.Minute)

	_ = s.Put(ctx, samplePair(2*time.Hour))
	clock.Advance(30 * time.Minute)
	if _, ok := s.AccessToken(ctx); !ok {
		t.Fatal("expected session at exactly the idle limit")
	}
	clock.Advance(time.Millisecond)
	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("expected idle timeout to clear the session")
	}
	if s.Present(ctx, KeyAccessToken) {
		t.Fatal("expected access token entry deleted")
	}
}

func TestReadDoesNotTouchActivity(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t, nil, 10*time.Minute)

	_ = s.Put(ctx, samplePair(time.Hour))
	for i := 0; i < 3; i++ {
		clock.Advance(4 * time.Minute)
		s.AccessToken(ctx)
	}
	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("reads must not extend the idle budget")
	}
}

func TestMissingEntryMeansNoSession(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s, _ := newTestStore(t, kv, 0)

	_ = s.Put(ctx, samplePair(time.Hour))
	_ = kv.Delete(ctx, KeyRefreshToken)

	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("expected no session when refresh token is missing")
	}
	if s.Present(ctx, KeyAccessToken) {
		t.Fatal("expected remaining entries to be cleared")
	}
}

func TestPutRejectsInvalidPair(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil, 0)

	cases := []TokenPair{
		{AccessToken: "A", RefreshToken: "R", ExpiresIn: 0},
		{AccessToken: "A", RefreshToken: "R", ExpiresIn: -time.Second},
		{AccessToken: "", RefreshToken: "R", ExpiresIn: time.Hour},
		{AccessToken: "A", RefreshToken: "", ExpiresIn: time.Hour},
	}
	for i, p := range cases {
		if err := s.Put(ctx, p); !errors.Is(err, ErrInvalidTokenPair) {
			t.Fatalf("case %d: expected ErrInvalidTokenPair, got %v", i, err)
		}
	}
	if s.Present(ctx, KeyAccessToken) {
		t.Fatal("rejected pair must not be written")
	}
}

func TestSwappedEntriesFailClosed(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s, _ := newTestStore(t, kv, 0)

	_ = s.Put(ctx, samplePair(time.Hour))
	access, _ := kv.Get(ctx, KeyAccessToken)
	refresh, _ := kv.Get(ctx, KeyRefreshToken)
	_ = kv.Set(ctx, KeyAccessToken, refresh)
	_ = kv.Set(ctx, KeyRefreshToken, access)

	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("swapped entries must not authenticate")
	}
	if kv.Len() != 0 {
		t.Fatalf("expected store cleared after tamper, got %d entries", kv.Len())
	}
}

func TestValuesAreNotStoredInPlaintext(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s, _ := newTestStore(t, kv, 0)

	_ = s.Put(ctx, TokenPair{AccessToken: "secret-access", RefreshToken: "secret-refresh", ExpiresIn: time.Hour})
	raw, err := kv.Get(ctx, KeyAccessToken)
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	if string(raw) == "secret-access" || len(raw) <= len("secret-access") {
		t.Fatal("expected sealed value in backend")
	}
	if raw[0] != frameVersionCurrent {
		t.Fatalf("expected frame version %d, got %d", frameVersionCurrent, raw[0])
	}
}

type failingKV struct {
	*MemoryKV
	failGet bool
	failSet bool
}

var errBackend = errors.New("backend down")

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errBackend
	}
	return f.MemoryKV.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errBackend
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func TestBackendErrorsFailClosed(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{MemoryKV: NewMemoryKV()}
	s, _ := newTestStore(t, kv, 0)

	_ = s.Put(ctx, samplePair(time.Hour))
	kv.failGet = true
	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("read error must report no session")
	}
	kv.failGet = false
	if kv.Len() != 0 {
		t.Fatal("expected best-effort clear after read error")
	}

	kv.failSet = true
	err := s.Put(ctx, samplePair(time.Hour))
	if !errors.Is(err, ErrStorage) || !errors.Is(err, errBackend) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestClearIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil, 0)

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}
	_ = s.Put(ctx, samplePair(time.Hour))
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, ok := s.AccessToken(ctx); ok {
		t.Fatal("expected no session after clear")
	}
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil, 0)

	if _, ok := s.User(ctx); ok {
		t.Fatal("expected no user on empty store")
	}
	_ = s.PutUser(ctx, []byte("profile"))
	got, ok := s.User(ctx)
	if !ok || string(got) != "profile" {
		t.Fatalf("expected profile, got %q ok=%v", got, ok)
	}
}

func TestNewRequiresCipher(t *testing.T) {
	if _, err := New(nil, nil, Options{}); err == nil {
		t.Fatal("expected error for nil cipher")
	}
}
