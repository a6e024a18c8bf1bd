package tokenstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry names. Each is sealed independently.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyTokenExpiry  = "token_expiry"
	KeyUserData     = "user_data"
)

// DefaultSessionTimeout is the idle budget applied when Options.SessionTimeout is zero.
const DefaultSessionTimeout = 30 * time.Minute

var (
	// ErrInvalidTokenPair is returned by [Store.Put] for empty tokens or a
	// non-positive lifetime.
	ErrInvalidTokenPair = errors.New("invalid token pair")
	// ErrStorage wraps backend write failures.
	ErrStorage = errors.New("token storage failure")
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyTokenExpiry, KeyUserData}

// TokenPair is the credential set issued by the server on login, register
// or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresIn    time.Duration
}

// Session is a decrypted snapshot of the stored pair.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ActivityTracker records the last user activity. The store touches it on
// Put and reads it to enforce the idle timeout. Trackers start at their
// construction time, so a pair persisted by an earlier process gets a full
// idle budget after restart.
type ActivityTracker interface {
	Touch(t time.Time)
	Last() time.Time
}

// Options configures a [Store].
type Options struct {
	SessionTimeout time.Duration
	Now            func() time.Time
	Activity       ActivityTracker
	Logger         *zap.Logger
}

// Store is the sole writer of the token pair. Construct one per process.
type Store struct {
	kv     KV
	cipher *Cipher
	opts   Options

	mu sync.Mutex
}

// New creates a Store. A nil kv uses a fresh [MemoryKV].
func New(kv KV, c *Cipher, opts Options) (*Store, error) {
	if c == nil {
		return nil, errors.New("tokenstore: cipher is required")
	}
	if kv == nil {
		kv = NewMemoryKV()
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = DefaultSessionTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Activity == nil {
		opts.Activity = &memoryActivity{last: opts.Now()}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{kv: kv, cipher: c, opts: opts}, nil
}

// GenerateKey returns a random 32-byte key for [NewCipher].
func GenerateKey() ([]byte, error) {
	k := make([]byte, 32)
	if _, err := rand.Read(k); err != nil {
		return nil, err
	}
	return k, nil
}

// Put stores the pair with expiry = now + ExpiresIn and marks activity.
// The three entries are written independently; a failure midway leaves the
// store in a state reads treat as no session.
func (s *Store) Put(ctx context.Context, p TokenPair) error {
	if p.AccessToken == "" || p.RefreshToken == "" || p.ExpiresIn <= 0 {
		return ErrInvalidTokenPair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	expiry := now.Add(p.ExpiresIn).UnixMilli()

	if err := s.put(ctx, KeyAccessToken, []byte(p.AccessToken)); err != nil {
		return err
	}
	if err := s.put(ctx, KeyRefreshToken, []byte(p.RefreshToken)); err != nil {
		return err
	}
	if err := s.put(ctx, KeyTokenExpiry, []byte(strconv.FormatInt(expiry, 10))); err != nil {
		return err
	}
	s.opts.Activity.Touch(now)
	return nil
}

// AccessToken returns the stored access token when a usable session exists.
// Any violation clears the store.
func (s *Store) AccessToken(ctx context.Context) (string, bool) {
	sess, ok := s.Current(ctx)
	if !ok {
		return "", false
	}
	return sess.AccessToken, true
}

// RefreshToken returns the stored refresh token under the same rules as
// [Store.AccessToken].
func (s *Store) RefreshToken(ctx context.Context) (string, bool) {
	sess, ok := s.Current(ctx)
	if !ok {
		return "", false
	}
	return sess.RefreshToken, true
}

// Expiry returns the absolute expiry of a usable session.
func (s *Store) Expiry(ctx context.Context) (time.Time, bool) {
	sess, ok := s.Current(ctx)
	if !ok {
		return time.Time{}, false
	}
	return sess.ExpiresAt, true
}

// Current returns the full snapshot when all entries are present, the
// pair has not expired and the idle timeout has not elapsed. It does not
// touch activity.
func (s *Store) Current(ctx context.Context) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, reason := s.load(ctx)
	if reason == "" {
		return sess, true
	}
	if reason != "absent" {
		s.opts.Logger.Debug("tokenstore: session rejected", zap.String("reason", reason))
	}
	if err := s.clear(ctx); err != nil {
		s.opts.Logger.Warn("tokenstore: clear after rejection failed", zap.Error(err))
	}
	return Session{}, false
}

func (s *Store) load(ctx context.Context) (Session, string) {
	access, err := s.get(ctx, KeyAccessToken)
	if err != nil {
		return Session{}, reasonFor(err)
	}
	refresh, err := s.get(ctx, KeyRefreshToken)
	if err != nil {
		return Session{}, reasonFor(err)
	}
	rawExpiry, err := s.get(ctx, KeyTokenExpiry)
	if err != nil {
		return Session{}, reasonFor(err)
	}
	ms, err := strconv.ParseInt(string(rawExpiry), 10, 64)
	if err != nil {
		return Session{}, "expiry_unparseable"
	}

	now := s.opts.Now()
	expiresAt := time.UnixMilli(ms)
	if !now.Before(expiresAt) {
		return Session{}, "expired"
	}
	if now.Sub(s.opts.Activity.Last()) > s.opts.SessionTimeout {
		return Session{}, "idle_timeout"
	}

	return Session{
		AccessToken:  string(access),
		RefreshToken: string(refresh),
		ExpiresAt:    expiresAt,
	}, ""
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "absent"
	case errors.Is(err, ErrTampered), errors.Is(err, ErrMalformedFrame):
		return "tampered"
	default:
		return "backend_error"
	}
}

// PutUser stores an opaque encoded user profile next to the tokens.
func (s *Store) PutUser(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, KeyUserData, data)
}

// User returns the stored profile. It does not evaluate session validity.
func (s *Store) User(ctx context.Context) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.get(ctx, KeyUserData)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Present reports whether the raw entry exists, without decrypting it.
func (s *Store) Present(ctx context.Context, key string) bool {
	_, err := s.kv.Get(ctx, key)
	return err == nil
}

// Clear deletes every entry. Deleting absent entries is not an error.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) error {
	var errs []error
	for _, k := range allKeys {
		if err := s.kv.Delete(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrStorage, errors.Join(errs...))
	}
	return nil
}

func (s *Store) put(ctx context.Context, name string, value []byte) error {
	sealed, err := s.cipher.Seal(name, value)
	if err != nil {
		return fmt.Errorf("%w: seal %s: %w", ErrStorage, name, err)
	}
	if err := s.kv.Set(ctx, name, sealed); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorage, name, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, name string) ([]byte, error) {
	raw, err := s.kv.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.cipher.Open(name, raw)
}

type memoryActivity struct {
	mu   sync.Mutex
	last time.Time
}

func (a *memoryActivity) Touch(t time.Time) {
	a.mu.Lock()
	a.last = t
	a.mu.Unlock()
}

func (a *memoryActivity) Last() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
