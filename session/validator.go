package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/skillswap/authguard/tokenstore"
)

// DefaultRefreshThreshold is the remaining lifetime below which a refresh is attempted.
const DefaultRefreshThreshold = 5 * time.Minute

// State is the validator's view of the stored session.
type State int

const (
	StateNoSession State = iota
	StateValid
	StateNearExpiry
	StateRefreshed
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateValid:
		return "valid"
	case StateNearExpiry:
		return "near_expiry"
	case StateRefreshed:
		return "refreshed"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ErrNoRefreshToken is returned by [Validator.Refresh] when nothing is stored.
var ErrNoRefreshToken = errors.New("no refresh token stored")

// Tokens is the subset of the token store the validator needs.
type Tokens interface {
	Current(ctx context.Context) (tokenstore.Session, bool)
	Put(ctx context.Context, p tokenstore.TokenPair) error
	Clear(ctx context.Context) error
	Present(ctx context.Context, key string) bool
}

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (tokenstore.TokenPair, error)
}

// RefresherFunc adapts a function to [Refresher].
type RefresherFunc func(ctx context.Context, refreshToken string) (tokenstore.TokenPair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (tokenstore.TokenPair, error) {
	return f(ctx, refreshToken)
}

// Options configures a [Validator].
type Options struct {
	RefreshThreshold time.Duration
	Now              func() time.Time
	Logger           *zap.Logger
}

// Validator evaluates the stored session. Concurrent refreshes collapse
// into one network call.
type Validator struct {
	tokens    Tokens
	refresher Refresher
	activity  *Activity
	opts      Options

	group singleflight.Group
}

// NewValidator wires a validator. refresher may be nil, in which case
// near-expiry sessions are reported as [StateNearExpiry] and stay valid.
func NewValidator(tokens Tokens, refresher Refresher, activity *Activity, opts Options) *Validator {
	if opts.RefreshThreshold <= 0 {
		opts.RefreshThreshold = DefaultRefreshThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if activity == nil {
		activity = NewActivity(opts.Now)
	}
	return &Validator{
		tokens:    tokens,
		refresher: refresher,
		activity:  activity,
		opts:      opts,
	}
}

// Activity returns the tracker shared with the token store.
func (v *Validator) Activity() *Activity {
	return v.activity
}

// Validate reports the session state and whether the caller is authenticated.
func (v *Validator) Validate(ctx context.Context) (State, bool) {
	hadToken := v.tokens.Present(ctx, tokenstore.KeyAccessToken)
	sess, ok := v.tokens.Current(ctx)
	if !ok {
		if hadToken {
			return StateExpired, false
		}
		return StateNoSession, false
	}

	now := v.opts.Now()
	if sess.ExpiresAt.Sub(now) >= v.opts.RefreshThreshold {
		v.activity.Touch(now)
		return StateValid, true
	}

	if v.refresher == nil {
		v.activity.Touch(now)
		return StateNearExpiry, true
	}

	if err := v.refresh(ctx, sess.RefreshToken); err != nil {
		v.opts.Logger.Info("session: refresh failed", zap.Error(err))
		if cerr := v.tokens.Clear(ctx); cerr != nil {
			v.opts.Logger.Warn("session: clear after refresh failure", zap.Error(cerr))
		}
		return StateExpired, false
	}
	v.activity.Touch(v.opts.Now())
	return StateRefreshed, true
}

// Refresh forces a refresh with the stored refresh token regardless of the
// remaining lifetime. On failure the store is left untouched.
func (v *Validator) Refresh(ctx context.Context) error {
	if v.refresher == nil {
		return errors.New("session: no refresher configured")
	}
	sess, ok := v.tokens.Current(ctx)
	if !ok {
		return ErrNoRefreshToken
	}
	if err := v.refresh(ctx, sess.RefreshToken); err != nil {
		return err
	}
	v.activity.Touch(v.opts.Now())
	return nil
}

func (v *Validator) refresh(ctx context.Context, refreshToken string) error {
	_, err, _ := v.group.Do(refreshToken, func() (any, error) {
		pair, err := v.refresher.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		return nil, v.tokens.Put(ctx, pair)
	})
	return err
}
