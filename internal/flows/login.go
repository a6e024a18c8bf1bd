package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	NotReady    error
	Validation  error
	RateLimited error
	Storage     error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Gate GateDeps

	// Lock serializes check, network call and record for one identifier.
	Lock          func(identifier string) func()
	CheckRate     func(ctx context.Context, identifier string) error
	RecordFailure func(ctx context.Context, identifier string) (int, error)
	RecordSuccess func(ctx context.Context, identifier string) error

	Authenticate func(ctx context.Context, email, password string, rememberMe bool) (Grant, error)
	PersistGrant func(ctx context.Context, g Grant) error
	// Translate maps a transport failure into a host error.
	Translate func(error) error

	Now            func() time.Time
	MetricInc      func(int)
	ObserveLatency func(time.Duration)
	EmitAudit      AuditFunc
	Warn           func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

func (d *LoginDeps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MetricInc == nil {
		d.MetricInc = noopMetric
	}
	if d.ObserveLatency == nil {
		d.ObserveLatency = func(time.Duration) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = noopAudit
	}
	if d.Warn == nil {
		d.Warn = noopWarn
	}
	if d.Translate == nil {
		d.Translate = func(err error) error { return err }
	}
	if d.Lock == nil {
		d.Lock = func(string) func() { return func() {} }
	}
}

// RunLogin authenticates identifier/secret. Each logical attempt that
// reaches the network and fails is counted exactly once.
func RunLogin(ctx context.Context, identifier, secret string, rememberMe bool, deps LoginDeps) (*User, error) {
	deps.defaults()
	if deps.CheckRate == nil || deps.RecordFailure == nil || deps.RecordSuccess == nil ||
		deps.Authenticate == nil || deps.PersistGrant == nil {
		return nil, deps.Errors.NotReady
	}

	email := SanitizeEmail(identifier)
	masked := MaskEmail(email)
	if email == "" || secret == "" {
		return nil, fmt.Errorf("%w: email and password are required", deps.Errors.Validation)
	}

	verdict, err := runGate(ctx, "login", masked, deps.Gate)
	if err != nil {
		return nil, err
	}

	unlock := deps.Lock(email)
	defer unlock()

	if err := deps.CheckRate(ctx, email); err != nil {
		if errors.Is(err, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, masked, verdict.Level, err, nil)
		}
		return nil, err
	}

	start := deps.Now()
	grant, err := deps.Authenticate(ctx, email, secret, rememberMe)
	deps.ObserveLatency(deps.Now().Sub(start))
	if err != nil {
		count, rerr := deps.RecordFailure(ctx, email)
		if rerr != nil {
			deps.Warn("failed to record login failure", "identifier", masked, "error", rerr)
		}
		mapped := deps.Translate(err)
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, masked, verdict.Level, mapped, func() map[string]string {
			return map[string]string{"failed_attempts": fmt.Sprint(count)}
		})
		return nil, mapped
	}

	if err := deps.RecordSuccess(ctx, email); err != nil {
		deps.Warn("failed to reset login attempts", "identifier", masked, "error", err)
	}
	if err := deps.PersistGrant(ctx, grant); err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.Storage, err)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, masked, verdict.Level, wrapped, nil)
		return nil, wrapped
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, masked, verdict.Level, nil, func() map[string]string {
		return map[string]string{"remember_me": fmt.Sprint(rememberMe)}
	})
	user := grant.User
	return &user, nil
}
