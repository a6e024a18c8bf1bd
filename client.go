package authguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skillswap/authguard/internal/audit"
	"github.com/skillswap/authguard/internal/flows"
	"github.com/skillswap/authguard/internal/metrics"
	"github.com/skillswap/authguard/internal/rate"
	"github.com/skillswap/authguard/internal/security"
	"github.com/skillswap/authguard/jwt"
	"github.com/skillswap/authguard/risk"
	"github.com/skillswap/authguard/session"
	"github.com/skillswap/authguard/tokenstore"
	"github.com/skillswap/authguard/transport"
)

// ViolationHandler is called by the security monitor after the client has
// logged out because of a critical risk level or a failed integrity check.
type ViolationHandler func(ctx context.Context, status SecurityStatus)

// Client is the auth orchestrator. Construct it with [New] and [Builder.Build].
// A Client is safe for concurrent use.
type Client struct {
	config  Config
	logger  *zap.Logger
	now     func() time.Time
	storage string

	rdb     redis.UniversalClient
	closers []func() error

	activity  *session.Activity
	store     *tokenstore.Store
	limiter   *rate.Limiter
	api       *transport.Client
	inspector *jwt.Inspector
	scorer    *risk.Scorer
	validator *session.Validator
	audit     *audit.Dispatcher
	metrics   *metrics.Metrics
	flows     flows.Service

	monitorMu sync.Mutex
	monitor   *risk.Monitor

	closed atomic.Bool
}

func (c *Client) ready() error {
	if c == nil || c.closed.Load() || !c.flows.Initialized() {
		return ErrClientNotReady
	}
	return nil
}

// Login authenticates with email and password. The risk gate runs first,
// then the failed-attempt limiter, then the network call.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*AuthenticatedUser, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	u, err := c.flows.Login(ctx, email, password, rememberMe)
	if err != nil {
		return nil, err
	}
	return userFromFlow(u), nil
}

// Register creates an account and stores the issued session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthenticatedUser, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	u, err := c.flows.Register(ctx, flows.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		AcceptTerms: req.AcceptTerms,
	})
	if err != nil {
		return nil, err
	}
	return userFromFlow(u), nil
}

// Logout notifies the server when a session exists and always clears local
// state. Only local clearing failures are returned.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.flows.Logout(ctx)
}

// ForgotPassword requests a reset email and returns the server's success flag.
func (c *Client) ForgotPassword(ctx context.Context, email string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.flows.ForgotPassword(ctx, email)
}

// ValidateSession reports whether a usable session exists, refreshing a
// near-expiry one. An unusable session is logged out.
func (c *Client) ValidateSession(ctx context.Context) bool {
	if c.ready() != nil {
		return false
	}
	return c.flows.ValidateSession(ctx)
}

// RefreshSession exchanges the stored refresh token regardless of the
// remaining lifetime. A failed refresh leaves the stored session in place.
func (c *Client) RefreshSession(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.validator.Refresh(ctx); err != nil {
		if errors.Is(err, session.ErrNoRefreshToken) {
			return ErrNoSession
		}
		if errors.Is(err, tokenstore.ErrStorage) {
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		return err
	}
	return nil
}

// IsAuthenticated reports whether a usable session is stored. Unlike
// [Client.ValidateSession] it never refreshes or logs out.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if c.ready() != nil {
		return false
	}
	_, ok := c.store.Current(ctx)
	return ok
}

// CurrentUser returns the profile stored at login while the session is usable.
func (c *Client) CurrentUser(ctx context.Context) (*AuthenticatedUser, bool) {
	if c.ready() != nil {
		return nil, false
	}
	if _, ok := c.store.Current(ctx); !ok {
		return nil, false
	}
	raw, ok := c.store.User(ctx)
	if !ok {
		return nil, false
	}
	var u AuthenticatedUser
	if err := json.Unmarshal(raw, &u); err != nil {
		c.logger.Warn("stored user profile unreadable", zap.Error(err))
		return nil, false
	}
	return &u, true
}

// AccessToken returns the stored access token of a usable session.
func (c *Client) AccessToken(ctx context.Context) (string, bool) {
	if c.ready() != nil {
		return "", false
	}
	return c.store.AccessToken(ctx)
}

// SecurityStatus runs a forced risk assessment and reports it together
// with the session state.
func (c *Client) SecurityStatus(ctx context.Context) SecurityStatus {
	if c.ready() != nil {
		return SecurityStatus{Level: risk.LevelCritical, Threats: []string{risk.ThreatCheckFailed}}
	}
	c.metrics.Inc(metrics.MetricRiskAssessment)
	return c.statusOf(ctx, c.scorer.Assess(ctx, true))
}

func (c *Client) statusOf(ctx context.Context, a risk.Assessment) SecurityStatus {
	st := SecurityStatus{
		Level:               a.Level,
		DeviceSecure:        a.Level == risk.LevelLow,
		NetworkSecure:       !a.Signals.NetworkInsecure,
		AppIntegrity:        !a.Signals.AppIntegrityFailed,
		SessionValid:        !a.Signals.SessionInvalid,
		Threats:             a.Threats,
		AssessedAt:          a.AssessedAt,
		DeviceSignalsCached: a.Cached,
	}
	if sess, ok := c.store.Current(ctx); ok {
		st.SessionExpires = sess.ExpiresAt
		if claims, err := c.inspector.Inspect(sess.AccessToken); err == nil {
			st.TokenSubject = claims.Subject
		}
	}
	return st
}

// SecurityReport describes the configured security posture.
func (c *Client) SecurityReport() SecurityReport {
	cfg := c.config
	return security.BuildReport(security.ReportInput{
		Environment:       string(cfg.Environment),
		DevMode:           cfg.Security.DevMode,
		BaseURL:           cfg.API.BaseURL,
		PinCount:          len(cfg.API.Pins),
		DeviceFingerprint: c.api.Fingerprint(),
		AppSecretSet:      cfg.API.AppSecret != "",
		VerifyTokens:      c.inspector.Verifies(),
		MaxLoginAttempts:  c.limiter.MaxAttempts(),
		AttemptWindow:     cfg.Security.AttemptWindow,
		RequestTimeout:    c.api.Timeout(),
		SessionTimeout:    cfg.Session.Timeout,
		RefreshThreshold:  cfg.Session.RefreshThreshold,
		RiskCacheTTL:      cfg.Risk.CacheTTL,
		StorageBackend:    c.storage,
	})
}

// Device returns the identity sent with every request.
func (c *Client) Device() Device {
	return c.api.Device()
}

// StartMonitoring re-assesses risk every Risk.MonitorInterval until ctx is
// done or [Client.StopMonitoring] is called. A critical level or a failed
// integrity check logs the user out before handler runs. Calling it while
// a monitor runs is a no-op.
func (c *Client) StartMonitoring(ctx context.Context, handler ViolationHandler) error {
	if err := c.ready(); err != nil {
		return err
	}
	c.monitorMu.Lock()
	defer c.monitorMu.Unlock()
	if c.monitor != nil {
		return nil
	}

	c.monitor = risk.NewMonitor(c.scorer, c.config.Risk.MonitorInterval, func(ctx context.Context, a risk.Assessment) {
		c.metrics.Inc(metrics.MetricRiskAssessment)
		if !a.Blocked() && !a.Signals.AppIntegrityFailed {
			return
		}
		if err := c.flows.Logout(ctx); err != nil {
			c.logger.Warn("logout after security violation failed", zap.Error(err))
		}
		if handler != nil {
			handler(ctx, c.statusOf(ctx, a))
		}
	}, c.logger.Named("monitor"))
	c.monitor.Start(ctx)
	return nil
}

// StopMonitoring stops a running monitor and waits for it to exit.
func (c *Client) StopMonitoring() {
	c.monitorMu.Lock()
	m := c.monitor
	c.monitor = nil
	c.monitorMu.Unlock()
	if m != nil {
		m.Stop()
	}
}

// FailedAttempts returns the failed-login count for identifier.
func (c *Client) FailedAttempts(ctx context.Context, identifier string) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	n, err := c.limiter.Attempts(ctx, identifier)
	return n, translate(err)
}

// ResetFailedAttempts clears every identifier's failed-attempt counter.
func (c *Client) ResetFailedAttempts(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return translate(c.limiter.Reset(ctx))
}

// MetricsSnapshot returns a copy of all counters and histograms.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{}
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close stops the monitor, drains the audit buffer and releases resources
// the client opened itself. Stored tokens are kept.
func (c *Client) Close() error {
	if c == nil || !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.StopMonitoring()
	c.audit.Close()
	return c.closeOwned()
}

func (c *Client) closeOwned() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
