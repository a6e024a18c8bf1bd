package authguard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/skillswap/authguard/internal/audit"
	"github.com/skillswap/authguard/internal/flows"
	"github.com/skillswap/authguard/internal/metrics"
	"github.com/skillswap/authguard/risk"
	"github.com/skillswap/authguard/tokenstore"
	"github.com/skillswap/authguard/transport"
)

func newFlowService(c *Client) flows.Service {
	gate := flows.GateDeps{
		Assess:    c.assessGate,
		MetricInc: c.metricInc,
		EmitAudit: c.emitAudit,
		Warn:      c.warn,
		Blocked:   ErrSecurityBlocked,
		Metrics: flows.GateMetrics{
			SecurityBlocked: int(metrics.MetricSecurityBlocked),
			SecurityWarning: int(metrics.MetricSecurityWarning),
		},
		Events: flows.GateEvents{
			SecurityBlocked: audit.EventSecurityBlocked,
			SecurityWarning: audit.EventSecurityWarning,
		},
	}

	return flows.New(flows.Deps{
		Login: flows.LoginDeps{
			Gate: gate,
			Lock: c.limiter.Lock,
			CheckRate: func(ctx context.Context, identifier string) error {
				return translate(c.limiter.Check(ctx, identifier))
			},
			RecordFailure:  c.limiter.RecordFailure,
			RecordSuccess:  c.limiter.RecordSuccess,
			Authenticate:   c.authenticate,
			PersistGrant:   c.persistGrant,
			Translate:      c.translateTransport,
			Now:            c.now,
			MetricInc:      c.metricInc,
			ObserveLatency: c.observe(metrics.MetricLoginLatency),
			EmitAudit:      c.emitAudit,
			Warn:           c.warn,
			Metrics: flows.LoginMetrics{
				LoginSuccess:     int(metrics.MetricLoginSuccess),
				LoginFailure:     int(metrics.MetricLoginFailure),
				LoginRateLimited: int(metrics.MetricLoginRateLimited),
			},
			Events: flows.LoginEvents{
				LoginSuccess:     audit.EventLoginSuccess,
				LoginFailure:     audit.EventLoginFailure,
				LoginRateLimited: audit.EventLoginRateLimited,
			},
			Errors: flows.LoginErrors{
				NotReady:    ErrClientNotReady,
				Validation:  ErrValidation,
				RateLimited: ErrRateLimitExceeded,
				Storage:     ErrStorage,
			},
		},
		Register: flows.RegisterDeps{
			Gate:          gate,
			CreateAccount: c.createAccount,
			PersistGrant:  c.persistGrant,
			Translate:     c.translateTransport,
			MetricInc:     c.metricInc,
			EmitAudit:     c.emitAudit,
			Metrics: flows.RegisterMetrics{
				RegisterSuccess: int(metrics.MetricRegisterSuccess),
				RegisterFailure: int(metrics.MetricRegisterFailure),
			},
			Events: flows.RegisterEvents{
				RegisterSuccess: audit.EventRegisterSuccess,
				RegisterFailure: audit.EventRegisterFailure,
			},
			Errors: flows.RegisterErrors{
				NotReady:   ErrClientNotReady,
				Validation: ErrValidation,
				Storage:    ErrStorage,
			},
		},
		Logout: flows.LogoutDeps{
			AccessToken:  c.store.AccessToken,
			Identifier:   c.storedIdentifier,
			Notify:       c.api.Logout,
			Clear:        c.clearSession,
			ResetLimiter: c.limiter.RecordSuccess,
			MetricInc:    c.metricInc,
			EmitAudit:    c.emitAudit,
			Warn:         c.warn,
			Metrics: flows.LogoutMetrics{
				Logout:              int(metrics.MetricLogout),
				LogoutRemoteFailure: int(metrics.MetricLogoutRemoteFailure),
			},
			Events: flows.LogoutEvents{Logout: audit.EventLogout},
		},
		Forgot: flows.ForgotDeps{
			Request:   c.api.ForgotPassword,
			Translate: c.translateTransport,
			MetricInc: c.metricInc,
			EmitAudit: c.emitAudit,
			Metrics:   flows.ForgotMetrics{PasswordResetRequest: int(metrics.MetricPasswordResetRequest)},
			Events:    flows.ForgotEvents{PasswordResetRequested: audit.EventPasswordResetRequested},
			Errors: flows.ForgotErrors{
				NotReady:   ErrClientNotReady,
				Validation: ErrValidation,
			},
		},
		Refresh: flows.RefreshDeps{
			Exchange:       c.exchange,
			Translate:      c.translateTransport,
			Now:            c.now,
			ObserveLatency: c.observe(metrics.MetricRefreshLatency),
			MetricInc:      c.metricInc,
			EmitAudit:      c.emitAudit,
			Metrics:        flows.RefreshMetrics{SessionRefreshed: int(metrics.MetricSessionRefreshed)},
			Events:         flows.RefreshEvents{SessionRefreshed: audit.EventSessionRefreshed},
			NotReady:       ErrClientNotReady,
		},
		Validate: flows.ValidateDeps{
			Validate: func(ctx context.Context) (string, bool) {
				state, ok := c.validator.Validate(ctx)
				return state.String(), ok
			},
			Logout:    func(ctx context.Context) error { return c.flows.Logout(ctx) },
			MetricInc: c.metricInc,
			EmitAudit: c.emitAudit,
			Warn:      c.warn,
			Metrics: flows.ValidateMetrics{
				SessionValid:   int(metrics.MetricSessionValid),
				SessionExpired: int(metrics.MetricSessionExpired),
			},
			Events: flows.ValidateEvents{SessionExpired: audit.EventSessionExpired},
		},
	})
}

// assessGate evaluates risk for login and registration. The missing
// session is expected there and is not reported as a threat.
func (c *Client) assessGate(ctx context.Context) flows.RiskVerdict {
	a := c.scorer.Assess(ctx, false)
	c.metrics.Inc(metrics.MetricRiskAssessment)

	threats := make([]string, 0, len(a.Threats))
	for _, t := range a.Threats {
		if t != risk.ThreatSessionInvalid {
			threats = append(threats, t)
		}
	}
	return flows.RiskVerdict{
		Level:   a.Level.String(),
		Blocked: a.Blocked(),
		Warn:    a.Warn(),
		Threats: threats,
	}
}

func (c *Client) authenticate(ctx context.Context, email, password string, rememberMe bool) (flows.Grant, error) {
	data, err := c.api.Login(ctx, transport.LoginRequest{
		Email:      email,
		Password:   password,
		RememberMe: rememberMe,
		DeviceInfo: c.api.Device(),
	})
	if err != nil {
		return flows.Grant{}, err
	}
	return c.grantFrom(data)
}

func (c *Client) createAccount(ctx context.Context, in flows.RegisterInput) (flows.Grant, error) {
	data, err := c.api.Register(ctx, transport.RegisterRequest{
		Email:      in.Email,
		Password:   in.Password,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		DeviceInfo: c.api.Device(),
	})
	if err != nil {
		return flows.Grant{}, err
	}
	return c.grantFrom(data)
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (flows.Grant, error) {
	data, err := c.api.Refresh(ctx, refreshToken)
	if err != nil {
		return flows.Grant{}, err
	}
	if data.RefreshToken == "" {
		data.RefreshToken = refreshToken
	}
	return c.grantFrom(data)
}

// maxExpiresIn is the largest expiresIn, in seconds, a time.Duration holds.
const maxExpiresIn = int64(math.MaxInt64 / int64(time.Second))

// grantFrom takes the lifetime from expiresIn, falling back to the token's
// exp claim. With a verification key every token must verify.
func (c *Client) grantFrom(data transport.AuthData) (flows.Grant, error) {
	if data.Token == "" || data.RefreshToken == "" {
		return flows.Grant{}, fmt.Errorf("%w: response is missing tokens", ErrAuthRejected)
	}

	if data.ExpiresIn < 0 || data.ExpiresIn > maxExpiresIn {
		return flows.Grant{}, fmt.Errorf("%w: expiresIn %d out of range", ErrAuthRejected, data.ExpiresIn)
	}
	lifetime := time.Duration(data.ExpiresIn) * time.Second
	claims, err := c.inspector.Inspect(data.Token)
	switch {
	case err != nil && (c.inspector.Verifies() || lifetime <= 0):
		return flows.Grant{}, err
	case lifetime <= 0:
		lifetime = claims.Lifetime(c.now())
		if lifetime <= 0 {
			return flows.Grant{}, fmt.Errorf("%w: token already expired", ErrAuthRejected)
		}
	}

	return flows.Grant{
		User:         userFromPayload(data.User),
		AccessToken:  data.Token,
		RefreshToken: data.RefreshToken,
		ExpiresIn:    lifetime,
	}, nil
}

// persistGrant writes the pair and the profile. Any failure clears the
// store so a failed login never leaves a usable session behind.
func (c *Client) persistGrant(ctx context.Context, g flows.Grant) error {
	raw, err := json.Marshal(userFromFlow(&g.User))
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	err = c.store.Put(ctx, tokenstore.TokenPair{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		IssuedAt:     c.now(),
		ExpiresIn:    g.ExpiresIn,
	})
	if err == nil {
		err = c.store.PutUser(ctx, raw)
	}
	if err != nil {
		if cerr := c.store.Clear(context.WithoutCancel(ctx)); cerr != nil {
			c.warn("failed to clear partial session", "error", cerr)
		}
		return err
	}
	return nil
}

func (c *Client) refreshPair(ctx context.Context, refreshToken string) (tokenstore.TokenPair, error) {
	g, err := c.flows.Refresh(ctx, refreshToken)
	if err != nil {
		return tokenstore.TokenPair{}, err
	}
	return tokenstore.TokenPair{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		IssuedAt:     c.now(),
		ExpiresIn:    g.ExpiresIn,
	}, nil
}

func (c *Client) clearSession(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

func (c *Client) storedIdentifier(ctx context.Context) string {
	raw, ok := c.store.User(ctx)
	if !ok {
		return ""
	}
	var u AuthenticatedUser
	if json.Unmarshal(raw, &u) != nil {
		return ""
	}
	return u.Email
}

// translateTransport counts transport failures before mapping them.
func (c *Client) translateTransport(err error) error {
	switch {
	case errors.Is(err, transport.ErrTimeout):
		c.metrics.Inc(metrics.MetricTransportTimeout)
	case errors.Is(err, transport.ErrServerRateLimited):
		c.metrics.Inc(metrics.MetricServerRateLimited)
	case errors.Is(err, transport.ErrNetwork):
		c.metrics.Inc(metrics.MetricTransportNetworkError)
	}
	return translate(err)
}

func (c *Client) metricInc(id int) {
	c.metrics.Inc(metrics.MetricID(id))
}

func (c *Client) observe(id metrics.MetricID) func(time.Duration) {
	return func(d time.Duration) {
		c.metrics.Observe(id, d)
	}
}

func (c *Client) emitAudit(ctx context.Context, event string, success bool, identifier, riskLevel string, err error, meta func() map[string]string) {
	if c.audit == nil {
		return
	}
	e := audit.Event{
		EventType:  event,
		Identifier: identifier,
		RiskLevel:  riskLevel,
		Success:    success,
	}
	if err != nil {
		e.Error = err.Error()
	}
	if meta != nil {
		e.Metadata = meta()
	}
	c.audit.Emit(ctx, e)
}

func (c *Client) warn(msg string, keysAndValues ...any) {
	c.logger.Sugar().Warnw(msg, keysAndValues...)
}
