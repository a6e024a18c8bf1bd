package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. The root client builds this once and
// delegates each method to the matching flow.
type Deps struct {
	Login    LoginDeps
	Register RegisterDeps
	Logout   LogoutDeps
	Forgot   ForgotDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
}

// User is the flow-local authenticated user.
type User struct {
	ID               int64
	Email            string
	FirstName        string
	LastName         string
	EmailVerified    bool
	TwoFactorEnabled bool
}

// Grant is a successful server authentication response.
type Grant struct {
	User         User
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// RiskVerdict is the flow-local view of a risk assessment.
type RiskVerdict struct {
	Level   string
	Blocked bool
	Warn    bool
	Threats []string
}

// AuditFunc emits one audit event. meta is evaluated only when the event
// is actually recorded.
type AuditFunc func(ctx context.Context, event string, success bool, identifier, riskLevel string, err error, meta func() map[string]string)

// GateMetrics carries metric IDs used by the risk gate.
type GateMetrics struct {
	SecurityBlocked int
	SecurityWarning int
}

// GateEvents carries audit event names used by the risk gate.
type GateEvents struct {
	SecurityBlocked string
	SecurityWarning string
}

// GateDeps is the pre-flight risk gate shared by login and register.
type GateDeps struct {
	Assess    func(context.Context) RiskVerdict
	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)
	Blocked   error

	Metrics GateMetrics
	Events  GateEvents
}

func noopMetric(int) {}

func noopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func noopWarn(string, ...any) {}

func (d *GateDeps) defaults() {
	if d.MetricInc == nil {
		d.MetricInc = noopMetric
	}
	if d.EmitAudit == nil {
		d.EmitAudit = noopAudit
	}
	if d.Warn == nil {
		d.Warn = noopWarn
	}
}
