package flows

import (
	"context"
	"errors"
)

// LogoutMetrics carries metric IDs used by the logout flow.
type LogoutMetrics struct {
	Logout              int
	LogoutRemoteFailure int
}

// LogoutEvents carries audit event names used by the logout flow.
type LogoutEvents struct {
	Logout string
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	AccessToken func(ctx context.Context) (string, bool)
	// Identifier returns the stored user's email, or "".
	Identifier   func(ctx context.Context) string
	Notify       func(ctx context.Context, token string) error
	Clear        func(ctx context.Context) error
	// ResetLimiter clears the failed-attempt counter of one identifier.
	ResetLimiter func(ctx context.Context, identifier string) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LogoutMetrics
	Events  LogoutEvents
}

// RunLogout notifies the server when a usable token exists, then clears
// local state unconditionally. Notification failures are logged and never
// returned; only local clearing failures are.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}

	var identifier string
	if deps.Identifier != nil {
		identifier = deps.Identifier(ctx)
	}
	masked := MaskEmail(identifier)

	var notifyErr error
	if deps.AccessToken != nil && deps.Notify != nil {
		if token, ok := deps.AccessToken(ctx); ok {
			if notifyErr = deps.Notify(ctx, token); notifyErr != nil {
				deps.MetricInc(deps.Metrics.LogoutRemoteFailure)
				deps.Warn("logout notification failed", "identifier", masked, "error", notifyErr)
			}
		}
	}

	// Local state is cleared even when the caller's context is already done.
	local := context.WithoutCancel(ctx)
	var errs []error
	if deps.Clear != nil {
		if err := deps.Clear(local); err != nil {
			errs = append(errs, err)
		}
	}
	// Only the stored user's counter is reset.
	if deps.ResetLimiter != nil && identifier != "" {
		if err := deps.ResetLimiter(local, identifier); err != nil {
			deps.Warn("failed to reset login attempts on logout", "error", err)
		}
	}

	err := errors.Join(errs...)
	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, err == nil, masked, "", err, func() map[string]string {
		return map[string]string{"server_notified": boolString(notifyErr == nil)}
	})
	return err
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
