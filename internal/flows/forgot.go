package flows

import (
	"context"
	"fmt"
)

// ForgotMetrics carries metric IDs used by the password reset flow.
type ForgotMetrics struct {
	PasswordResetRequest int
}

// ForgotEvents carries audit event names used by the password reset flow.
type ForgotEvents struct {
	PasswordResetRequested string
}

// ForgotErrors carries host-level sentinel errors used by the password reset flow.
type ForgotErrors struct {
	NotReady   error
	Validation error
}

// ForgotDeps captures password reset dependencies. The flow touches
// neither the token store nor the limiter.
type ForgotDeps struct {
	Request   func(ctx context.Context, email string) (bool, error)
	Translate func(error) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics ForgotMetrics
	Events  ForgotEvents
	Errors  ForgotErrors
}

// RunForgotPassword asks the server to send a reset email and returns the
// server's success flag.
func RunForgotPassword(ctx context.Context, email string, deps ForgotDeps) (bool, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Translate == nil {
		deps.Translate = func(err error) error { return err }
	}
	if deps.Request == nil {
		return false, deps.Errors.NotReady
	}

	clean := SanitizeEmail(email)
	if clean == "" {
		return false, fmt.Errorf("%w: email is required", deps.Errors.Validation)
	}
	masked := MaskEmail(clean)

	ok, err := deps.Request(ctx, clean)
	if err != nil {
		mapped := deps.Translate(err)
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequested, false, masked, "", mapped, nil)
		return false, mapped
	}
	deps.MetricInc(deps.Metrics.PasswordResetRequest)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequested, ok, masked, "", nil, nil)
	return ok, nil
}
