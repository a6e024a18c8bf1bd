package flows

import "context"

// ValidateMetrics carries metric IDs used by the session check.
type ValidateMetrics struct {
	SessionValid   int
	SessionExpired int
}

// ValidateEvents carries audit event names used by the session check.
type ValidateEvents struct {
	SessionExpired string
}

// ValidateDeps captures session check dependencies.
type ValidateDeps struct {
	// Validate returns the session state name and whether it is usable.
	Validate func(ctx context.Context) (state string, ok bool)
	Logout   func(ctx context.Context) error

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics ValidateMetrics
	Events  ValidateEvents
}

// RunValidateSession reports whether a usable session exists. An unusable
// session triggers a full logout so local state and caller state agree.
func RunValidateSession(ctx context.Context, deps ValidateDeps) bool {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Validate == nil {
		return false
	}

	state, ok := deps.Validate(ctx)
	if ok {
		deps.MetricInc(deps.Metrics.SessionValid)
		return true
	}

	if state == "expired" {
		deps.MetricInc(deps.Metrics.SessionExpired)
		deps.EmitAudit(ctx, deps.Events.SessionExpired, false, "", "", nil, nil)
	}
	if deps.Logout != nil {
		if err := deps.Logout(ctx); err != nil {
			deps.Warn("logout after invalid session failed", "state", state, "error", err)
		}
	}
	return false
}
