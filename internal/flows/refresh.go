package flows

import (
	"context"
	"time"
)

// RefreshMetrics carries metric IDs used by the refresh flow.
type RefreshMetrics struct {
	SessionRefreshed int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	SessionRefreshed string
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Exchange  func(ctx context.Context, refreshToken string) (Grant, error)
	Translate func(error) error

	Now            func() time.Time
	ObserveLatency func(time.Duration)
	MetricInc      func(int)
	EmitAudit      AuditFunc

	Metrics  RefreshMetrics
	Events   RefreshEvents
	NotReady error
}

// RunRefresh exchanges refreshToken for a new grant. Persisting the grant
// is left to the caller.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (Grant, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Translate == nil {
		deps.Translate = func(err error) error { return err }
	}
	if deps.Exchange == nil {
		return Grant{}, deps.NotReady
	}

	start := deps.Now()
	g, err := deps.Exchange(ctx, refreshToken)
	deps.ObserveLatency(deps.Now().Sub(start))
	if err != nil {
		mapped := deps.Translate(err)
		deps.EmitAudit(ctx, deps.Events.SessionRefreshed, false, "", "", mapped, nil)
		return Grant{}, mapped
	}

	deps.MetricInc(deps.Metrics.SessionRefreshed)
	deps.EmitAudit(ctx, deps.Events.SessionRefreshed, true, MaskEmail(g.User.Email), "", nil, nil)
	return g, nil
}
