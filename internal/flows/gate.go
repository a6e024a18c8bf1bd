package flows

import (
	"context"
	"fmt"
	"strings"
)

// runGate assesses risk and returns a non-nil error when the level blocks
// the operation. A high level is logged and audited but allowed.
func runGate(ctx context.Context, op, masked string, deps GateDeps) (RiskVerdict, error) {
	deps.defaults()
	if deps.Assess == nil {
		return RiskVerdict{}, nil
	}

	v := deps.Assess(ctx)
	threats := strings.Join(v.Threats, "; ")

	if v.Blocked {
		deps.MetricInc(deps.Metrics.SecurityBlocked)
		deps.EmitAudit(ctx, deps.Events.SecurityBlocked, false, masked, v.Level, deps.Blocked, func() map[string]string {
			return map[string]string{"operation": op, "threats": threats}
		})
		return v, fmt.Errorf("%w: %s", deps.Blocked, threats)
	}
	if v.Warn {
		deps.MetricInc(deps.Metrics.SecurityWarning)
		deps.EmitAudit(ctx, deps.Events.SecurityWarning, true, masked, v.Level, nil, func() map[string]string {
			return map[string]string{"operation": op, "threats": threats}
		})
		deps.Warn("elevated security risk", "operation", op, "level", v.Level, "threats", threats)
	}
	return v, nil
}
