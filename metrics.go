package authguard

import "github.com/skillswap/authguard/internal/metrics"

// MetricID identifies a counter or histogram slot.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = metrics.Snapshot

const (
	MetricLoginSuccess          = metrics.MetricLoginSuccess
	MetricLoginFailure          = metrics.MetricLoginFailure
	MetricLoginRateLimited      = metrics.MetricLoginRateLimited
	MetricSecurityBlocked       = metrics.MetricSecurityBlocked
	MetricSecurityWarning       = metrics.MetricSecurityWarning
	MetricRegisterSuccess       = metrics.MetricRegisterSuccess
	MetricRegisterFailure       = metrics.MetricRegisterFailure
	MetricLogout                = metrics.MetricLogout
	MetricLogoutRemoteFailure   = metrics.MetricLogoutRemoteFailure
	MetricSessionValid          = metrics.MetricSessionValid
	MetricSessionRefreshed      = metrics.MetricSessionRefreshed
	MetricSessionExpired        = metrics.MetricSessionExpired
	MetricPasswordResetRequest  = metrics.MetricPasswordResetRequest
	MetricRiskAssessment        = metrics.MetricRiskAssessment
	MetricTransportTimeout      = metrics.MetricTransportTimeout
	MetricTransportNetworkError = metrics.MetricTransportNetworkError
	MetricServerRateLimited     = metrics.MetricServerRateLimited
	MetricLoginLatency          = metrics.MetricLoginLatency
	MetricRefreshLatency        = metrics.MetricRefreshLatency
)
