package internaldefs

import (
	"github.com/skillswap/authguard/internal/metrics"
)

// CounterDef names one counter slot.
type CounterDef struct {
	ID   metrics.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram.
type HistogramDef struct {
	ID   metrics.MetricID
	Name string
	Help string
}

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = len(metrics.BucketBounds) + 1

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "authguard_audit_dropped_total"

var CounterDefs = []CounterDef{
	{ID: metrics.MetricLoginSuccess, Name: "authguard_login_success_total", Help: "Successful logins."},
	{ID: metrics.MetricLoginFailure, Name: "authguard_login_failure_total", Help: "Failed logins, including server rejections and transport errors."},
	{ID: metrics.MetricLoginRateLimited, Name: "authguard_login_rate_limited_total", Help: "Logins refused locally by the attempt limiter."},
	{ID: metrics.MetricSecurityBlocked, Name: "authguard_security_blocked_total", Help: "Operations refused because the device risk level was critical."},
	{ID: metrics.MetricSecurityWarning, Name: "authguard_security_warning_total", Help: "Operations allowed with a high device risk level."},
	{ID: metrics.MetricRegisterSuccess, Name: "authguard_register_success_total", Help: "Successful registrations."},
	{ID: metrics.MetricRegisterFailure, Name: "authguard_register_failure_total", Help: "Failed registrations."},
	{ID: metrics.MetricLogout, Name: "authguard_logout_total", Help: "Logouts."},
	{ID: metrics.MetricLogoutRemoteFailure, Name: "authguard_logout_remote_failure_total", Help: "Logouts whose server notification failed."},
	{ID: metrics.MetricSessionValid, Name: "authguard_session_valid_total", Help: "Session checks that found a valid session."},
	{ID: metrics.MetricSessionRefreshed, Name: "authguard_session_refreshed_total", Help: "Sessions refreshed near expiry."},
	{ID: metrics.MetricSessionExpired, Name: "authguard_session_expired_total", Help: "Session checks that found an expired session."},
	{ID: metrics.MetricPasswordResetRequest, Name: "authguard_password_reset_request_total", Help: "Password reset requests sent."},
	{ID: metrics.MetricRiskAssessment, Name: "authguard_risk_assessment_total", Help: "Risk assessments computed."},
	{ID: metrics.MetricTransportTimeout, Name: "authguard_transport_timeout_total", Help: "API calls that timed out."},
	{ID: metrics.MetricTransportNetworkError, Name: "authguard_transport_network_error_total", Help: "API calls that failed below HTTP."},
	{ID: metrics.MetricServerRateLimited, Name: "authguard_server_rate_limited_total", Help: "API calls answered with 429."},
}

var HistogramDefs = []HistogramDef{
	{ID: metrics.MetricLoginLatency, Name: "authguard_login_latency_seconds", Help: "Login latency including the server round trip."},
	{ID: metrics.MetricRefreshLatency, Name: "authguard_refresh_latency_seconds", Help: "Token refresh latency."},
}

// HistogramBounds are the upper bounds in seconds, in bucket order.
var HistogramBounds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
