package security

import (
	"net/url"
	"time"
)

// Warning strings. Order in [Report.Warnings] follows declaration order.
const (
	WarnInsecureBaseURL   = "API base URL does not use https"
	WarnPinningDisabled   = "certificate pinning is disabled"
	WarnDevMode           = "development mode is enabled"
	WarnUnverifiedTokens  = "access token signatures are not verified locally"
	WarnRateLimitDisabled = "failed-attempt limiting is disabled"
	WarnVolatileStorage   = "tokens are stored in process memory only"
)

type Report struct {
	Environment                string
	DevMode                    bool
	SecureBaseURL              bool
	PinningEnabled             bool
	PinCount                   int
	DeviceFingerprint          string
	RequestSigning             bool
	TokenSignatureVerification bool
	RateLimitingActive         bool
	MaxLoginAttempts           int
	AttemptWindow              time.Duration
	RequestTimeout             time.Duration
	SessionTimeout             time.Duration
	RefreshThreshold           time.Duration
	RiskCacheTTL               time.Duration
	StorageBackend             string
	Warnings                   []string
}

type ReportInput struct {
	Environment       string
	DevMode           bool
	BaseURL           string
	PinCount          int
	DeviceFingerprint string
	AppSecretSet      bool
	VerifyTokens      bool
	MaxLoginAttempts  int
	AttemptWindow     time.Duration
	RequestTimeout    time.Duration
	SessionTimeout    time.Duration
	RefreshThreshold  time.Duration
	RiskCacheTTL      time.Duration
	StorageBackend    string
}

func BuildReport(input ReportInput) Report {
	secureURL := false
	if u, err := url.Parse(input.BaseURL); err == nil {
		secureURL = u.Scheme == "https" && u.Host != ""
	}

	r := Report{
		Environment:                input.Environment,
		DevMode:                    input.DevMode,
		SecureBaseURL:              secureURL,
		PinningEnabled:             input.PinCount > 0,
		PinCount:                   input.PinCount,
		DeviceFingerprint:          input.DeviceFingerprint,
		RequestSigning:             input.AppSecretSet,
		TokenSignatureVerification: input.VerifyTokens,
		RateLimitingActive:         input.MaxLoginAttempts > 0,
		MaxLoginAttempts:           input.MaxLoginAttempts,
		AttemptWindow:              input.AttemptWindow,
		RequestTimeout:             input.RequestTimeout,
		SessionTimeout:             input.SessionTimeout,
		RefreshThreshold:           input.RefreshThreshold,
		RiskCacheTTL:               input.RiskCacheTTL,
		StorageBackend:             input.StorageBackend,
	}

	if !r.SecureBaseURL {
		r.Warnings = append(r.Warnings, WarnInsecureBaseURL)
	}
	if !r.PinningEnabled {
		r.Warnings = append(r.Warnings, WarnPinningDisabled)
	}
	if r.DevMode {
		r.Warnings = append(r.Warnings, WarnDevMode)
	}
	if !r.TokenSignatureVerification {
		r.Warnings = append(r.Warnings, WarnUnverifiedTokens)
	}
	if !r.RateLimitingActive {
		r.Warnings = append(r.Warnings, WarnRateLimitDisabled)
	}
	if r.StorageBackend == "memory" {
		r.Warnings = append(r.Warnings, WarnVolatileStorage)
	}
	return r
}
