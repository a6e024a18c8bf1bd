package authguard

import (
	"io"

	"go.uber.org/zap"

	"github.com/skillswap/authguard/internal/audit"
)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// Audit event types.
const (
	AuditLoginSuccess           = audit.EventLoginSuccess
	AuditLoginFailure           = audit.EventLoginFailure
	AuditLoginRateLimited       = audit.EventLoginRateLimited
	AuditSecurityBlocked        = audit.EventSecurityBlocked
	AuditSecurityWarning        = audit.EventSecurityWarning
	AuditRegisterSuccess        = audit.EventRegisterSuccess
	AuditRegisterFailure        = audit.EventRegisterFailure
	AuditLogout                 = audit.EventLogout
	AuditSessionRefreshed       = audit.EventSessionRefreshed
	AuditSessionExpired         = audit.EventSessionExpired
	AuditPasswordResetRequested = audit.EventPasswordResetRequested
)

// NewChannelSink buffers events on a channel for in-process consumers.
func NewChannelSink(buffer int) *audit.ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink writes one JSON object per event.
func NewJSONWriterSink(w io.Writer) AuditSink { return audit.NewJSONWriterSink(w) }

// NewZapSink logs events through logger.
func NewZapSink(logger *zap.Logger) AuditSink { return audit.NewZapSink(logger) }

// MultiSinks fans events out to every sink.
func MultiSinks(sinks ...AuditSink) AuditSink { return audit.MultiSink(sinks) }
