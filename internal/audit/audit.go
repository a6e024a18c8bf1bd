package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Event types.
const (
	EventLoginSuccess           = "login_success"
	EventLoginFailure           = "login_failure"
	EventLoginRateLimited       = "login_rate_limited"
	EventSecurityBlocked        = "security_blocked"
	EventSecurityWarning        = "security_warning"
	EventRegisterSuccess        = "register_success"
	EventRegisterFailure        = "register_failure"
	EventLogout                 = "logout"
	EventSessionRefreshed       = "session_refreshed"
	EventSessionExpired         = "session_expired"
	EventPasswordResetRequested = "password_reset_requested"
)

// Event is one audit record.
type Event struct {
	Timestamp  time.Time         `json:"timestamp"`
	EventType  string            `json:"event_type"`
	Identifier string            `json:"identifier,omitempty"`
	DeviceID   string            `json:"device_id,omitempty"`
	RiskLevel  string            `json:"risk_level,omitempty"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to an in-process consumer. Emit blocks while the
// channel is full until the consumer catches up or ctx is done.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink returns a sink with room for buffer events (minimum one).
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case <-ctx.Done():
	case s.events <- event:
	}
}

// Events is the receive side consumers drain.
func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink encodes each event as one line of JSON.
type JSONWriterSink struct {
	mu       sync.Mutex
	enc      *json.Encoder
	failures atomic.Uint64
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	err := s.enc.Encode(event)
	s.mu.Unlock()
	if err != nil {
		s.failures.Add(1)
	}
}

// Failures counts events that could not be encoded or written.
func (s *JSONWriterSink) Failures() uint64 { return s.failures.Load() }

// ZapSink logs events at info level, failures at warn.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, event Event) {
	fields := []zap.Field{
		zap.String("event_type", event.EventType),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.Identifier != "" {
		fields = append(fields, zap.String("identifier", event.Identifier))
	}
	if event.DeviceID != "" {
		fields = append(fields, zap.String("device_id", event.DeviceID))
	}
	if event.RiskLevel != "" {
		fields = append(fields, zap.String("risk_level", event.RiskLevel))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	for k, v := range event.Metadata {
		fields = append(fields, zap.String("meta."+k, v))
	}
	if event.Success {
		s.logger.Info("audit event", fields...)
		return
	}
	s.logger.Warn("audit event", fields...)
}

// MultiSink fans an event out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, event)
		}
	}
}
