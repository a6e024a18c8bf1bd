package risk

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultMonitorInterval is the re-assessment period of a [Monitor].
const DefaultMonitorInterval = 5 * time.Minute

// ViolationHandler receives assessments at or above [LevelHigh] and any
// assessment with a failed app integrity check.
type ViolationHandler func(ctx context.Context, a Assessment)

// Monitor re-assesses on an interval in a background goroutine.
type Monitor struct {
	scorer   *Scorer
	interval time.Duration
	handler  ViolationHandler
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMonitor(s *Scorer, interval time.Duration, h ViolationHandler, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{scorer: s, interval: interval, handler: h, logger: logger}
}

// Start runs a forced assessment immediately and then one per interval
// until ctx is done or Stop is called. Starting a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	m.check(ctx, true)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, false)
		}
	}
}

func (m *Monitor) check(ctx context.Context, force bool) {
	a := m.scorer.Assess(ctx, force)
	if ctx.Err() != nil {
		return
	}
	if a.Level < LevelHigh && !a.Signals.AppIntegrityFailed {
		return
	}
	m.logger.Warn("risk: violation detected",
		zap.String("level", a.Level.String()),
		zap.Strings("threats", a.Threats),
	)
	if m.handler != nil {
		m.handler(ctx, a)
	}
}

// Stop halts the monitor and waits for the goroutine to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
