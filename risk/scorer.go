package risk

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long device signals are reused without force.
const DefaultCacheTTL = 5 * time.Minute

// Assessment threat strings.
const (
	ThreatDeviceCompromised = "Device compromised"
	ThreatDeviceRooted      = "Device rooted"
	ThreatDebugger          = "Debugger attached"
	ThreatEmulator          = "Running on emulator"
	ThreatNetworkInsecure   = "Network insecure"
	ThreatAppIntegrity      = "App integrity compromised"
	ThreatSessionInvalid    = "Session invalid"
	ThreatCheckFailed       = "Security check failed"
)

// Signals is the full set of booleans behind an [Assessment].
type Signals struct {
	DeviceSignals
	NetworkInsecure    bool
	AppIntegrityFailed bool
	SessionInvalid     bool
}

// Assessment is a complete risk evaluation.
type Assessment struct {
	Level      Level
	Score      int
	Signals    Signals
	Threats    []string
	Network    NetworkReport
	AssessedAt time.Time
	// Cached is true when device signals came from the cache.
	Cached bool
}

// Blocked reports whether sensitive actions must be refused.
func (a Assessment) Blocked() bool { return a.Level >= LevelCritical }

// Warn reports whether the caller should warn but proceed.
func (a Assessment) Warn() bool { return a.Level == LevelHigh }

// Probes groups the capabilities a [Scorer] consults. Nil members fall
// back to permissive defaults.
type Probes struct {
	Device    DeviceIntegrityProbe
	Network   NetworkProbe
	Integrity IntegrityProbe
	Session   SessionProbe
}

// Options configures a [Scorer].
type Options struct {
	CacheTTL time.Duration
	Now      func() time.Time
	Logger   *zap.Logger
}

// Scorer is the sole writer of assessments.
type Scorer struct {
	probes Probes
	opts   Options

	mu       sync.Mutex
	device   DeviceSignals
	cachedAt time.Time
	hasCache bool
}

func NewScorer(p Probes, opts Options) *Scorer {
	if p.Device == nil {
		p.Device = UnknownDeviceProbe{}
	}
	if p.Network == nil {
		p.Network = SecureNetwork{}
	}
	if p.Integrity == nil {
		p.Integrity = TrustedBinary{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scorer{probes: p, opts: opts}
}

// Assess evaluates all probe families. Device signals are served from the
// cache unless force is set or the cache is older than CacheTTL.
func (s *Scorer) Assess(ctx context.Context, force bool) Assessment {
	now := s.opts.Now()

	device, cached, err := s.deviceSignals(ctx, now, force)
	if err != nil {
		s.opts.Logger.Warn("risk: device probe failed", zap.Error(err))
		return failed(now)
	}

	network, err := s.probes.Network.Check(ctx)
	if err != nil {
		s.opts.Logger.Warn("risk: network probe failed", zap.Error(err))
		return failed(now)
	}

	intact, err := s.probes.Integrity.Verify(ctx)
	if err != nil {
		s.opts.Logger.Warn("risk: integrity probe failed", zap.Error(err))
		return failed(now)
	}

	sig := Signals{
		DeviceSignals:      device,
		NetworkInsecure:    !network.Secure,
		AppIntegrityFailed: !intact,
	}
	if s.probes.Session != nil {
		sig.SessionInvalid = !s.probes.Session.SessionValid(ctx)
	}

	score := Score(device)
	a := Assessment{
		Level:      LevelFor(score),
		Score:      score,
		Signals:    sig,
		Threats:    threatsFor(sig),
		Network:    network,
		AssessedAt: now,
		Cached:     cached,
	}
	s.opts.Logger.Debug("risk: assessed",
		zap.String("level", a.Level.String()),
		zap.Int("score", score),
		zap.Bool("cached", cached),
		zap.Strings("threats", a.Threats),
	)
	return a
}

func (s *Scorer) deviceSignals(ctx context.Context, now time.Time, force bool) (DeviceSignals, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !force && s.hasCache && now.Sub(s.cachedAt) < s.opts.CacheTTL {
		return s.device, true, nil
	}
	d, err := s.probes.Device.Probe(ctx)
	if err != nil {
		s.hasCache = false
		return DeviceSignals{}, false, err
	}
	s.device = d
	s.cachedAt = now
	s.hasCache = true
	return d, false, nil
}

// Invalidate drops cached device signals.
func (s *Scorer) Invalidate() {
	s.mu.Lock()
	s.hasCache = false
	s.mu.Unlock()
}

func threatsFor(sig Signals) []string {
	threats := make([]string, 0, 4)
	if sig.Jailbroken {
		threats = append(threats, ThreatDeviceCompromised)
	}
	if sig.Rooted {
		threats = append(threats, ThreatDeviceRooted)
	}
	if sig.Debugging {
		threats = append(threats, ThreatDebugger)
	}
	if sig.Emulator {
		threats = append(threats, ThreatEmulator)
	}
	if sig.NetworkInsecure {
		threats = append(threats, ThreatNetworkInsecure)
	}
	if sig.AppIntegrityFailed {
		threats = append(threats, ThreatAppIntegrity)
	}
	if sig.SessionInvalid {
		threats = append(threats, ThreatSessionInvalid)
	}
	return threats
}

func failed(now time.Time) Assessment {
	return Assessment{
		Level: LevelCritical,
		Signals: Signals{
			NetworkInsecure:    true,
			AppIntegrityFailed: true,
			SessionInvalid:     true,
		},
		Threats:    []string{ThreatCheckFailed},
		AssessedAt: now,
	}
}
