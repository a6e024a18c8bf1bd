package risk

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func TestLevelTable(t *testing.T) {
	cases := []struct {
		name string
		d    DeviceSignals
		want Level
	}{
		{"clean", DeviceSignals{}, LevelLow},
		{"debugging", DeviceSignals{Debugging: true}, LevelMedium},
		{"emulator", DeviceSignals{Emulator: true}, LevelMedium},
		{"emulator+debugging", DeviceSignals{Emulator: true, Debugging: true}, LevelHigh},
		{"rooted", DeviceSignals{Rooted: true}, LevelHigh},
		{"jailbroken", DeviceSignals{Jailbroken: true}, LevelHigh},
		{"rooted+emulator", DeviceSignals{Rooted: true, Emulator: true}, LevelCritical},
		{"jailbroken+rooted", DeviceSignals{Jailbroken: true, Rooted: true}, LevelCritical},
		{"all", DeviceSignals{Jailbroken: true, Rooted: true, Debugging: true, Emulator: true}, LevelCritical},
	}
	for _, tc := range cases {
		if got := LevelFor(Score(tc.d)); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func fixedDevice(d DeviceSignals, calls *atomic.Int32) DeviceProbeFunc {
	return func(context.Context) (DeviceSignals, error) {
		if calls != nil {
			calls.Add(1)
		}
		return d, nil
	}
}

func TestAssessCachesDeviceSignals(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var calls atomic.Int32
	s := NewScorer(Probes{Device: fixedDevice(DeviceSignals{Debugging: true}, &calls)}, Options{
		Now: func() time.Time { return now },
	})
	ctx := context.Background()

	first := s.Assess(ctx, false)
	if first.Cached || first.Level != LevelMedium {
		t.Fatalf("expected fresh medium, got %+v", first)
	}
	second := s.Assess(ctx, false)
	if !second.Cached || calls.Load() != 1 {
		t.Fatalf("expected cached result, calls=%d", calls.Load())
	}
	s.Assess(ctx, true)
	if calls.Load() != 2 {
		t.Fatalf("expected force to bypass cache, calls=%d", calls.Load())
	}
	now = now.Add(DefaultCacheTTL)
	if a := s.Assess(ctx, false); a.Cached {
		t.Fatal("expected cache to expire after ttl")
	}
	if calls.Load() != 3 {
		t.Fatalf("expected probe after ttl, calls=%d", calls.Load())
	}
}

func TestAssessThreats(t *testing.T) {
	s := NewScorer(Probes{
		Device: fixedDevice(DeviceSignals{Jailbroken: true, Emulator: true}, nil),
		Network: &URLNetworkProbe{
			BaseURL: "http://api.example.com",
			Proxy:   noProxy,
		},
		Integrity: integrityFunc(func() (bool, error) { return false, nil }),
		Session:   SessionProbeFunc(func(context.Context) bool { return false }),
	}, Options{})

	a := s.Assess(context.Background(), true)
	if a.Level != LevelCritical || !a.Blocked() {
		t.Fatalf("expected critical, got %s", a.Level)
	}
	want := []string{
		ThreatDeviceCompromised,
		ThreatEmulator,
		ThreatNetworkInsecure,
		ThreatAppIntegrity,
		ThreatSessionInvalid,
	}
	if !reflect.DeepEqual(a.Threats, want) {
		t.Fatalf("threats mismatch:\n got %v\nwant %v", a.Threats, want)
	}
}

func TestNonDeviceSignalsDoNotChangeLevel(t *testing.T) {
	s := NewScorer(Probes{
		Integrity: integrityFunc(func() (bool, error) { return false, nil }),
		Session:   SessionProbeFunc(func(context.Context) bool { return false }),
	}, Options{})
	a := s.Assess(context.Background(), true)
	if a.Level != LevelLow {
		t.Fatalf("expected low, got %s", a.Level)
	}
	if len(a.Threats) != 2 {
		t.Fatalf("expected two threats, got %v", a.Threats)
	}
}

func TestProbeErrorFailsClosed(t *testing.T) {
	s := NewScorer(Probes{
		Device: DeviceProbeFunc(func(context.Context) (DeviceSignals, error) {
			return DeviceSignals{}, errors.New("probe crashed")
		}),
	}, Options{})

	a := s.Assess(context.Background(), false)
	if a.Level != LevelCritical {
		t.Fatalf("expected critical on probe error, got %s", a.Level)
	}
	if !reflect.DeepEqual(a.Threats, []string{ThreatCheckFailed}) {
		t.Fatalf("expected check-failed threat, got %v", a.Threats)
	}
}

func TestProbeErrorIsNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	s := NewScorer(Probes{
		Device: DeviceProbeFunc(func(context.Context) (DeviceSignals, error) {
			if fail.Load() {
				return DeviceSignals{}, errors.New("transient")
			}
			return DeviceSignals{}, nil
		}),
	}, Options{})

	s.Assess(context.Background(), false)
	fail.Store(false)
	if a := s.Assess(context.Background(), false); a.Level != LevelLow {
		t.Fatalf("expected recovery after transient failure, got %s", a.Level)
	}
}

type integrityFunc func() (bool, error)

func (f integrityFunc) Verify(context.Context) (bool, error) { return f() }
