package risk

import (
	"context"
	"testing"
	"time"
)

func TestMonitorReportsViolations(t *testing.T) {
	s := NewScorer(Probes{Device: fixedDevice(DeviceSignals{Rooted: true}, nil)}, Options{})
	got := make(chan Assessment, 4)
	m := NewMonitor(s, 10*time.Millisecond, func(_ context.Context, a Assessment) {
		select {
		case got <- a:
		default:
		}
	}, nil)

	m.Start(context.Background())
	defer m.Stop()

	select {
	case a := <-got:
		if a.Level != LevelHigh {
			t.Fatalf("expected high, got %s", a.Level)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected violation handler to run")
	}
}

func TestMonitorIgnoresLowRisk(t *testing.T) {
	s := NewScorer(Probes{}, Options{})
	called := make(chan struct{}, 1)
	m := NewMonitor(s, 5*time.Millisecond, func(context.Context, Assessment) {
		select {
		case called <- struct{}{}:
		default:
		}
	}, nil)

	m.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	m.Stop()

	select {
	case <-called:
		t.Fatal("handler must not run for low risk")
	default:
	}
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	m := NewMonitor(NewScorer(Probes{}, Options{}), time.Hour, nil, nil)
	m.Stop()
	m.Start(context.Background())
	m.Start(context.Background())
	m.Stop()
	m.Stop()
}

func TestMonitorReportsIntegrityFailureAtLowLevel(t *testing.T) {
	s := NewScorer(Probes{Integrity: integrityFunc(func() (bool, error) { return false, nil })}, Options{})
	got := make(chan Assessment, 4)
	m := NewMonitor(s, time.Hour, func(_ context.Context, a Assessment) {
		select {
		case got <- a:
		default:
		}
	}, nil)

	m.Start(context.Background())
	defer m.Stop()

	select {
	case a := <-got:
		if a.Level != LevelLow || !a.Signals.AppIntegrityFailed {
			t.Fatalf("unexpected assessment %+v", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected integrity failure to reach the handler")
	}
}
