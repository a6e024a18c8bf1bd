package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricSecurityBlocked
	MetricSecurityWarning
	MetricRegisterSuccess
	MetricRegisterFailure
	MetricLogout
	MetricLogoutRemoteFailure
	MetricSessionValid
	MetricSessionRefreshed
	MetricSessionExpired
	MetricPasswordResetRequest
	MetricRiskAssessment
	MetricTransportTimeout
	MetricTransportNetworkError
	MetricServerRateLimited
	MetricLoginLatency
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// BucketBounds are the inclusive upper bounds of the first seven buckets.
var BucketBounds = [histBucketCount - 1]time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
	5 * time.Second,
}

type histogram struct {
	buckets  [histBucketCount]uint64
	sumNanos uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]histogram
}

// Histogram is a non-cumulative bucket snapshot.
type Histogram struct {
	Buckets []uint64
	Sum     time.Duration
}

type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID]Histogram
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d for a histogram metric. Counter ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || !isHistogram(id) {
		return
	}
	if d < 0 {
		d = 0
	}
	h := &m.histograms[id]
	atomic.AddUint64(&h.buckets[bucketIndex(d)], 1)
	atomic.AddUint64(&h.sumNanos, uint64(d))
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID]Histogram{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID]Histogram, 2),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range HistogramIDs {
			buckets := make([]uint64, histBucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = Histogram{
				Buckets: buckets,
				Sum:     time.Duration(atomic.LoadUint64(&m.histograms[id].sumNanos)),
			}
		}
	}
	return s
}

// HistogramIDs lists the metrics recorded by Observe.
var HistogramIDs = []MetricID{MetricLoginLatency, MetricRefreshLatency}

func isHistogram(id MetricID) bool {
	return id == MetricLoginLatency || id == MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
