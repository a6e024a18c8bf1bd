package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/skillswap/authguard/internal/metrics"
	"github.com/skillswap/authguard/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() metrics.Snapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument group from a snapshot taken once per
// collection.
type observeFunc func(metric.Observer, metrics.Snapshot)

// Exporter publishes client metrics as asynchronous OpenTelemetry
// instruments. Histogram buckets share one gauge per histogram, keyed by
// an "le" attribute holding the upper bound in seconds.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
}

// NewExporter registers instruments on meter that read from source.
func NewExporter(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	var (
		observables []metric.Observable
		observers   []observeFunc
	)

	for _, def := range internaldefs.CounterDefs {
		fn, ins, err := bindCounter(meter, def)
		if err != nil {
			return nil, err
		}
		observers = append(observers, fn)
		observables = append(observables, ins)
	}
	for _, def := range internaldefs.HistogramDefs {
		fn, ins, err := bindHistogram(meter, def)
		if err != nil {
			return nil, err
		}
		observers = append(observers, fn)
		observables = append(observables, ins...)
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events dropped because the dispatcher queue was full."),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", internaldefs.AuditDroppedName, err)
	}
	observables = append(observables, dropped)

	e := &Exporter{source: source}
	e.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := e.source.MetricsSnapshot()
		for _, observe := range observers {
			observe(o, snap)
		}
		o.ObserveInt64(dropped, int64(e.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func bindCounter(meter metric.Meter, def internaldefs.CounterDef) (observeFunc, metric.Observable, error) {
	ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", def.Name, err)
	}
	return func(o metric.Observer, snap metrics.Snapshot) {
		o.ObserveInt64(ins, int64(snap.Counters[def.ID]))
	}, ins, nil
}

func bindHistogram(meter metric.Meter, def internaldefs.HistogramDef) (observeFunc, []metric.Observable, error) {
	buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return nil, nil, fmt.Errorf("create %s_bucket: %w", def.Name, err)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return nil, nil, fmt.Errorf("create %s_count: %w", def.Name, err)
	}
	sum, err := meter.Float64ObservableGauge(def.Name+"_sum",
		metric.WithDescription(def.Help+" Sample sum."), metric.WithUnit("s"))
	if err != nil {
		return nil, nil, fmt.Errorf("create %s_sum: %w", def.Name, err)
	}

	bounds := make([]metric.ObserveOption, internaldefs.BucketCount)
	for i := range bounds {
		le := "+Inf"
		if i < len(internaldefs.HistogramBounds) {
			le = strconv.FormatFloat(internaldefs.HistogramBounds[i], 'g', -1, 64)
		}
		bounds[i] = metric.WithAttributes(attribute.String("le", le))
	}

	fn := func(o metric.Observer, snap metrics.Snapshot) {
		h := snap.Histograms[def.ID]
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(h.Buckets))
		for i, n := range cumulative {
			o.ObserveInt64(buckets, int64(n), bounds[i])
		}
		o.ObserveInt64(count, int64(cumulative[internaldefs.BucketCount-1]))
		o.ObserveFloat64(sum, h.Sum.Seconds())
	}
	return fn, []metric.Observable{buckets, count, sum}, nil
}

// Close unregisters the collection callback. It is safe on a nil Exporter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
