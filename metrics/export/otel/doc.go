// Package otel binds authguard counters and histograms to OpenTelemetry
// observable instruments.
//
// [NewExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per cumulative histogram bucket. A single callback
// reads the source snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state.
package otel
