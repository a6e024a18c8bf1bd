// Package prometheus exposes authguard metrics as a Prometheus collector.
//
// [NewExporter] wraps a metrics source (usually an [authguard.Client]) in a
// [prometheus.Collector] that reads one snapshot per scrape. Counter names
// are prefixed authguard_*_total; latency is exported as native histograms
// named authguard_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry. [Exporter.Handler] serves
//     a private registry; callers that own a registry use [Exporter.Register].
//   - Mutate client state.
package prometheus
