// Package security derives the static security posture report of a
// configured client.
//
// [BuildReport] is a pure function of configuration values. It never
// probes the device or the network; live signals come from the risk
// package.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import authguard (the root package adapts [Report] to its public type).
package security
