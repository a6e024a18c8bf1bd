// Package rate counts failed authentication attempts per identifier and
// blocks further attempts once the configured budget is spent.
//
// # Window semantics
//
// Counters never decay on their own when Window is zero: a blocked
// identifier stays blocked until RecordSuccess or Reset. A positive Window
// turns the counter into a fixed window that starts at the first failure.
//
// Key prefix for the Redis backend:
//   - sfa: failed attempts per normalized identifier
//
// # What this package must NOT do
//
//   - Decide what counts as a failure (the login flow does).
//   - Be imported outside the authguard module.
package rate
