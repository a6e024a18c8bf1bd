// Package audit relays security-relevant authentication events to sinks
// off the caller's goroutine.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, zap logger, no-op).
//   - [Dispatcher]: buffered relay that either drops or blocks when full.
//   - [Event]: one record; identifiers are masked before they get here.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the flows do that.
//   - Import authguard or any sibling internal package.
//   - Receive credentials or raw tokens.
package audit
