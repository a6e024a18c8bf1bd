// Package authguard is the client-side authentication and session-security
// layer of the SkillSwap apps: login, registration, logout, password reset
// and session validation against the SkillSwap API, with tokens encrypted at
// rest, a failed-attempt limiter and a device risk gate in front of every
// credential submission.
//
// A [Client] is safe to call from multiple goroutines after construction
// through [Builder.Build].
//
// # Architecture boundaries
//
// authguard is the public surface. It exposes [Client], [Builder], [Config]
// and value types (AuthenticatedUser, SecurityStatus, MetricsSnapshot).
// Flow orchestration, rate limiting, audit dispatch and metrics live under
// internal/. The tokenstore, session, risk, transport and jwt packages are
// usable on their own.
//
// # Ordering
//
// For login the risk assessment runs before the limiter check, the limiter
// check before the network call, and the network call before any token store
// mutation. A rate-limited or security-blocked login never reaches the
// network.
//
// # Failures
//
// Every error returned by a Client method matches one of the package
// sentinels with errors.Is. [KindOf] and [ResultOf] turn an error into the
// category and user-facing message shown by the UI.
package authguard
