// Package session decides whether the stored token pair is usable and
// drives refresh when it nears expiry.
//
// # State machine
//
//	NoSession ──store──▶ Valid ──threshold──▶ NearExpiry ──refresh ok──▶ Refreshed ─▶ Valid
//	                                              └────refresh failed──▶ Expired ─▶ NoSession
//
// # Architecture boundaries
//
// This package owns [Activity], the in-process lastActivity timestamp, and
// injects it into the token store. It does NOT issue network requests
// itself; refresh goes through a caller-supplied [Refresher].
//
// # What this package must NOT do
//
//   - Import authguard (no upward imports).
//   - Write tokens except through the store it was given.
package session
