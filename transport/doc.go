// Package transport is the JSON-over-HTTPS client for the SkillSwap auth API.
//
// Every request carries the client identification headers, a ULID request
// id and an HMAC request signature bound to the device fingerprint.
// Requests are paced by a token bucket and bounded by a per-call timeout.
//
// Failures are classified into [ErrTimeout], [ErrNetwork],
// [ErrServerRateLimited], [ErrResponseTooLarge] and [*RejectedError]
// (matching [ErrRejected]); callers branch on them with errors.Is.
package transport
