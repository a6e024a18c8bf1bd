// Package tokenstore persists the current token pair encrypted at rest and
// answers whether a usable session exists.
//
// # Entry layout
//
// Each logical field (access token, refresh token, expiry, user data) is a
// separate entry in a [KV] backend. Values are sealed frames: a version
// byte, a 24-byte XChaCha20-Poly1305 nonce and the ciphertext. The entry
// name is bound as additional data, so a value copied under another name
// fails to open.
//
// # Failure semantics
//
// Reads fail closed. A missing entry, an expired or idle session, a backend
// error or a frame that does not authenticate all read as "no session" and
// trigger a best-effort [Store.Clear].
//
// # What this package must NOT do
//
//   - Import authguard or any package that issues network requests.
//   - Log token or credential material.
package tokenstore
