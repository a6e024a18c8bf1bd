// Package flows contains the pure-function orchestrators behind every
// authguard Client operation.
//
// Each flow (RunLogin, RunRegister, RunLogout, RunForgotPassword,
// RunRefresh, RunValidateSession) accepts a typed dependency struct of
// function fields and returns results without side effects beyond those
// dependencies. Tests drive the flows with plain closures.
//
// # Ordering
//
// Login and register evaluate gates strictly in this order: input
// validation, risk assessment, failed-attempt limiter (login only), network
// call, local state mutation. A flow never reaches a later step when an
// earlier one refused.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authguard (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency fields.
//   - Log or audit credentials or tokens.
package flows
