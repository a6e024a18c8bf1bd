// Package jwt reads claims out of access tokens issued by the API.
//
// The client normally holds no verification key, so [Inspect] parses without
// checking the signature and is only used to learn the token lifetime. When
// the server's Ed25519 public key is distributed with the app, an
// [Inspector] built with that key verifies the signature as well.
package jwt
