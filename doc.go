// Package authkit provides the token lifecycle for the WebQX platform:
// credential validation, bcrypt password verification, HS256 access/refresh
// token issuance, redis-backed login lockout, and bearer token verification.
//
// The package is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, UserSummary, VerifiedClaims). Flow
// orchestration and the lockout limiter live under internal/ and are never
// exported.
//
// # Trust models
//
// Two verification paths coexist behind the [TokenVerifier] capability: a
// shared-secret HS256 path for tokens the engine itself issues, and a
// JWKS-based RS256 path for tokens issued by an external identity provider
// (see the jwks sub-package). Which one is active is a configuration choice;
// callers of [Engine.Validate] never branch on it.
//
// # What this package must NOT do
//
//   - Expose the redis client, the lockout limiter, or the signing secret in
//     its public API.
//   - Reveal through error values whether a login failure was caused by a
//     missing account or a wrong password.
//   - Perform I/O during construction (Builder is allocation-only until
//     Build).
//
// The client sub-package holds the counterpart token store and auto-refresh
// scheduler used by front-end processes.
package authkit
