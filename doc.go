// Package auth implements the authentication and identity subsystem of the
// VitalDesk platform: account resolution, credential verification, signed
// session token issuance/validation, and account lifecycle transitions.
//
// Credential paths:
//   - Native login verifies an email/password pair against a bcrypt hash
//     stored on the account. Registration enforces email uniqueness at the
//     storage layer.
//   - Federated login trusts identity claims asserted by an external provider
//     after its own handshake completed. FederatedResolver maps a provider
//     subject id to an account, creating one on first login; both paths
//     converge on the same User model and role set.
//
// Tokens:
//   - TokenService signs HS256 JWTs carrying an account snapshot (subject,
//     email, name parts, role, federated id). Validation fails closed on
//     signature, expiry, issuer, and audience mismatches. Tokens are
//     stateless; deactivating an account is enforced by the authorization
//     layer consulting persisted state, not by revocation.
//
// Outcomes:
//   - Every Auther use case returns either an AuthResult or a categorized
//     error value from the taxonomy in errors.go. Expected business failures
//     (invalid credentials, duplicate email, deactivated account) are never
//     raised as panics and never logged-and-swallowed; the transport layer
//     maps categories to responses.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther, the
//     federated resolver and the lifecycle manager. Sinks run best-effort so
//     you can forward to a database or queue without blocking authentication.
package auth
