// Package jwt implements issuance and validation of the short-lived,
// stateless HS256 access tokens used by the engine.
//
// # Architecture boundaries
//
// This package owns signing, claim layout, and cryptographic validation.
// It knows nothing about Redis, refresh tokens, or user records; the root
// package maps [AccessClaims] to and from its Principal type.
//
// # What this package must NOT do
//
//   - Perform any I/O or keep server-side token state. Validity is entirely
//     determined by signature and expiry at verification time.
//   - Support revocation. Only refresh tokens are revocable.
package jwt
