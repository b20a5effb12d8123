// Package tokenauth provides a token lifecycle engine for services that
// authenticate callers either from pre-verified first-party input or by
// federating through an external identity provider (authorization-code
// exchange). It issues short-lived HS256 access tokens, manages long-lived
// opaque refresh tokens in Redis with rotation-on-use and reuse detection,
// and supports O(1) session-wide revocation through per-user version
// counters.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// tokenauth is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Principal, TokenPair, User). Access-token signing lives in
// the jwt sub-package, refresh-token state in refresh, and identity-provider
// trust in identity. The HTTP transport binding is middleware plus whatever
// router the host application already uses; see examples/http-minimal.
//
// # What this package must NOT do
//
//   - Expose Redis clients, Lua scripts, or key layouts in its public API.
//   - Persist Principal values; only their claims travel inside tokens.
//   - Revoke access tokens before expiry. Only refresh tokens are revocable;
//     the blast radius of a leaked access token is its validity window.
package tokenauth
