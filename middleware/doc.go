// Package middleware provides the standard HTTP transport binding for
// tokenauth: bearer-token extraction, principal resolution into the request
// context, and a declarative allow-list guard.
//
// Absence or invalidity of the Authorization header never aborts the
// pipeline; it yields an anonymous request context. Which routes require a
// principal is policy owned by the transport layer, expressed as an
// [Allowlist] the guard consults — not as logic inside the token engine.
package middleware
