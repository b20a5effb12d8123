// Package refresh implements the Redis-backed rotation store for opaque
// refresh tokens.
//
// # Record layout
//
// Each token is a random opaque string used as a lookup key. The stored
// value is "<userID>:<version>", bounded by a TTL set at issuance. A second
// key family holds one monotonically increasing version counter per user;
// a token is honored only while its embedded version equals the user's
// current counter. Incrementing the counter therefore invalidates every
// outstanding token for that user in O(1) — stale records stay in Redis
// until their TTL elapses but are semantically dead.
//
// A value without a ':' separator is a legacy record written before
// versioning existed and is treated as version 0, not as malformed.
//
// # Architecture boundaries
//
// This package owns token generation, the key layout, and the atomic
// consume-and-delete protocol. Re-issuing the replacement token pair after a
// successful consume is the Engine's job.
//
// # What this package must NOT do
//
//   - Import tokenauth, jwt, or identity.
//   - Split the consume check and the delete into separate round-trips; the
//     whole redemption runs inside one Lua script so that concurrent
//     attempts on the same token yield at most one success.
package refresh
