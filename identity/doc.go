// Package identity converts an external identity provider's authorization
// code into a locally trusted assertion.
//
// The exchange posts the code to the provider's token endpoint, then
// validates the returned ID token against the provider's published key set
// and an ordered chain of claim checks (expiry, issuer, audience), all of
// which must pass. No local state is written; the only side effect is the
// outbound network call.
//
// # What this package must NOT do
//
//   - Touch Redis, user storage, or local token issuance.
//   - Follow a caller-supplied redirect target that differs from the
//     registered one. A mismatch is rejected before any network call.
package identity
