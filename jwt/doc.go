// Package jwt inspects and issues JWT access tokens.
//
// The client never needs to verify the tokens it receives; [Inspector] only
// reads the registered claims (notably exp) without checking the signature so
// the request pipeline can refresh ahead of expiry. [Manager] signs and
// verifies tokens and backs the example API server and the test servers.
//
// # What this package must NOT do
//
//   - Treat unverified claims as proof of identity.
//   - Import authclient, session, or transport.
package jwt
