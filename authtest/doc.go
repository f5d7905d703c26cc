// Package authtest provides an in-process auth API for tests, examples and
// load tools: a login endpoint, a refresh endpoint with opaque refresh
// tokens, and bearer-guarded resources backed by signed JWT access tokens.
//
// The server exposes knobs to force the situations a client has to survive:
// expiring every access token at once, revoking refresh tokens, slowing down
// or failing the refresh endpoint.
package authtest
