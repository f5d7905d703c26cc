// Package transport provides the HTTP request pipeline that governs outbound
// API calls for an authenticated session.
//
// Pipeline is an http.RoundTripper. It attaches the current bearer token,
// recovers from 401 responses by asking a refresher for a new token and
// resending the request exactly once, and terminates the session when the
// refresh cannot be completed.
//
// # Architecture boundaries
//
// The pipeline only reads tokens. Writing tokens is the refresher's job and
// ending the session belongs to the SessionTerminator supplied by the caller.
package transport
