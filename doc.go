// Package authclient is a client-side session layer for applications that
// call bearer-token APIs.
//
// A [Client] logs in against a credential endpoint, keeps the session in a
// credential store mirrored to durable storage, and hands out an
// [net/http.Client] whose requests carry the access token. When a request
// comes back 401 the client refreshes the access token (one exchange at a
// time, shared by every waiting request), resends the request once, and logs
// the user out when the refresh itself fails.
//
// # Architecture boundaries
//
// authclient is the public surface: [Builder], [Config], [Client] and value
// types. The request pipeline lives in transport, the single-flight refresher
// in refresh, the credential store in session and the persistence backends
// in storage. Endpoint exchanges are internal/flows.
//
// # What this package must NOT do
//
//   - Log or audit token material.
//   - Retry a governed request more than once.
//   - Interpret the user payload returned by the login endpoint.
package authclient
