// Package session holds the client's authentication state and mirrors it to
// durable storage.
//
// # Snapshot format
//
// The session is persisted as a single JSON document under one key:
//
//	{"user": <opaque>, "accessToken": "...", "refreshToken": "..."}
//
// Absence of the key means "logged out". The authenticated flag is never
// stored; it is derived from the access token on every read.
//
// # Architecture boundaries
//
// This package owns the [Store] (the credential store) and the [Session]
// model. It does NOT perform HTTP calls, decide when to refresh, or signal
// navigation; those belong to the client and its pipeline.
//
// # What this package must NOT do
//
//   - Import authclient, refresh, or transport (no upward imports).
//   - Interpret the user payload.
//   - Persist partial snapshots.
package session
