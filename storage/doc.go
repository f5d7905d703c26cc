// Package storage provides the key-value persistence surface used to keep a
// client session alive across process restarts.
//
// # Backends
//
//   - [Memory]: process-local map, useful for tests and short-lived tools.
//   - [File]: one file per key under a directory, written with a temp file and
//     an atomic rename so readers never observe a half-written snapshot.
//   - [Redis]: go-redis backed store with key prefixing and optional TTL.
//
// # What this package must NOT do
//
//   - Interpret stored values. Values are opaque byte slices.
//   - Import authclient, session, or transport.
package storage
