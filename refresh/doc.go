// Package refresh coordinates access token renewal for a client session.
//
// # Single flight
//
// A Refresher allows at most one exchange with the refresh endpoint at a
// time. Callers that ask for a token while an exchange is running join it and
// receive the same outcome. The slot clears once the exchange settles, so a
// later expiry starts a fresh exchange.
//
// # Architecture boundaries
//
// This package owns the in-flight slot, the exchange deadline and the
// stale-token check. The HTTP exchange itself is supplied by an Exchanger and
// the resulting tokens are written through a TokenWriter; neither the
// credential store nor the transport is imported here.
//
// # What this package must NOT do
//
//   - Retry a failed exchange.
//   - Log users out; the caller decides what a failure means.
//   - Let one caller's cancellation abort the shared exchange.
package refresh
