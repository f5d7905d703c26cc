// Package flows contains the network exchanges and state transitions behind
// every Client operation: login, token refresh and logout.
//
// Each flow function (RunLogin, RunRefresh, RunLogout) accepts a typed
// dependency struct and returns a result struct classifying the outcome. The
// Client maps results to metrics, audit events and the credential store.
//
// # Architecture boundaries
//
// Flows perform the HTTP call or store mutation they are named after and
// nothing else. They do NOT decide retries, coordinate concurrent refreshes,
// or own any resource; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authclient (to avoid import cycles).
//   - Log token values.
package flows
