// Package prometheus exposes client counters as a prometheus.Collector.
//
// [NewExporter] wraps an [authclient.Client]; register it in any registry
// or mount [Exporter.Handler]. Counter names are authclient_*_total and the
// single histogram is authclient_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate client state.
package prometheus
