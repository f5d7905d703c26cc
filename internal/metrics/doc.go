// Package metrics provides lock-free counters and a latency histogram for
// client session observability.
//
// Counters live in cache-line-padded uint64 slots incremented with
// sync/atomic. The histogram uses 8 fixed buckets (≤5ms … +Inf). Neither
// allocates on the write path.
//
// Export (Prometheus, OTel) lives in metrics/export/ and reads Snapshot
// values; this package performs no I/O.
package metrics
