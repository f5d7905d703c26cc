// Package otel publishes client counters through OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per latency bucket. The caller owns the MeterProvider.
package otel
