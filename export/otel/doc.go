// Package otel provides OpenTelemetry metric exporter bindings for the
// tokenauth engine counters.
//
// [NewExporter] registers one Int64ObservableCounter per engine metric. A
// single callback reads [tokenauth.Engine.MetricsSnapshot] on each collection
// cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate engine state.
package otel
