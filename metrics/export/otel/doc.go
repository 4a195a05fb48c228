// Package otel exports gateAuth Engine metrics through an OpenTelemetry Meter.
//
// Every Engine counter becomes an Int64ObservableCounter. The verify latency
// histogram is reported as a cumulative bucket gauge keyed by an le attribute
// plus a count gauge. One callback reads the Engine snapshot per collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
