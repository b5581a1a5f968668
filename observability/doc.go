// Package observability sets up OpenTelemetry tracing and metrics with
// OTLP/HTTP exporters and defines the instruments reqkit records.
//
// Instrumented code always works against the global providers (or ones
// injected explicitly), so telemetry is a no-op until InitTracer/InitMeter
// or the Telemetry component install real ones.
package observability
