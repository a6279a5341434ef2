// Package telemetry provides OpenTelemetry initialization and helpers for the
// recipe keeper server and worker.
//
// Traces, logs and metrics are exported over OTLP/HTTP. Endpoints with a base
// path (for example ".../otlp") keep it in front of each signal path.
package telemetry
