// Package observability wires OpenTelemetry traces and metrics.
//
// Init installs OTLP/HTTP exporters as the global providers when enabled
// and returns a shutdown func. NewMetrics builds the service instruments
// on any meter; a nil *Metrics records nothing, which keeps tests free of
// exporter setup.
package observability
