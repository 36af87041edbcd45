// Package telemetry configures OpenTelemetry tracing for the service.
//
// Request handlers create spans through the global provider, so they work
// unchanged whether tracing is exported over OTLP or disabled.
package telemetry
