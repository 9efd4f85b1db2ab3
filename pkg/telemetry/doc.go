// Package telemetry wires OpenTelemetry tracing and metrics for the bots.
//
// It centralises trace provider setup, records command and post filter
// decisions as metrics, and offers span helpers that annotate decisions
// without leaking message bodies.
package telemetry
