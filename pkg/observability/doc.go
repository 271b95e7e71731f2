// Package observability provides structured logging, Prometheus metrics
// for the SSO session protocol, and optional OpenTelemetry export.
package observability
