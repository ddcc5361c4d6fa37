// Package metrics provides the observability hooks for webhookcatcher.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metric calls never need nil checks:
//
//	rec := metrics.OrNoop(nil) // NoopRecorder
//
// When METRICS_ENABLED is set the server builds a PrometheusRecorder on its own
// registry and exposes it on /metrics via HTTPHandler.
package metrics
