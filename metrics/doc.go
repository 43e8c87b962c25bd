// Package metrics exposes Prometheus collectors for loads, renders and
// expansion activity.
//
// Each [Metrics] owns a private registry, so several can coexist in one
// process (tests create one per case). Mount [Metrics.Handler] on an
// existing router, or run a standalone endpoint with [Metrics.ListenAndServe].
package metrics
