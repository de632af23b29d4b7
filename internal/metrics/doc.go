// Package metrics defines Prometheus metrics for the media indexer.
//
// Metrics cover extraction scans (files processed, skips, failures by kind,
// durations) and the database layer (query counts, durations, rows affected).
// They are exposed on the optional scan status endpoint.
package metrics
