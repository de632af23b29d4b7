// Package status serves scan progress over HTTP while a scan is running.
// The listener is optional and strictly read-only: it reports counters and
// metrics, and exposes no way to alter the scan or the index.
package status
