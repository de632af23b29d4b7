// Package scanner implements the scan-extract-index pipeline. Enumeration
// streams candidate files into a bounded worker pool while the directory
// walk is still running; each worker probes, hashes, and upserts one file
// at a time, so partial progress survives interruption. Failures are
// isolated per file: a corrupted or unreadable file gets a status record
// instead of aborting the scan.
package scanner
