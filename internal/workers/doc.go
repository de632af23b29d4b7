// Package workers calculates worker pool sizes for extraction scans based on
// available CPU resources, with an optional SCAN_WORKERS environment override.
package workers
