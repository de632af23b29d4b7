// Package filesystem wraps the file operations the scan pipeline depends on
// with retry logic for NFS stale file handles. Media libraries commonly sit
// on NFS mounts, where a server-side rename or re-export invalidates open
// handles mid-scan; a short retry turns those into non-events instead of
// spurious unreadable records.
package filesystem
