// Package probe extracts technical metadata from media files.
//
// Video files are probed by invoking ffprobe as a subprocess with a bounded
// per-file timeout; image files are decoded in-process. Failures are
// classified into a small taxonomy (ErrProbeFailed, ErrCorrupted,
// ErrUnreadable) so callers can record degraded files instead of dropping
// them. Fields absent from the probe output stay nil, never zero.
//
// The subprocess boundary sits behind the Runner interface so tests can
// substitute canned output without spawning a real process.
package probe
