package probe

import "errors"

// Failure taxonomy for per-file extraction. Callers classify a record's
// status by unwrapping against these sentinels; any of them is non-fatal for
// the scan as a whole.
var (
	// ErrProbeFailed indicates the external probe timed out or exited non-zero.
	ErrProbeFailed = errors.New("probe failed")

	// ErrCorrupted indicates the file was readable but its contents are
	// malformed: empty or unparseable probe output, or no media stream.
	ErrCorrupted = errors.New("corrupted media")

	// ErrUnreadable indicates an I/O error opening or reading the file.
	ErrUnreadable = errors.New("unreadable file")
)
