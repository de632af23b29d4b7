package database

import (
	"fmt"
	"time"

	"media-indexer/internal/mediatypes"
)

// Status describes the extraction outcome recorded for a file.
type Status string

const (
	// StatusOK means metadata extraction succeeded.
	StatusOK Status = "ok"
	// StatusCorrupted means the probe ran but the file's contents are
	// malformed (empty or unparseable probe output, no media stream).
	StatusCorrupted Status = "corrupted"
	// StatusUnreadable means the file could not be opened or read.
	StatusUnreadable Status = "unreadable"
	// StatusProbeFailed means the external probe timed out or exited non-zero.
	StatusProbeFailed Status = "probe_failed"
)

// MediaRecord is one row of the index, keyed by absolute file path.
//
// Metadata fields are pointers: nil means the value could not be extracted
// and must never be conflated with zero by consumers.
type MediaRecord struct {
	ID        int64
	Path      string
	Size      int64
	ModTime   time.Time
	MediaType mediatypes.MediaType

	Codec     *string
	Width     *int64
	Height    *int64
	Bitrate   *int64   // bits per second
	Duration  *float64 // seconds
	FrameRate *float64
	Format    *string // container format name

	ContentHash *string
	Status      Status
	ErrorDetail *string
	ScannedAt   time.Time
}

// Resolution returns "WxH" when both dimensions are known, empty otherwise.
func (r *MediaRecord) Resolution() string {
	if r.Width == nil || r.Height == nil {
		return ""
	}
	return fmt.Sprintf("%dx%d", *r.Width, *r.Height)
}

// HasHash reports whether a content fingerprint was recorded.
func (r *MediaRecord) HasHash() bool {
	return r.ContentHash != nil && *r.ContentHash != ""
}

// CodecCount is one entry of a top-codecs ranking.
type CodecCount struct {
	Codec string
	Count int
}

// ResolutionCount is one entry of a top-resolutions ranking.
type ResolutionCount struct {
	Resolution string
	Count      int
}

// Stats summarizes the index contents.
type Stats struct {
	TotalFiles         int
	ByMediaType        map[string]int
	ByStatus           map[string]int
	TotalSize          int64
	TotalVideoDuration float64 // seconds, videos with known duration
	TopCodecs          []CodecCount
	TopResolutions     []ResolutionCount
}

// GroupField selects the grouping dimension for GroupBy.
type GroupField string

const (
	// GroupByCodec groups records by codec name.
	GroupByCodec GroupField = "codec"
	// GroupByResolution groups records by normalized WxH resolution.
	GroupByResolution GroupField = "resolution"
)

// GroupStat is one aggregate bucket returned by GroupBy. AvgBitrate is nil
// when no record in the bucket has a known bitrate.
type GroupStat struct {
	Key        string
	Count      int
	TotalSize  int64
	AvgBitrate *float64
}
