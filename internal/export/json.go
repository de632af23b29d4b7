package export

import (
	"encoding/json"
	"io"
	"time"

	"media-indexer/internal/database"
	"media-indexer/internal/query"
)

// recordJSON is the wire shape of one record. Keys are stable snake_case;
// unknown metadata serializes as null, never as zero.
type recordJSON struct {
	Path        string   `json:"path"`
	Size        int64    `json:"size"`
	ModTime     string   `json:"mod_time"`
	MediaType   string   `json:"media_type"`
	Codec       *string  `json:"codec"`
	Width       *int64   `json:"width"`
	Height      *int64   `json:"height"`
	Bitrate     *int64   `json:"bit_rate"`
	Duration    *float64 `json:"duration"`
	FrameRate   *float64 `json:"frame_rate"`
	Format      *string  `json:"format"`
	ContentHash *string  `json:"content_hash"`
	Status      string   `json:"status"`
	ErrorDetail *string  `json:"error_message"`
	ScannedAt   string   `json:"scanned_at"`
}

func toRecordJSON(rec *database.MediaRecord) recordJSON {
	return recordJSON{
		Path:        rec.Path,
		Size:        rec.Size,
		ModTime:     rec.ModTime.UTC().Format(time.RFC3339),
		MediaType:   string(rec.MediaType),
		Codec:       rec.Codec,
		Width:       rec.Width,
		Height:      rec.Height,
		Bitrate:     rec.Bitrate,
		Duration:    rec.Duration,
		FrameRate:   rec.FrameRate,
		Format:      rec.Format,
		ContentHash: rec.ContentHash,
		Status:      string(rec.Status),
		ErrorDetail: rec.ErrorDetail,
		ScannedAt:   rec.ScannedAt.UTC().Format(time.RFC3339),
	}
}

type recordsDocument struct {
	Count   int          `json:"count"`
	Records []recordJSON `json:"records"`
}

// RecordsJSON writes records as one indented JSON document.
func RecordsJSON(w io.Writer, records []database.MediaRecord) error {
	doc := recordsDocument{
		Count:   len(records),
		Records: make([]recordJSON, 0, len(records)),
	}
	for i := range records {
		doc.Records = append(doc.Records, toRecordJSON(&records[i]))
	}
	return writeIndented(w, doc)
}

type duplicateGroupJSON struct {
	Hash        string       `json:"hash"`
	WastedBytes int64        `json:"wasted_bytes"`
	Files       []recordJSON `json:"files"`
}

type duplicatesDocument struct {
	GroupCount       int                  `json:"group_count"`
	TotalWastedBytes int64                `json:"total_wasted_bytes"`
	Groups           []duplicateGroupJSON `json:"groups"`
}

// DuplicatesJSON writes duplicate groups as one indented JSON document with
// per-group and total wasted-space accounting.
func DuplicatesJSON(w io.Writer, groups []query.DuplicateGroup) error {
	doc := duplicatesDocument{
		GroupCount: len(groups),
		Groups:     make([]duplicateGroupJSON, 0, len(groups)),
	}
	for i := range groups {
		g := &groups[i]
		wasted := g.WastedBytes()
		doc.TotalWastedBytes += wasted
		files := make([]recordJSON, 0, len(g.Records))
		for j := range g.Records {
			files = append(files, toRecordJSON(&g.Records[j]))
		}
		doc.Groups = append(doc.Groups, duplicateGroupJSON{
			Hash:        g.Hash,
			WastedBytes: wasted,
			Files:       files,
		})
	}
	return writeIndented(w, doc)
}

func writeIndented(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
