package query

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"media-indexer/internal/database"
	"media-indexer/internal/mediatypes"
)

// ErrBadFilter is returned for contradictory or malformed filter
// combinations. It is a usage error and should terminate the query
// invocation with a non-zero exit.
var ErrBadFilter = errors.New("invalid filter combination")

// DuplicateGroup is the set of records sharing one content hash. Groups are
// derived on every query from current database contents and never stored.
type DuplicateGroup struct {
	Hash    string                 `json:"hash"`
	Records []database.MediaRecord `json:"records"`
}

// WastedBytes is the space recoverable by keeping a single copy.
func (g *DuplicateGroup) WastedBytes() int64 {
	var total int64
	for _, rec := range g.Records[1:] {
		total += rec.Size
	}
	return total
}

// Engine answers read-side questions over the database. It holds no state
// of its own and never mutates records.
type Engine struct {
	db *database.Database
}

// New creates an Engine over db.
func New(db *database.Database) *Engine {
	return &Engine{db: db}
}

// Duplicates derives all duplicate groups: records with a non-nil content
// hash, grouped by hash, with singleton groups discarded. Output is ordered
// by hash and then by path, so repeated runs over an unchanged database
// produce identical output.
func (e *Engine) Duplicates(ctx context.Context) ([]DuplicateGroup, error) {
	records, err := e.db.RecordsWithHash(ctx)
	if err != nil {
		return nil, err
	}

	byHash := make(map[string][]database.MediaRecord)
	for _, rec := range records {
		hash := *rec.ContentHash
		byHash[hash] = append(byHash[hash], rec)
	}

	hashes := make([]string, 0, len(byHash))
	for hash, group := range byHash {
		if len(group) < 2 {
			continue
		}
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	groups := make([]DuplicateGroup, 0, len(hashes))
	for _, hash := range hashes {
		group := byHash[hash]
		sort.Slice(group, func(i, j int) bool { return group[i].Path < group[j].Path })
		groups = append(groups, DuplicateGroup{Hash: hash, Records: group})
	}
	return groups, nil
}

// DuplicateCopies lists the individual duplicate copies matching pattern,
// one record per copy. Which copy of a group to keep is the caller's call,
// expressed through the pattern: a copy is listed only when at least one
// other member of its group does NOT match, so the listing never names
// every copy of a file. An empty pattern matches everything and therefore
// lists nothing.
func (e *Engine) DuplicateCopies(ctx context.Context, pattern string) ([]database.MediaRecord, error) {
	groups, err := e.Duplicates(ctx)
	if err != nil {
		return nil, err
	}

	var copies []database.MediaRecord
	for _, group := range groups {
		var matched []database.MediaRecord
		unmatchedExists := false
		for _, rec := range group.Records {
			if strings.Contains(rec.Path, pattern) {
				matched = append(matched, rec)
			} else {
				unmatchedExists = true
			}
		}
		if unmatchedExists {
			copies = append(copies, matched...)
		}
	}
	return copies, nil
}

// SuffixSiblings returns the records that are derivatives by naming
// convention: the record's base name ends with suffix, and stripping the
// suffix yields the path of another indexed record (the original). Input
// order is preserved.
func SuffixSiblings(records []database.MediaRecord, suffix string) ([]database.MediaRecord, error) {
	if suffix == "" {
		return nil, fmt.Errorf("%w: suffix must not be empty", ErrBadFilter)
	}

	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[rec.Path] = struct{}{}
	}

	var siblings []database.MediaRecord
	for _, rec := range records {
		ext := filepath.Ext(rec.Path)
		stem := strings.TrimSuffix(rec.Path, ext)
		if !strings.HasSuffix(stem, suffix) {
			continue
		}
		original := strings.TrimSuffix(stem, suffix) + ext
		if _, ok := known[original]; ok {
			siblings = append(siblings, rec)
		}
	}
	return siblings, nil
}

// ValidateFilter rejects filter combinations the database layer would
// silently mis-serve.
func ValidateFilter(f database.Filter) error {
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return fmt.Errorf("%w: date range ends before it starts", ErrBadFilter)
	}
	if f.MinSize < 0 {
		return fmt.Errorf("%w: negative minimum size", ErrBadFilter)
	}
	if f.MinBitrate < 0 {
		return fmt.Errorf("%w: negative minimum bitrate", ErrBadFilter)
	}
	switch f.MediaType {
	case "", mediatypes.MediaTypeImage, mediatypes.MediaTypeVideo:
	default:
		return fmt.Errorf("%w: unknown media type %q", ErrBadFilter, f.MediaType)
	}
	switch f.Status {
	case "", database.StatusOK, database.StatusCorrupted,
		database.StatusUnreadable, database.StatusProbeFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrBadFilter, f.Status)
	}
	return nil
}
