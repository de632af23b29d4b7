package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"media-indexer/internal/mediatypes"
)

const selectColumns = `
	SELECT id, path, size, mod_time, media_type,
	       codec, width, height, bit_rate, duration, frame_rate, format,
	       content_hash, status, error_message, scanned_at`

// Filter is a conjunction of read-query predicates. Zero values mean
// "no constraint". MinBitrate and MinSize never match records whose
// corresponding column is NULL: unknown is not zero.
type Filter struct {
	MediaType   mediatypes.MediaType
	Status      Status
	PathPattern string // substring match on path
	From        time.Time
	To          time.Time
	MinSize     int64 // bytes
	MinBitrate  int64 // bits per second
	Limit       int
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*MediaRecord, error) {
	var (
		rec       MediaRecord
		modTime   int64
		scannedAt int64
		codec     *string
		width     *int64
		height    *int64
		bitrate   *int64
		duration  *float64
		frameRate *float64
		format    *string
		hash      *string
		errDetail *string
	)

	if err := row.Scan(
		&rec.ID, &rec.Path, &rec.Size, &modTime, &rec.MediaType,
		&codec, &width, &height, &bitrate, &duration, &frameRate, &format,
		&hash, &rec.Status, &errDetail, &scannedAt,
	); err != nil {
		return nil, err
	}

	rec.ModTime = time.Unix(modTime, 0).UTC()
	rec.ScannedAt = time.Unix(scannedAt, 0).UTC()
	rec.Codec = codec
	rec.Width = width
	rec.Height = height
	rec.Bitrate = bitrate
	rec.Duration = duration
	rec.FrameRate = frameRate
	rec.Format = format
	rec.ContentHash = hash
	rec.ErrorDetail = errDetail
	return &rec, nil
}

// Query returns all records matching the filter conjunction, ordered by path
// for reproducible output. Read-only: no field is mutated.
func (d *Database) Query(ctx context.Context, f Filter) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("query", start, err) }()

	var conds []string
	var args []interface{}

	if f.MediaType != "" {
		conds = append(conds, "media_type = ?")
		args = append(args, f.MediaType)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.PathPattern != "" {
		conds = append(conds, "instr(path, ?) > 0")
		args = append(args, f.PathPattern)
	}
	if !f.From.IsZero() {
		conds = append(conds, "mod_time >= ?")
		args = append(args, f.From.Unix())
	}
	if !f.To.IsZero() {
		conds = append(conds, "mod_time <= ?")
		args = append(args, f.To.Unix())
	}
	if f.MinSize > 0 {
		conds = append(conds, "size >= ?")
		args = append(args, f.MinSize)
	}
	if f.MinBitrate > 0 {
		// NULL bitrate is unknown, not zero; it never satisfies a minimum.
		conds = append(conds, "bit_rate IS NOT NULL AND bit_rate >= ?")
		args = append(args, f.MinBitrate)
	}

	query := selectColumns + " FROM media_records"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY path ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return d.queryRecords(ctx, query, args...)
}

// Largest returns the n largest records by file size.
func (d *Database) Largest(ctx context.Context, n int) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("largest", start, err) }()

	query := selectColumns + ` FROM media_records ORDER BY size DESC, path ASC LIMIT ?`
	return d.queryRecords(ctx, query, n)
}

// RecordsWithHash returns all records carrying a content fingerprint, ordered
// by hash then path. This is the input to duplicate-group derivation.
func (d *Database) RecordsWithHash(ctx context.Context) ([]MediaRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("records_with_hash", start, err) }()

	query := selectColumns + `
	FROM media_records
	WHERE content_hash IS NOT NULL AND content_hash != ''
	ORDER BY content_hash ASC, path ASC`
	return d.queryRecords(ctx, query)
}

// PathsUnder returns all indexed paths beneath the given root prefix. The
// scanner uses it to find stale records after a scan.
func (d *Database) PathsUnder(ctx context.Context, root string) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("paths_under", start, err) }()

	prefix := strings.TrimSuffix(root, "/") + "/"

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(opCtx,
		`SELECT path FROM media_records WHERE path LIKE ? ESCAPE '\' ORDER BY path ASC`,
		likeEscape(prefix)+"%",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err = rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	err = rows.Err()
	return paths, err
}

// likeEscape escapes LIKE wildcards in a literal prefix.
func likeEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func (d *Database) queryRecords(ctx context.Context, query string, args ...interface{}) ([]MediaRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(opCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []MediaRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CalculateStats computes index-wide statistics: counts by media type and
// status, aggregate size, total known video duration, and the most common
// codecs and resolutions.
func (d *Database) CalculateStats(ctx context.Context) (*Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := &Stats{
		ByMediaType: make(map[string]int),
		ByStatus:    make(map[string]int),
	}

	err = d.db.QueryRowContext(opCtx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM media_records`,
	).Scan(&stats.TotalFiles, &stats.TotalSize)
	if err != nil {
		return nil, err
	}

	if err = d.countsInto(opCtx, "media_type", stats.ByMediaType); err != nil {
		return nil, err
	}
	if err = d.countsInto(opCtx, "status", stats.ByStatus); err != nil {
		return nil, err
	}

	err = d.db.QueryRowContext(opCtx,
		`SELECT COALESCE(SUM(duration), 0) FROM media_records
		 WHERE media_type = 'video' AND duration IS NOT NULL`,
	).Scan(&stats.TotalVideoDuration)
	if err != nil {
		return nil, err
	}

	stats.TopCodecs, err = d.topCodecs(opCtx, 10)
	if err != nil {
		return nil, err
	}

	stats.TopResolutions, err = d.topResolutions(opCtx, 10)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// countsInto fills dest with COUNT(*) grouped by the given column.
// The column name is one of the fixed identifiers above, never user input.
func (d *Database) countsInto(ctx context.Context, column string, dest map[string]int) error {
	rows, err := d.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM media_records GROUP BY %s`, column, column))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}

func (d *Database) topCodecs(ctx context.Context, limit int) ([]CodecCount, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT codec, COUNT(*) as cnt
		FROM media_records
		WHERE codec IS NOT NULL AND status = 'ok'
		GROUP BY codec
		ORDER BY cnt DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CodecCount
	for rows.Next() {
		var cc CodecCount
		if err := rows.Scan(&cc.Codec, &cc.Count); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (d *Database) topResolutions(ctx context.Context, limit int) ([]ResolutionCount, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT width || 'x' || height AS resolution, COUNT(*) AS cnt
		FROM media_records
		WHERE width IS NOT NULL AND height IS NOT NULL
		GROUP BY width, height
		ORDER BY cnt DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResolutionCount
	for rows.Next() {
		var rc ResolutionCount
		if err := rows.Scan(&rc.Resolution, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// GroupBy partitions records by codec or by normalized resolution, returning
// per-group count, total size, and average known bitrate. Records with a NULL
// grouping key are left out rather than lumped into a zero bucket.
func (d *Database) GroupBy(ctx context.Context, field GroupField) ([]GroupStat, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("group_by", start, err) }()

	var query string
	switch field {
	case GroupByCodec:
		query = `
		SELECT codec, COUNT(*), COALESCE(SUM(size), 0), AVG(bit_rate)
		FROM media_records
		WHERE codec IS NOT NULL
		GROUP BY codec
		ORDER BY COUNT(*) DESC, codec ASC`
	case GroupByResolution:
		query = `
		SELECT width || 'x' || height, COUNT(*), COALESCE(SUM(size), 0), AVG(bit_rate)
		FROM media_records
		WHERE width IS NOT NULL AND height IS NOT NULL
		GROUP BY width, height
		ORDER BY COUNT(*) DESC, width DESC`
	default:
		err = fmt.Errorf("unsupported group field: %q", field)
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(opCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GroupStat
	for rows.Next() {
		var gs GroupStat
		if err = rows.Scan(&gs.Key, &gs.Count, &gs.TotalSize, &gs.AvgBitrate); err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	err = rows.Err()
	return out, err
}
