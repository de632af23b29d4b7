package database

import (
	"context"
	"testing"
	"time"

	"media-indexer/internal/mediatypes"
)

func seedQueryFixtures(t *testing.T, db *Database) {
	t.Helper()
	ctx := context.Background()

	records := []*MediaRecord{
		{
			Path: "/media/a/big.mp4", Size: 500 * 1024 * 1024,
			ModTime:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			MediaType: mediatypes.MediaTypeVideo,
			Codec:     strPtr("h264"), Width: intPtr(3840), Height: intPtr(2160),
			Bitrate: intPtr(20_000_000), Duration: floatPtr(600),
			ContentHash: strPtr("hash-big"),
			Status:      StatusOK, ScannedAt: time.Now(),
		},
		{
			Path: "/media/b/small.mp4", Size: 10 * 1024 * 1024,
			ModTime:   time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			MediaType: mediatypes.MediaTypeVideo,
			Codec:     strPtr("hevc"), Width: intPtr(1920), Height: intPtr(1080),
			Bitrate: intPtr(2_000_000), Duration: floatPtr(120),
			ContentHash: strPtr("hash-small"),
			Status:      StatusOK, ScannedAt: time.Now(),
		},
		{
			// Bitrate unknown: must never match a min-bitrate filter.
			Path: "/media/c/unknown.avi", Size: 100 * 1024 * 1024,
			ModTime:   time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			MediaType: mediatypes.MediaTypeVideo,
			Status:    StatusProbeFailed, ScannedAt: time.Now(),
		},
		{
			Path: "/media/photos/img.jpg", Size: 4 * 1024 * 1024,
			ModTime:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			MediaType: mediatypes.MediaTypeImage,
			Width:     intPtr(4000), Height: intPtr(3000),
			ContentHash: strPtr("hash-img"),
			Status:      StatusOK, ScannedAt: time.Now(),
		},
	}

	for _, rec := range records {
		if err := db.Upsert(ctx, rec); err != nil {
			t.Fatalf("Seed upsert %s failed: %v", rec.Path, err)
		}
	}
}

func TestQueryNoFilter(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	all, err := db.Query(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("Expected 4 records, got %d", len(all))
	}

	// Ordered by path.
	for i := 1; i < len(all); i++ {
		if all[i-1].Path > all[i].Path {
			t.Errorf("Records not ordered by path: %q > %q", all[i-1].Path, all[i].Path)
		}
	}
}

func TestQueryByMediaType(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	images, err := db.Query(context.Background(), Filter{MediaType: mediatypes.MediaTypeImage})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(images) != 1 || images[0].Path != "/media/photos/img.jpg" {
		t.Errorf("Expected only the image record, got %v", images)
	}
}

func TestQueryByStatus(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	failed, err := db.Query(context.Background(), Filter{Status: StatusProbeFailed})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Path != "/media/c/unknown.avi" {
		t.Errorf("Expected only the probe-failed record, got %v", failed)
	}
}

func TestQueryByPattern(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	got, err := db.Query(context.Background(), Filter{PathPattern: "/b/"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Path != "/media/b/small.mp4" {
		t.Errorf("Pattern filter returned %v", got)
	}
}

func TestQueryByDateRange(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	got, err := db.Query(context.Background(), Filter{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records in range, got %d", len(got))
	}
}

func TestQueryMinBitrateExcludesNull(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	got, err := db.Query(context.Background(), Filter{MinBitrate: 1})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	for _, rec := range got {
		if rec.Bitrate == nil {
			t.Errorf("Record with unknown bitrate matched min-bitrate filter: %s", rec.Path)
		}
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 records with known bitrate, got %d", len(got))
	}
}

func TestQueryConjunction(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	got, err := db.Query(context.Background(), Filter{
		MediaType:  mediatypes.MediaTypeVideo,
		MinBitrate: 10_000_000,
		MinSize:    50 * 1024 * 1024,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 1 || got[0].Path != "/media/a/big.mp4" {
		t.Errorf("Conjunction filter returned %v", got)
	}
}

func TestLargest(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	got, err := db.Largest(context.Background(), 2)
	if err != nil {
		t.Fatalf("Largest failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(got))
	}
	if got[0].Path != "/media/a/big.mp4" {
		t.Errorf("Largest[0] = %s, want /media/a/big.mp4", got[0].Path)
	}
	if got[0].Size < got[1].Size {
		t.Error("Largest not ordered by size descending")
	}
}

func TestRecordsWithHash(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	got, err := db.RecordsWithHash(context.Background())
	if err != nil {
		t.Fatalf("RecordsWithHash failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 hashed records, got %d", len(got))
	}
	for _, rec := range got {
		if !rec.HasHash() {
			t.Errorf("Record without hash returned: %s", rec.Path)
		}
	}
}

func TestPathsUnder(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	paths, err := db.PathsUnder(context.Background(), "/media/a")
	if err != nil {
		t.Fatalf("PathsUnder failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/media/a/big.mp4" {
		t.Errorf("PathsUnder(/media/a) = %v", paths)
	}

	all, err := db.PathsUnder(context.Background(), "/media")
	if err != nil {
		t.Fatalf("PathsUnder failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("PathsUnder(/media) returned %d paths, want 4", len(all))
	}
}

func TestCalculateStats(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	stats, err := db.CalculateStats(context.Background())
	if err != nil {
		t.Fatalf("CalculateStats failed: %v", err)
	}

	if stats.TotalFiles != 4 {
		t.Errorf("TotalFiles = %d, want 4", stats.TotalFiles)
	}
	if stats.ByMediaType["video"] != 3 {
		t.Errorf("video count = %d, want 3", stats.ByMediaType["video"])
	}
	if stats.ByMediaType["image"] != 1 {
		t.Errorf("image count = %d, want 1", stats.ByMediaType["image"])
	}
	if stats.ByStatus["ok"] != 3 {
		t.Errorf("ok count = %d, want 3", stats.ByStatus["ok"])
	}
	if stats.ByStatus["probe_failed"] != 1 {
		t.Errorf("probe_failed count = %d, want 1", stats.ByStatus["probe_failed"])
	}
	if stats.TotalSize == 0 {
		t.Error("TotalSize should be non-zero")
	}
	if stats.TotalVideoDuration != 720 {
		t.Errorf("TotalVideoDuration = %v, want 720", stats.TotalVideoDuration)
	}
	if len(stats.TopCodecs) != 2 {
		t.Errorf("TopCodecs = %v, want 2 entries", stats.TopCodecs)
	}
}

func TestGroupByCodec(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	groups, err := db.GroupBy(context.Background(), GroupByCodec)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	byKey := make(map[string]GroupStat)
	for _, g := range groups {
		byKey[g.Key] = g
	}

	h264, ok := byKey["h264"]
	if !ok {
		t.Fatal("Missing h264 group")
	}
	if h264.Count != 1 {
		t.Errorf("h264 count = %d, want 1", h264.Count)
	}
	if h264.AvgBitrate == nil || *h264.AvgBitrate != 20_000_000 {
		t.Errorf("h264 avg bitrate = %v, want 20000000", h264.AvgBitrate)
	}
}

func TestGroupByResolution(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)

	groups, err := db.GroupBy(context.Background(), GroupByResolution)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	// big.mp4 (3840x2160), small.mp4 (1920x1080), img.jpg (4000x3000);
	// unknown.avi has no dimensions and must be absent.
	if len(groups) != 3 {
		t.Fatalf("Expected 3 resolution groups, got %d", len(groups))
	}
	for _, g := range groups {
		if g.Key == "" {
			t.Error("Empty resolution key in groups")
		}
	}
}

func TestGroupByInvalidField(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.GroupBy(context.Background(), GroupField("bogus")); err == nil {
		t.Error("Expected error for unsupported group field")
	}
}

func TestQueryDoesNotMutate(t *testing.T) {
	db := newTestDB(t)
	seedQueryFixtures(t, db)
	ctx := context.Background()

	before, err := db.GetByPath(ctx, "/media/a/big.mp4")
	if err != nil {
		t.Fatalf("GetByPath failed: %v", err)
	}

	if _, err := db.Query(ctx, Filter{MediaType: mediatypes.MediaTypeVideo}); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if _, err := db.CalculateStats(ctx); err != nil {
		t.Fatalf("CalculateStats failed: %v", err)
	}

	after, err := db.GetByPath(ctx, "/media/a/big.mp4")
	if err != nil {
		t.Fatalf("GetByPath failed: %v", err)
	}
	if !after.ScannedAt.Equal(before.ScannedAt) {
		t.Error("Read query mutated scanned_at")
	}
}
