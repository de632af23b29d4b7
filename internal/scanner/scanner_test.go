package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"media-indexer/internal/database"
	"media-indexer/internal/probe"
)

// stubProber returns deterministic metadata without spawning ffprobe.
// Failures are keyed by base name.
type stubProber struct {
	fail map[string]error
}

func (p *stubProber) Probe(_ context.Context, path string) (*probe.Result, error) {
	if err, ok := p.fail[filepath.Base(path)]; ok {
		return nil, err
	}
	codec := "h264"
	width, height := int64(1920), int64(1080)
	bitrate := int64(5_000_000)
	duration := 42.5
	return &probe.Result{
		Codec:    &codec,
		Width:    &width,
		Height:   &height,
		Bitrate:  &bitrate,
		Duration: &duration,
	}, nil
}

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func newTestScanner(t *testing.T, db *database.Database, cfg Config) *Scanner {
	t.Helper()
	return New(db, &stubProber{}, cfg)
}

func seedTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.mp4"))
	writeFile(t, filepath.Join(root, "sub", "b.mkv"))
	writeFile(t, filepath.Join(root, "sub", "c.jpg"))
	return root
}

func TestScanIndexesTree(t *testing.T) {
	db := newTestDB(t)
	root := seedTree(t)
	s := newTestScanner(t, db, Config{NumWorkers: 4})

	report, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Processed != 3 {
		t.Errorf("Processed = %d, want 3", report.Processed)
	}
	if report.Failures() != 0 {
		t.Errorf("Failures = %d, want 0", report.Failures())
	}

	rec, err := db.GetByPath(context.Background(), filepath.Join(root, "a.mp4"))
	if err != nil {
		t.Fatalf("GetByPath failed: %v", err)
	}
	if rec.Status != database.StatusOK {
		t.Errorf("Status = %s, want ok", rec.Status)
	}
	if rec.Codec == nil || *rec.Codec != "h264" {
		t.Errorf("Codec = %v, want h264", rec.Codec)
	}
	if rec.ContentHash == nil || len(*rec.ContentHash) != 64 {
		t.Errorf("ContentHash = %v, want 64-char digest", rec.ContentHash)
	}
}

func TestScanSkipsUnchangedFiles(t *testing.T) {
	db := newTestDB(t)
	root := seedTree(t)

	first, err := newTestScanner(t, db, Config{NumWorkers: 2}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if first.Processed != 3 || first.Skipped != 0 {
		t.Fatalf("First run: processed %d, skipped %d", first.Processed, first.Skipped)
	}

	second, err := newTestScanner(t, db, Config{NumWorkers: 2}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if second.Processed != 0 || second.Skipped != 3 {
		t.Errorf("Second run: processed %d, skipped %d, want 0/3",
			second.Processed, second.Skipped)
	}
}

func TestScanForceReprocesses(t *testing.T) {
	db := newTestDB(t)
	root := seedTree(t)

	if _, err := newTestScanner(t, db, Config{NumWorkers: 2}).Run(context.Background(), root); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	report, err := newTestScanner(t, db, Config{NumWorkers: 2, Force: true}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Forced run failed: %v", err)
	}
	if report.Processed != 3 || report.Skipped != 0 {
		t.Errorf("Forced run: processed %d, skipped %d, want 3/0",
			report.Processed, report.Skipped)
	}
}

func TestScanModifiedFileReprocessed(t *testing.T) {
	db := newTestDB(t)
	root := t.TempDir()
	path := filepath.Join(root, "clip.mp4")
	writeFile(t, path)

	if _, err := newTestScanner(t, db, Config{NumWorkers: 1}).Run(context.Background(), root); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// Grow the file and push its mtime forward.
	if err := os.WriteFile(path, []byte("rather different content"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite file: %v", err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Failed to bump mtime: %v", err)
	}

	report, err := newTestScanner(t, db, Config{NumWorkers: 1}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("Processed = %d, want 1 for modified file", report.Processed)
	}
}

func TestScanFailureIsolation(t *testing.T) {
	db := newTestDB(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good.mp4"))
	writeFile(t, filepath.Join(root, "bad.mp4"))
	writeFile(t, filepath.Join(root, "slow.mp4"))

	prober := &stubProber{fail: map[string]error{
		"bad.mp4":  fmt.Errorf("%w: moov atom not found", probe.ErrCorrupted),
		"slow.mp4": fmt.Errorf("%w: timed out", probe.ErrProbeFailed),
	}}
	s := New(db, prober, Config{NumWorkers: 2})

	report, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Processed != 3 {
		t.Errorf("Processed = %d, want 3 (failures still get records)", report.Processed)
	}
	if report.Corrupted != 1 || report.ProbeFailed != 1 {
		t.Errorf("Corrupted = %d, ProbeFailed = %d, want 1/1",
			report.Corrupted, report.ProbeFailed)
	}

	bad, err := db.GetByPath(context.Background(), filepath.Join(root, "bad.mp4"))
	if err != nil {
		t.Fatalf("GetByPath(bad) failed: %v", err)
	}
	if bad.Status != database.StatusCorrupted {
		t.Errorf("bad.mp4 status = %s, want corrupted", bad.Status)
	}
	if bad.Codec != nil {
		t.Error("Failed probe should leave codec nil")
	}
	// The bytes were readable, so the hash still landed.
	if bad.ContentHash == nil {
		t.Error("Corrupted file should still carry a content hash")
	}
	if bad.ErrorDetail == nil {
		t.Error("Failed probe should record an error detail")
	}

	good, err := db.GetByPath(context.Background(), filepath.Join(root, "good.mp4"))
	if err != nil {
		t.Fatalf("GetByPath(good) failed: %v", err)
	}
	if good.Status != database.StatusOK {
		t.Errorf("good.mp4 status = %s, want ok", good.Status)
	}
}

func TestScanWorkerCountEquivalence(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("dir%d", i%4), fmt.Sprintf("clip%d.mp4", i)))
	}

	run := func(numWorkers int) []database.MediaRecord {
		db := newTestDB(t)
		if _, err := newTestScanner(t, db, Config{NumWorkers: numWorkers}).Run(context.Background(), root); err != nil {
			t.Fatalf("Run with %d workers failed: %v", numWorkers, err)
		}
		recs, err := db.Query(context.Background(), database.Filter{})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		return recs
	}

	serial := run(1)
	parallel := run(16)

	if len(serial) != 20 || len(parallel) != 20 {
		t.Fatalf("Record counts: serial %d, parallel %d, want 20", len(serial), len(parallel))
	}
	for i := range serial {
		a, b := serial[i], parallel[i]
		if a.Path != b.Path || a.Size != b.Size || a.Status != b.Status {
			t.Errorf("Record %d differs between worker counts: %+v vs %+v", i, a, b)
		}
		if (a.ContentHash == nil) != (b.ContentHash == nil) ||
			(a.ContentHash != nil && *a.ContentHash != *b.ContentHash) {
			t.Errorf("Hash for %s differs between worker counts", a.Path)
		}
	}
}

func TestScanPruneRemovesDeletedFiles(t *testing.T) {
	db := newTestDB(t)
	root := t.TempDir()
	keep := filepath.Join(root, "keep.mp4")
	gone := filepath.Join(root, "gone.mp4")
	writeFile(t, keep)
	writeFile(t, gone)

	if _, err := newTestScanner(t, db, Config{NumWorkers: 1}).Run(context.Background(), root); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	report, err := newTestScanner(t, db, Config{NumWorkers: 1, Prune: true}).Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Prune run failed: %v", err)
	}
	if report.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", report.Pruned)
	}

	if _, err := db.GetByPath(context.Background(), gone); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected pruned record to be gone, got %v", err)
	}
	if _, err := db.GetByPath(context.Background(), keep); err != nil {
		t.Errorf("Surviving file was pruned: %v", err)
	}
}

func TestScanWithoutPruneKeepsStaleRecords(t *testing.T) {
	db := newTestDB(t)
	root := t.TempDir()
	gone := filepath.Join(root, "gone.mp4")
	writeFile(t, gone)

	if _, err := newTestScanner(t, db, Config{NumWorkers: 1}).Run(context.Background(), root); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	if _, err := newTestScanner(t, db, Config{NumWorkers: 1}).Run(context.Background(), root); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if _, err := db.GetByPath(context.Background(), gone); err != nil {
		t.Errorf("Record removed without --prune: %v", err)
	}
}

func TestScanUnreadableRootFails(t *testing.T) {
	db := newTestDB(t)
	s := newTestScanner(t, db, Config{NumWorkers: 1})

	_, err := s.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, ErrRootUnreadable) {
		t.Errorf("Expected ErrRootUnreadable, got %v", err)
	}
}

func TestScanCancelledContext(t *testing.T) {
	db := newTestDB(t)
	root := seedTree(t)
	s := newTestScanner(t, db, Config{NumWorkers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.Run(ctx, root)
	if err != nil {
		t.Fatalf("Cancelled run should not be fatal: %v", err)
	}
	if report == nil {
		t.Fatal("Cancelled run should still return a report")
	}
}

func TestScannerProgressSnapshot(t *testing.T) {
	db := newTestDB(t)
	root := seedTree(t)
	s := newTestScanner(t, db, Config{NumWorkers: 2})

	if _, err := s.Run(context.Background(), root); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	p := s.Progress()
	if p.Enumerated != 3 || p.Processed != 3 {
		t.Errorf("Progress = %+v, want 3 enumerated and processed", p)
	}
}
