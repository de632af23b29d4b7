package scanner

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"media-indexer/internal/database"
	"media-indexer/internal/filesystem"
	"media-indexer/internal/hasher"
	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metrics"
	"media-indexer/internal/probe"
	"media-indexer/internal/workers"
)

// progressInterval is how often a running scan logs its counters.
const progressInterval = 10 * time.Second

// Config controls one scan run.
type Config struct {
	// NumWorkers is the number of parallel extraction workers (0 = auto).
	NumWorkers int
	// ChannelBuffer is the size of the job channel buffer.
	ChannelBuffer int
	// Force reprocesses every file even when size and mtime are unchanged.
	Force bool
	// Prune removes index records whose files no longer exist under the root.
	Prune bool
}

// DefaultConfig returns scan defaults sized for I/O-bound probing.
func DefaultConfig() Config {
	return Config{
		NumWorkers:    workers.Default(),
		ChannelBuffer: 1000,
	}
}

// fileJob is one file handed to an extraction worker.
type fileJob struct {
	path string
	info fs.FileInfo
}

// Report summarizes a completed scan.
type Report struct {
	Enumerated  int64
	Processed   int64
	Skipped     int64
	Corrupted   int64
	Unreadable  int64
	ProbeFailed int64
	Pruned      int64
	Duration    time.Duration
}

// Failures is the total number of files that did not extract cleanly.
func (r *Report) Failures() int64 {
	return r.Corrupted + r.Unreadable + r.ProbeFailed
}

// Scanner drives the scan-extract-index pipeline: enumerate files under a
// root, extract metadata and content hashes in parallel, and upsert each
// result into the database as soon as it is ready.
type Scanner struct {
	config    Config
	db        *database.Database
	extractor probe.Prober

	enumerated  atomic.Int64
	processed   atomic.Int64
	skipped     atomic.Int64
	corrupted   atomic.Int64
	unreadable  atomic.Int64
	probeFailed atomic.Int64
	pruned      atomic.Int64
}

// New creates a Scanner over the given database and prober.
func New(db *database.Database, extractor probe.Prober, config Config) *Scanner {
	if config.NumWorkers <= 0 {
		config.NumWorkers = workers.Default()
	}
	if config.ChannelBuffer <= 0 {
		config.ChannelBuffer = 1000
	}
	return &Scanner{
		config:    config,
		db:        db,
		extractor: extractor,
	}
}

// Progress is a point-in-time snapshot of a running scan's counters.
type Progress struct {
	Enumerated  int64 `json:"enumerated"`
	Processed   int64 `json:"processed"`
	Skipped     int64 `json:"skipped"`
	Corrupted   int64 `json:"corrupted"`
	Unreadable  int64 `json:"unreadable"`
	ProbeFailed int64 `json:"probe_failed"`
}

// Progress reports the current counters. Safe to call from any goroutine
// while a scan is running.
func (s *Scanner) Progress() Progress {
	return Progress{
		Enumerated:  s.enumerated.Load(),
		Processed:   s.processed.Load(),
		Skipped:     s.skipped.Load(),
		Corrupted:   s.corrupted.Load(),
		Unreadable:  s.unreadable.Load(),
		ProbeFailed: s.probeFailed.Load(),
	}
}

// Run scans the tree under root. Files flow to the workers while the walk is
// still in progress, so extraction overlaps enumeration. Per-file failures
// are recorded in the database and counted; only an unreadable root fails
// the run. Cancelling ctx abandons queued work but keeps everything already
// written.
func (s *Scanner) Run(ctx context.Context, root string) (*Report, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	logging.Info("Starting scan of %s with %d workers", absRoot, s.config.NumWorkers)
	startTime := time.Now()

	metrics.ScanIsRunning.Set(1)
	metrics.ScanWorkers.Set(float64(s.config.NumWorkers))
	defer metrics.ScanIsRunning.Set(0)

	jobs := make(chan fileJob, s.config.ChannelBuffer)

	var wg sync.WaitGroup
	for i := 0; i < s.config.NumWorkers; i++ {
		wg.Add(1)
		go s.worker(ctx, i, jobs, &wg)
	}

	stopProgress := s.startProgressLogger()

	// Feed jobs during the walk, not after, and remember every path seen so
	// the prune pass can tell stale records from unvisited ones.
	seen := make(map[string]struct{})
	walkErr := Enumerate(absRoot, func(path string, info fs.FileInfo) error {
		seen[path] = struct{}{}
		s.enumerated.Add(1)
		select {
		case jobs <- fileJob{path: path, info: info}:
			return nil
		case <-ctx.Done():
			return fs.SkipAll
		}
	})

	close(jobs)
	wg.Wait()
	stopProgress()

	if walkErr != nil && errors.Is(walkErr, ErrRootUnreadable) {
		return nil, walkErr
	}

	if s.config.Prune && ctx.Err() == nil {
		if err := s.prune(ctx, absRoot, seen); err != nil {
			logging.Warn("Prune pass failed: %v", err)
		}
	}

	report := &Report{
		Enumerated:  s.enumerated.Load(),
		Processed:   s.processed.Load(),
		Skipped:     s.skipped.Load(),
		Corrupted:   s.corrupted.Load(),
		Unreadable:  s.unreadable.Load(),
		ProbeFailed: s.probeFailed.Load(),
		Pruned:      s.pruned.Load(),
		Duration:    time.Since(startTime),
	}

	metrics.ScanDuration.Observe(report.Duration.Seconds())
	logging.Info("Scan complete: %d processed, %d skipped, %d failed, %d pruned in %v",
		report.Processed, report.Skipped, report.Failures(), report.Pruned, report.Duration)

	if ctx.Err() != nil {
		logging.Warn("Scan interrupted; index holds everything processed so far")
	}
	return report, nil
}

// worker pulls jobs until the channel closes or the context is cancelled.
func (s *Scanner) worker(ctx context.Context, id int, jobs <-chan fileJob, wg *sync.WaitGroup) {
	defer wg.Done()

	logging.Debug("Worker %d started", id)
	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.processFile(ctx, job)
	}
	logging.Debug("Worker %d finished", id)
}

// processFile runs the skip check, probe, and hash for one file and upserts
// the outcome. Probe and hash failures are independent: a file whose probe
// fails is still hashed when its bytes are readable, and vice versa.
func (s *Scanner) processFile(ctx context.Context, job fileJob) {
	if !s.config.Force && s.isUnchanged(ctx, job) {
		s.skipped.Add(1)
		metrics.ScanFilesSkipped.Inc()
		return
	}

	rec := &database.MediaRecord{
		Path:      job.path,
		Size:      job.info.Size(),
		ModTime:   job.info.ModTime(),
		MediaType: mediatypes.GetMediaTypeForPath(job.path),
		Status:    database.StatusOK,
		ScannedAt: time.Now().UTC(),
	}

	var details []string

	result, probeErr := s.extractor.Probe(ctx, job.path)
	if probeErr != nil {
		if ctx.Err() != nil {
			return
		}
		rec.Status = classifyProbeError(probeErr)
		details = append(details, probeErr.Error())
		logging.Debug("Probe failed for %s: %v", job.path, probeErr)
	} else {
		rec.Codec = result.Codec
		rec.Width = result.Width
		rec.Height = result.Height
		rec.Bitrate = result.Bitrate
		rec.Duration = result.Duration
		rec.FrameRate = result.FrameRate
		rec.Format = result.Format
	}

	hash, hashErr := hasher.HashFile(ctx, job.path)
	if hashErr != nil {
		if ctx.Err() != nil {
			return
		}
		// Unreadable bytes trump a successful probe; a probe failure
		// already classified the record and stands.
		if rec.Status == database.StatusOK {
			rec.Status = database.StatusUnreadable
		}
		details = append(details, hashErr.Error())
		logging.Debug("Hash failed for %s: %v", job.path, hashErr)
	} else {
		rec.ContentHash = &hash
	}

	if len(details) > 0 {
		detail := strings.Join(details, "; ")
		rec.ErrorDetail = &detail
	}

	if err := s.db.Upsert(ctx, rec); err != nil {
		if ctx.Err() == nil {
			logging.Error("Failed to index %s: %v", job.path, err)
			metrics.ScanFailures.WithLabelValues("database").Inc()
		}
		return
	}

	s.processed.Add(1)
	metrics.ScanFilesProcessed.Inc()
	switch rec.Status {
	case database.StatusCorrupted:
		s.corrupted.Add(1)
		metrics.ScanFailures.WithLabelValues("corrupted").Inc()
	case database.StatusUnreadable:
		s.unreadable.Add(1)
		metrics.ScanFailures.WithLabelValues("unreadable").Inc()
	case database.StatusProbeFailed:
		s.probeFailed.Add(1)
		metrics.ScanFailures.WithLabelValues("probe_failed").Inc()
	}
}

// isUnchanged reports whether the file already has a record with the same
// size and modification time.
func (s *Scanner) isUnchanged(ctx context.Context, job fileJob) bool {
	existing, err := s.db.GetByPath(ctx, job.path)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Warn("Skip check failed for %s: %v", job.path, err)
		}
		return false
	}
	return existing.Size == job.info.Size() &&
		existing.ModTime.Unix() == job.info.ModTime().Unix()
}

// classifyProbeError maps probe sentinels onto record statuses.
func classifyProbeError(err error) database.Status {
	switch {
	case errors.Is(err, probe.ErrUnreadable):
		return database.StatusUnreadable
	case errors.Is(err, probe.ErrCorrupted):
		return database.StatusCorrupted
	default:
		return database.StatusProbeFailed
	}
}

// prune deletes records under root whose files were not enumerated and are
// confirmed gone. The stat confirmation protects records the walk merely
// skipped (a directory that became unreadable mid-scan, for example) from
// being dropped.
func (s *Scanner) prune(ctx context.Context, root string, seen map[string]struct{}) error {
	paths, err := s.db.PathsUnder(ctx, root)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if _, ok := seen[path]; ok {
			continue
		}
		if _, err := filesystem.Stat(path, filesystem.DefaultRetryConfig()); err == nil || !os.IsNotExist(err) {
			continue
		}
		if err := s.db.Delete(ctx, path); err != nil {
			logging.Warn("Failed to prune %s: %v", path, err)
			continue
		}
		s.pruned.Add(1)
		logging.Debug("Pruned stale record %s", path)
	}

	if n := s.pruned.Load(); n > 0 {
		logging.Info("Pruned %d stale records", n)
	}
	return nil
}

// startProgressLogger emits a progress line at a fixed interval until the
// returned stop function is called.
func (s *Scanner) startProgressLogger() func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p := s.Progress()
				logging.Info("Scan progress: %d enumerated, %d processed, %d skipped, %d failed",
					p.Enumerated, p.Processed, p.Skipped,
					p.Corrupted+p.Unreadable+p.ProbeFailed)
			case <-done:
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
