package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"media-indexer/internal/database"
	"media-indexer/internal/export"
	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
	"media-indexer/internal/probe"
	"media-indexer/internal/query"
	"media-indexer/internal/scanner"
	"media-indexer/internal/status"
)

const defaultDBPath = "media-index.db"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "scan":
		os.Exit(runScan(os.Args[2:]))
	case "query":
		os.Exit(runQuery(os.Args[2:]))
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `media-indexer indexes media libraries and answers questions about them.

Usage:
  media-indexer scan <root> [flags]    scan a directory tree into the index
  media-indexer query [flags]          query an existing index

Run "media-indexer scan -h" or "media-indexer query -h" for flags.
`)
}

func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	dbPath := fs.String("database", defaultDBPath, "path to the index database")
	numWorkers := fs.Int("workers", 0, "extraction workers (0 = auto)")
	force := fs.Bool("force", false, "reprocess files even when size and mtime are unchanged")
	prune := fs.Bool("prune", false, "remove records whose files no longer exist under the root")
	probeTimeout := fs.Duration("probe-timeout", probe.DefaultTimeout, "per-file ffprobe timeout")
	deepVerify := fs.Bool("deep-verify", false, "fully decode images to catch truncated pixel data")
	statusPort := fs.Int("status-port", 0, "serve /healthz, /progress and /metrics on this port (0 = off)")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "scan requires exactly one root directory")
		fs.Usage()
		return 2
	}
	root := fs.Arg(0)

	if *verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, *dbPath)
	if err != nil {
		logging.Error("Failed to open database %s: %v", *dbPath, err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Error closing database: %v", err)
		}
	}()

	extractor := probe.NewExtractor(probe.NewCommandRunner(), *probeTimeout, *deepVerify)
	s := scanner.New(db, extractor, scanner.Config{
		NumWorkers: *numWorkers,
		Force:      *force,
		Prune:      *prune,
	})

	if *statusPort > 0 {
		st := status.New(s, *statusPort)
		st.Start()
		defer st.Shutdown()
	}

	report, err := s.Run(ctx, root)
	if err != nil {
		logging.Error("Scan failed: %v", err)
		return 1
	}

	printReport(report)

	// Per-file failures are recorded in the index, not an exit condition.
	return 0
}

func printReport(r *scanner.Report) {
	fmt.Printf("Scanned %d files in %v\n", r.Enumerated, r.Duration.Round(time.Millisecond))
	fmt.Printf("  processed:    %d\n", r.Processed)
	fmt.Printf("  skipped:      %d\n", r.Skipped)
	if r.Pruned > 0 {
		fmt.Printf("  pruned:       %d\n", r.Pruned)
	}
	if r.Failures() > 0 {
		fmt.Printf("  corrupted:    %d\n", r.Corrupted)
		fmt.Printf("  unreadable:   %d\n", r.Unreadable)
		fmt.Printf("  probe failed: %d\n", r.ProbeFailed)
	}
}

func runQuery(args []string) int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	dbPath := fs.String("database", defaultDBPath, "path to the index database")
	pattern := fs.String("pattern", "", "path substring filter")
	mediaType := fs.String("type", "", "media type filter (image or video)")
	statusFlag := fs.String("status", "", "status filter (ok, corrupted, unreadable, probe_failed)")
	from := fs.String("from", "", "earliest modification date (YYYY-MM-DD)")
	to := fs.String("to", "", "latest modification date (YYYY-MM-DD)")
	minSize := fs.String("min-size", "", "minimum file size (e.g. 500MB)")
	minBitrate := fs.Int64("min-bitrate", 0, "minimum bitrate in bits per second")
	limit := fs.Int("limit", 0, "cap the number of results (0 = no cap)")
	duplicates := fs.Bool("duplicates", false, "list duplicate groups")
	dupPattern := fs.String("dup-pattern", "", "with -duplicates: list only copies whose path contains this substring")
	suffix := fs.String("suffix", "", "list files paired with an original by this name suffix (e.g. _720p)")
	groupBy := fs.String("group-by", "", "aggregate by codec or resolution")
	largest := fs.Int("largest", 0, "list the N largest files")
	stats := fs.Bool("stats", false, "print index summary statistics")
	format := fs.String("format", "table", "output format: table, json or list")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Parse(args)

	if *verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter, err := buildFilter(*pattern, *mediaType, *statusFlag, *from, *to, *minSize, *minBitrate, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid filter: %v\n", err)
		return 2
	}
	if err := query.ValidateFilter(*filter); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid filter: %v\n", err)
		return 2
	}

	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(os.Stderr, "Index database %s does not exist; run a scan first\n", *dbPath)
		return 1
	}
	db, err := database.New(ctx, *dbPath)
	if err != nil {
		logging.Error("Failed to open database %s: %v", *dbPath, err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Error closing database: %v", err)
		}
	}()

	out := os.Stdout
	colorize := *format == "table" && export.IsTerminal(out)

	switch {
	case *stats:
		indexStats, err := db.CalculateStats(ctx)
		if err != nil {
			logging.Error("Failed to compute stats: %v", err)
			return 1
		}
		err = export.Stats(out, indexStats, colorize)
		return exitFor(err)

	case *duplicates:
		return runDuplicates(ctx, db, *dupPattern, *format, colorize)

	case *groupBy != "":
		field := database.GroupField(*groupBy)
		groups, err := db.GroupBy(ctx, field)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid grouping: %v\n", err)
			return 2
		}
		err = export.Groups(out, field, groups, colorize)
		return exitFor(err)

	case *largest > 0:
		records, err := db.Largest(ctx, *largest)
		if err != nil {
			logging.Error("Query failed: %v", err)
			return 1
		}
		return renderRecords(records, *format, colorize)

	case *suffix != "":
		records, err := db.Query(ctx, *filter)
		if err != nil {
			logging.Error("Query failed: %v", err)
			return 1
		}
		siblings, err := query.SuffixSiblings(records, *suffix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid filter: %v\n", err)
			return 2
		}
		return renderRecords(siblings, *format, colorize)

	default:
		records, err := db.Query(ctx, *filter)
		if err != nil {
			logging.Error("Query failed: %v", err)
			return 1
		}
		return renderRecords(records, *format, colorize)
	}
}

func runDuplicates(ctx context.Context, db *database.Database, dupPattern, format string, colorize bool) int {
	engine := query.New(db)

	if dupPattern != "" {
		copies, err := engine.DuplicateCopies(ctx, dupPattern)
		if err != nil {
			logging.Error("Duplicate query failed: %v", err)
			return 1
		}
		return renderRecords(copies, format, colorize)
	}

	groups, err := engine.Duplicates(ctx)
	if err != nil {
		logging.Error("Duplicate query failed: %v", err)
		return 1
	}
	switch format {
	case "json":
		return exitFor(export.DuplicatesJSON(os.Stdout, groups))
	case "list":
		var records []database.MediaRecord
		for _, g := range groups {
			records = append(records, g.Records...)
		}
		return exitFor(export.Paths(os.Stdout, records))
	default:
		return exitFor(export.Duplicates(os.Stdout, groups, colorize))
	}
}

func renderRecords(records []database.MediaRecord, format string, colorize bool) int {
	switch format {
	case "json":
		return exitFor(export.RecordsJSON(os.Stdout, records))
	case "list":
		return exitFor(export.Paths(os.Stdout, records))
	default:
		return exitFor(export.Table(os.Stdout, records, colorize))
	}
}

func exitFor(err error) int {
	if err != nil {
		logging.Error("Export failed: %v", err)
		return 1
	}
	return 0
}

func buildFilter(pattern, mediaType, statusFlag, from, to, minSize string, minBitrate int64, limit int) (*database.Filter, error) {
	filter := &database.Filter{
		PathPattern: pattern,
		MediaType:   mediatypes.MediaType(strings.ToLower(mediaType)),
		Status:      database.Status(strings.ToLower(statusFlag)),
		MinBitrate:  minBitrate,
		Limit:       limit,
	}

	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, fmt.Errorf("bad -from date %q: %w", from, err)
		}
		filter.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, fmt.Errorf("bad -to date %q: %w", to, err)
		}
		// Inclusive through the end of the named day.
		filter.To = t.Add(24*time.Hour - time.Second)
	}
	if minSize != "" {
		bytes, err := humanize.ParseBytes(minSize)
		if err != nil {
			return nil, fmt.Errorf("bad -min-size %q: %w", minSize, err)
		}
		filter.MinSize = int64(bytes)
	}
	return filter, nil
}
