package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"media-indexer/internal/database"
	"media-indexer/internal/query"
)

// styles bundles the color functions for console rendering. With color off,
// every function degrades to fmt.Sprint.
type styles struct {
	header func(a ...interface{}) string
	path   func(a ...interface{}) string
	bad    func(a ...interface{}) string
	accent func(a ...interface{}) string
}

func newStyles(colorize bool) styles {
	if !colorize {
		plain := fmt.Sprint
		return styles{header: plain, path: plain, bad: plain, accent: plain}
	}
	return styles{
		header: color.New(color.FgCyan, color.Bold).SprintFunc(),
		path:   color.New(color.FgWhite).SprintFunc(),
		bad:    color.New(color.FgRed).SprintFunc(),
		accent: color.New(color.FgYellow).SprintFunc(),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatBitrate(b *int64) string {
	if b == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f Mbps", float64(*b)/1e6)
}

func formatDuration(seconds float64) string {
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// Table renders records as an aligned console table. It prints exactly the
// records given, in the order given.
func Table(w io.Writer, records []database.MediaRecord, colorize bool) error {
	st := newStyles(colorize)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, st.header("PATH\tTYPE\tSTATUS\tSIZE\tRESOLUTION\tCODEC\tBITRATE\tDURATION"))
	for i := range records {
		rec := &records[i]
		status := string(rec.Status)
		if rec.Status != database.StatusOK {
			status = st.bad(status)
		}
		duration := "-"
		if rec.Duration != nil {
			duration = formatDuration(*rec.Duration)
		}
		codec := "-"
		if rec.Codec != nil {
			codec = *rec.Codec
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			st.path(rec.Path),
			rec.MediaType,
			status,
			humanize.Bytes(uint64(rec.Size)),
			orDash(rec.Resolution()),
			codec,
			formatBitrate(rec.Bitrate),
			duration,
		)
	}
	fmt.Fprintf(tw, "\n%d files\n", len(records))
	return tw.Flush()
}

// Duplicates renders duplicate groups with per-group and total wasted-space
// accounting.
func Duplicates(w io.Writer, groups []query.DuplicateGroup, colorize bool) error {
	st := newStyles(colorize)

	var totalWasted int64
	for i := range groups {
		g := &groups[i]
		wasted := g.WastedBytes()
		totalWasted += wasted
		fmt.Fprintf(w, "%s (%d copies, %s wasted)\n",
			st.header(shortHash(g.Hash)),
			len(g.Records),
			humanize.Bytes(uint64(wasted)))
		for _, rec := range g.Records {
			fmt.Fprintf(w, "  %s  %s\n", humanize.Bytes(uint64(rec.Size)), st.path(rec.Path))
		}
	}
	fmt.Fprintf(w, "\n%d duplicate groups, %s reclaimable\n",
		len(groups), st.accent(humanize.Bytes(uint64(totalWasted))))
	return nil
}

// shortHash abbreviates a hex digest for display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// Groups renders GroupBy aggregates as an aligned table.
func Groups(w io.Writer, field database.GroupField, stats []database.GroupStat, colorize bool) error {
	st := newStyles(colorize)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", st.header(fmt.Sprintf("%s\tCOUNT\tTOTAL SIZE\tAVG BITRATE", strings.ToUpper(string(field)))))
	for _, g := range stats {
		avg := "-"
		if g.AvgBitrate != nil {
			avg = fmt.Sprintf("%.1f Mbps", *g.AvgBitrate/1e6)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			g.Key, g.Count, humanize.Bytes(uint64(g.TotalSize)), avg)
	}
	return tw.Flush()
}

// Stats renders the index summary.
func Stats(w io.Writer, stats *database.Stats, colorize bool) error {
	st := newStyles(colorize)

	fmt.Fprintf(w, "%s\n", st.header("Index summary"))
	fmt.Fprintf(w, "  Files:          %s\n", humanize.Comma(int64(stats.TotalFiles)))
	fmt.Fprintf(w, "  Total size:     %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	if stats.TotalVideoDuration > 0 {
		fmt.Fprintf(w, "  Video runtime:  %s\n", formatDuration(stats.TotalVideoDuration))
	}

	fmt.Fprintf(w, "\n%s\n", st.header("By media type"))
	for _, key := range sortedKeys(stats.ByMediaType) {
		fmt.Fprintf(w, "  %-12s %d\n", key, stats.ByMediaType[key])
	}

	fmt.Fprintf(w, "\n%s\n", st.header("By status"))
	for _, key := range sortedKeys(stats.ByStatus) {
		line := fmt.Sprintf("  %-12s %d", key, stats.ByStatus[key])
		if key != string(database.StatusOK) && stats.ByStatus[key] > 0 {
			line = st.bad(line)
		}
		fmt.Fprintln(w, line)
	}

	if len(stats.TopCodecs) > 0 {
		fmt.Fprintf(w, "\n%s\n", st.header("Top codecs"))
		for _, c := range stats.TopCodecs {
			fmt.Fprintf(w, "  %-12s %d\n", c.Codec, c.Count)
		}
	}
	if len(stats.TopResolutions) > 0 {
		fmt.Fprintf(w, "\n%s\n", st.header("Top resolutions"))
		for _, r := range stats.TopResolutions {
			fmt.Fprintf(w, "  %-12s %d\n", r.Resolution, r.Count)
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
