package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"media-indexer/internal/filesystem"
	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
	"media-indexer/internal/metrics"
)

// DefaultTimeout bounds a single probe invocation.
const DefaultTimeout = 30 * time.Second

// Result holds the metadata extracted from one file. Fields the probe did not
// report stay nil; consumers must not treat them as zero.
type Result struct {
	Codec     *string
	Width     *int64
	Height    *int64
	Bitrate   *int64   // bits per second
	Duration  *float64 // seconds
	FrameRate *float64
	Format    *string
}

// Prober extracts metadata for one file, returning a Result or one of the
// typed failures (ErrProbeFailed, ErrCorrupted, ErrUnreadable). It never
// mutates the source file.
type Prober interface {
	Probe(ctx context.Context, path string) (*Result, error)
}

// Extractor dispatches a path to the right prober by media type.
type Extractor struct {
	video Prober
	image Prober
}

// NewExtractor wires the ffprobe-backed video prober and the decoder-backed
// image prober behind one dispatch point.
func NewExtractor(runner Runner, timeout time.Duration, deepVerify bool) *Extractor {
	return &Extractor{
		video: NewFFProber(runner, timeout),
		image: &ImageProber{DeepVerify: deepVerify},
	}
}

// Probe extracts metadata for the file at path according to its media type.
func (e *Extractor) Probe(ctx context.Context, path string) (*Result, error) {
	switch mediatypes.GetMediaTypeForPath(path) {
	case mediatypes.MediaTypeVideo:
		return e.video.Probe(ctx, path)
	case mediatypes.MediaTypeImage:
		return e.image.Probe(ctx, path)
	default:
		return nil, fmt.Errorf("%w: unsupported media type for %s", ErrCorrupted, path)
	}
}

// FFProber extracts video metadata by invoking ffprobe as a subprocess.
type FFProber struct {
	runner  Runner
	binary  string
	timeout time.Duration
}

// NewFFProber returns a Prober that shells out to ffprobe with the given
// per-file timeout.
func NewFFProber(runner Runner, timeout time.Duration) *FFProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFProber{
		runner:  runner,
		binary:  "ffprobe",
		timeout: timeout,
	}
}

// ffprobeOutput mirrors the JSON layout of `ffprobe -print_format json`.
// Numeric values arrive as strings in the format section.
type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int64  `json:"width,omitempty"`
		Height     int64  `json:"height,omitempty"`
		RFrameRate string `json:"r_frame_rate,omitempty"`
		Duration   string `json:"duration,omitempty"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
}

// Probe runs ffprobe on one file and normalizes its output.
func (p *FFProber) Probe(ctx context.Context, path string) (*Result, error) {
	// An open failure is an I/O problem with the file, not a probe problem.
	f, err := filesystem.Open(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if closeErr := f.Close(); closeErr != nil {
		logging.Warn("Error closing %s after readability check: %v", path, closeErr)
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	output, err := p.runner.Run(probeCtx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timeout after %v", ErrProbeFailed, p.timeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	if len(output) == 0 {
		return nil, fmt.Errorf("%w: empty probe output", ErrCorrupted)
	}

	var data ffprobeOutput
	if err := json.Unmarshal(output, &data); err != nil {
		return nil, fmt.Errorf("%w: unparseable probe output: %v", ErrCorrupted, err)
	}

	return normalizeVideo(&data)
}

func normalizeVideo(data *ffprobeOutput) (*Result, error) {
	result := &Result{}

	if data.Format.FormatName != "" {
		result.Format = strPtr(data.Format.FormatName)
	}
	if d, ok := parseFloat(data.Format.Duration); ok {
		result.Duration = &d
	}
	if b, ok := parseInt(data.Format.BitRate); ok {
		result.Bitrate = &b
	}

	found := false
	for _, stream := range data.Streams {
		if stream.CodecType != "video" {
			continue
		}
		found = true

		if stream.CodecName != "" {
			result.Codec = strPtr(stream.CodecName)
		}
		if stream.Width > 0 {
			w := stream.Width
			result.Width = &w
		}
		if stream.Height > 0 {
			h := stream.Height
			result.Height = &h
		}
		if fps, ok := parseFrameRate(stream.RFrameRate); ok {
			result.FrameRate = &fps
		}
		// Fall back to stream duration when the container reports none.
		if result.Duration == nil {
			if d, ok := parseFloat(stream.Duration); ok {
				result.Duration = &d
			}
		}
		break
	}

	if !found {
		return nil, fmt.Errorf("%w: no video stream found", ErrCorrupted)
	}

	return result, nil
}

// parseFrameRate parses ffprobe's rational frame rate ("30000/1001").
func parseFrameRate(raw string) (float64, bool) {
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return 0, false
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 || num == 0 {
		return 0, false
	}
	return num / den, true
}

func parseFloat(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

func parseInt(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

func strPtr(s string) *string { return &s }
