package probe

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"media-indexer/internal/filesystem"
	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
)

// ImageProber extracts dimensions and format from image files by decoding
// their headers in-process. With DeepVerify set, the full image is decoded so
// that truncated or damaged pixel data is caught, not just a broken header.
type ImageProber struct {
	DeepVerify bool
}

// Probe decodes the image at path. Camera RAW formats cannot be decoded
// in-process: they yield a Result carrying only the format name.
func (p *ImageProber) Probe(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if mediatypes.IsRaw(ext) {
		return &Result{Format: strPtr(strings.TrimPrefix(ext, "."))}, nil
	}

	f, err := filesystem.Open(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Warn("Error closing %s after probe: %v", path, closeErr)
		}
	}()

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	result := &Result{Format: strPtr(format)}
	if config.Width > 0 {
		w := int64(config.Width)
		result.Width = &w
	}
	if config.Height > 0 {
		h := int64(config.Height)
		result.Height = &h
	}

	if p.DeepVerify {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		if _, err := imaging.Decode(f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
	}

	return result, nil
}
