package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"media-indexer/internal/filesystem"
	"media-indexer/internal/logging"
)

// bufferSize is the read granularity for hashing. Large enough to keep
// syscall overhead low on big video files without holding much memory
// per worker.
const bufferSize = 1 << 20

// HashFile computes the SHA-256 digest of the file at path, reading it in
// fixed-size chunks so files of any size hash in constant memory. The
// context is checked between chunks so a cancelled scan stops promptly
// even mid-way through a large file.
func HashFile(ctx context.Context, path string) (string, error) {
	f, err := filesystem.Open(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			logging.Warn("Error closing %s after hashing: %v", path, closeErr)
		}
	}()

	h := sha256.New()
	buf := make([]byte, bufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read for hashing: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
