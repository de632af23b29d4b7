package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"media-indexer/internal/logging"
	"media-indexer/internal/mediatypes"
)

// ErrRootUnreadable is returned when the scan root itself cannot be opened
// or is not a directory. It is the only enumeration failure that aborts a
// scan; problems below the root are logged and skipped.
var ErrRootUnreadable = errors.New("scan root unreadable")

// Enumerate walks the tree under root and calls emit for every candidate
// media file, in directory order. Hidden entries, operating-system cruft,
// and symlinks are skipped; symlinked directories in particular are never
// followed, so cycles cannot occur. Enumerate keeps no state between calls.
func Enumerate(root string, emit func(path string, info fs.FileInfo) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrRootUnreadable, root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("%w: %v", ErrRootUnreadable, err)
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if mediatypes.IsHidden(d.Name()) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Never follow symlinks. A symlinked directory can point back into
		// the tree and loop the walk; a symlinked file is indexed under its
		// real location if that location is inside the root.
		if d.Type()&fs.ModeSymlink != 0 {
			logging.Debug("Skipping symlink %s", path)
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !mediatypes.IsMediaFile(strings.ToLower(filepath.Ext(d.Name()))) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			return nil
		}

		return emit(path, fi)
	})
}
