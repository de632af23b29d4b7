package export

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"media-indexer/internal/database"
)

// Paths writes one path per line, newline-terminated, in the order given.
// This is the machine-friendly list format: it pipes cleanly into xargs,
// rsync --files-from, and the like.
func Paths(w io.Writer, records []database.MediaRecord) error {
	for _, rec := range records {
		if _, err := fmt.Fprintln(w, rec.Path); err != nil {
			return err
		}
	}
	return nil
}

// IsTerminal reports whether f is attached to a terminal. Colorized output
// is only appropriate when it is.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
