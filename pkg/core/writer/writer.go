// Package writer persists subtitle bytes next to their video. Writes are
// all-or-nothing: a same-directory temp file is written, synced and
// renamed over the target, so a failed run never leaves a truncated .srt
// behind.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// SubtitleWriter writes subtitle files atomically.
type SubtitleWriter struct{}

// Write stores data as dir/name, replacing any existing file.
func (SubtitleWriter) Write(dir, name string, data []byte) error {
	dst := filepath.Join(dir, name)

	// Temp file in the same directory so the rename is atomic. The dot
	// prefix keeps half-written files out of media library views.
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("renaming into place %s: %w", dst, err)
	}
	return nil
}
