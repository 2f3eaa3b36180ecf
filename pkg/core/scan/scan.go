// Package scan walks a directory tree and collects the video files that
// still need subtitles, fingerprinting each one on the way.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/subgrab/subgrab/pkg/core/moviehash"
)

// Recognized video extensions.
var videoExtensions = map[string]bool{
	".avi": true, ".mkv": true, ".mp4": true,
}

// Extensions whose presence next to a video means it is already subtitled.
var subtitleExtensions = []string{".srt", ".sub", ".mpl"}

// MovieFile is one video found during traversal. Hash is the rendered
// fingerprint, empty when hashing failed; such files stay in the
// collection (they are reported) but are never searched for.
type MovieFile struct {
	Dir  string
	Name string
	Size int64
	Hash string
}

// Path returns the full path of the video file.
func (m MovieFile) Path() string {
	return filepath.Join(m.Dir, m.Name)
}

// SubtitlePath returns the target path for the subtitle: the video's
// extension replaced with .srt, same directory.
func (m MovieFile) SubtitlePath() string {
	base := strings.TrimSuffix(m.Name, filepath.Ext(m.Name))
	return filepath.Join(m.Dir, base+".srt")
}

// HasSubtitle reports whether a sibling subtitle file already exists for
// the video at path.
func HasSubtitle(path string) bool {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range subtitleExtensions {
		if _, err := os.Stat(stem + ext); err == nil {
			return true
		}
	}
	return false
}

// IsVideo reports whether the file name carries a recognized video
// extension.
func IsVideo(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// Collect walks root recursively and returns every video file without an
// existing subtitle, fingerprinted. Hashing failures are logged and leave
// Hash empty; the walk continues. Unreadable directories are skipped, not
// fatal.
func Collect(ctx context.Context, root string, logger *log.Logger) ([]MovieFile, error) {
	if logger == nil {
		logger = log.New()
	}

	var files []MovieFile
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			// An unreadable root means there is nothing to scan at all.
			if path == root {
				return err
			}
			logger.Warnf("Error accessing path %q: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsVideo(d.Name()) {
			return nil
		}
		if HasSubtitle(path) {
			logger.Debugf("Skipping already subtitled: %s", d.Name())
			return nil
		}

		logger.Infof("Found: %s", d.Name())
		mf := MovieFile{Dir: filepath.Dir(path), Name: d.Name()}
		hash, size, hashErr := moviehash.FromFile(path)
		mf.Size = size
		if hashErr != nil {
			logger.Warnf("Cannot fingerprint %s: %v", d.Name(), hashErr)
		} else {
			mf.Hash = hash.String()
		}
		files = append(files, mf)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Infof("Scan complete. %d video file(s) need subtitles under %s", len(files), root)
	return files, nil
}
