// Package metadata extracts human-readable release details from video
// file names. Purely informational: the subtitle lookup keys on the
// content fingerprint, never on the parsed name.
package metadata

import (
	"path/filepath"
	"strings"

	ptn "github.com/razsteinmetz/go-ptn"
)

// Release is the parsed form of a release file name.
type Release struct {
	Title      string
	Year       int
	Season     int
	Episode    int
	Resolution string
	Group      string
}

// ParseRelease parses a video file name. When the torrent-name grammar
// does not match, the dotted base name doubles as the title so callers
// always have something to display.
func ParseRelease(filename string) Release {
	parsed, err := ptn.Parse(filename)
	if err == nil && parsed.Title != "" {
		return Release{
			Title:      parsed.Title,
			Year:       parsed.Year,
			Season:     parsed.Season,
			Episode:    parsed.Episode,
			Resolution: parsed.Resolution,
			Group:      parsed.Group,
		}
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return Release{Title: strings.ReplaceAll(base, ".", " ")}
}
