package session

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sgerrors "github.com/subgrab/subgrab/pkg/core/errors"
	"github.com/subgrab/subgrab/pkg/core/opensubtitles"
	"github.com/subgrab/subgrab/pkg/core/scan"
	"github.com/subgrab/subgrab/pkg/core/selector"
)

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeService struct {
	records     []selector.Record
	searchErr   error
	downloadErr error
	loginErr    error

	loggedIn    bool
	loggedOut   bool
	lastQueries []opensubtitles.HashQuery
	downloads   []string
}

func (f *fakeService) LogIn(username, password, language, userAgent string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeService) SearchSubtitles(language string, queries []opensubtitles.HashQuery) ([]selector.Record, error) {
	f.lastQueries = queries
	return f.records, f.searchErr
}

func (f *fakeService) DownloadSubtitle(subtitleID string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	f.downloads = append(f.downloads, subtitleID)
	return []byte("content of " + subtitleID), nil
}

func (f *fakeService) LogOut() error {
	f.loggedOut = true
	return nil
}

type fakeWriter struct {
	written map[string][]byte
	err     error
}

func (w *fakeWriter) Write(dir, name string, data []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.written == nil {
		w.written = map[string][]byte{}
	}
	w.written[filepath.Join(dir, name)] = data
	return nil
}

var cfg = Config{Language: "eng", UserAgent: "test agent"}

func movie(dir, name, hash string) scan.MovieFile {
	return scan.MovieFile{Dir: dir, Name: name, Size: 700000, Hash: hash}
}

func TestRunHappyPath(t *testing.T) {
	svc := &fakeService{records: []selector.Record{
		{Hash: "h1", SubtitleID: "s1", Bad: "0"},
		{Hash: "h2", SubtitleID: "s2", Bad: "0"},
	}}
	out := &fakeWriter{}
	s := New(svc, out, cfg, quietLogger())

	files := []scan.MovieFile{
		movie("/media", "one.mkv", "h1"),
		movie("/media", "two.avi", "h2"),
	}
	result, err := s.Run(files)
	require.NoError(t, err)

	assert.Equal(t, []selector.Download{
		{Hash: "h1", SubtitleID: "s1"},
		{Hash: "h2", SubtitleID: "s2"},
	}, result.Plan)
	require.Len(t, result.Saved, 2)
	assert.Equal(t, []byte("content of s1"), out.written[filepath.Join("/media", "one.srt")])
	assert.Equal(t, []byte("content of s2"), out.written[filepath.Join("/media", "two.srt")])
	assert.True(t, svc.loggedOut)
	assert.Equal(t, StateDone, s.State())
}

func TestRunSharedFingerprintFansOut(t *testing.T) {
	// Byte-identical files share a fingerprint: one query, one download,
	// two writes.
	svc := &fakeService{records: []selector.Record{
		{Hash: "h1", SubtitleID: "s1", Bad: "0"},
	}}
	out := &fakeWriter{}
	s := New(svc, out, cfg, quietLogger())

	files := []scan.MovieFile{
		movie("/a", "copy1.mkv", "h1"),
		movie("/b", "copy2.mkv", "h1"),
	}
	result, err := s.Run(files)
	require.NoError(t, err)

	assert.Len(t, svc.lastQueries, 1)
	assert.Equal(t, []string{"s1"}, svc.downloads)
	require.Len(t, result.Saved, 2)
	assert.Contains(t, out.written, filepath.Join("/a", "copy1.srt"))
	assert.Contains(t, out.written, filepath.Join("/b", "copy2.srt"))
}

func TestRunSkipsUnfingerprintedFiles(t *testing.T) {
	svc := &fakeService{records: []selector.Record{
		{Hash: "h1", SubtitleID: "s1", Bad: "0"},
	}}
	out := &fakeWriter{}
	s := New(svc, out, cfg, quietLogger())

	files := []scan.MovieFile{
		movie("/media", "good.mkv", "h1"),
		movie("/media", "broken.mkv", ""), // hashing failed during scan
	}
	result, err := s.Run(files)
	require.NoError(t, err)
	assert.Len(t, svc.lastQueries, 1)
	assert.Len(t, result.Saved, 1)
}

func TestRunNothingToSearch(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, &fakeWriter{}, cfg, quietLogger())

	result, err := s.Run([]scan.MovieFile{movie("/media", "broken.mkv", "")})
	require.NoError(t, err)
	assert.Empty(t, result.Plan)
	assert.False(t, svc.loggedIn, "must not touch the network with an empty batch")
	assert.Equal(t, StateDone, s.State())
}

func TestRunNoResults(t *testing.T) {
	svc := &fakeService{} // empty record list, as the client maps "data: false"
	s := New(svc, &fakeWriter{}, cfg, quietLogger())

	result, err := s.Run([]scan.MovieFile{movie("/media", "one.mkv", "h1")})
	require.NoError(t, err)
	assert.Empty(t, result.Plan)
	assert.Empty(t, result.Saved)
	assert.True(t, svc.loggedOut)
}

func TestRunLoginFailure(t *testing.T) {
	svc := &fakeService{loginErr: fmt.Errorf("LogIn: %w", sgerrors.ErrBadStatus)}
	s := New(svc, &fakeWriter{}, cfg, quietLogger())

	_, err := s.Run([]scan.MovieFile{movie("/media", "one.mkv", "h1")})
	assert.ErrorIs(t, err, sgerrors.ErrBadStatus)
	assert.False(t, svc.loggedOut, "no session to end when login failed")
}

func TestRunSearchFailureStillLogsOut(t *testing.T) {
	svc := &fakeService{searchErr: fmt.Errorf("SearchSubtitles: %w", sgerrors.ErrBadStatus)}
	s := New(svc, &fakeWriter{}, cfg, quietLogger())

	_, err := s.Run([]scan.MovieFile{movie("/media", "one.mkv", "h1")})
	assert.ErrorIs(t, err, sgerrors.ErrBadStatus)
	assert.True(t, svc.loggedOut, "logout must be attempted on the error path")
}

func TestRunDownloadFailureAbortsRemaining(t *testing.T) {
	svc := &fakeService{
		records: []selector.Record{
			{Hash: "h1", SubtitleID: "s1", Bad: "0"},
			{Hash: "h2", SubtitleID: "s2", Bad: "0"},
		},
		downloadErr: errors.New("quota exceeded"),
	}
	out := &fakeWriter{}
	s := New(svc, out, cfg, quietLogger())

	_, err := s.Run([]scan.MovieFile{
		movie("/media", "one.mkv", "h1"),
		movie("/media", "two.mkv", "h2"),
	})
	assert.Error(t, err)
	assert.Empty(t, out.written)
	assert.True(t, svc.loggedOut)
}

func TestRunWriteFailure(t *testing.T) {
	svc := &fakeService{records: []selector.Record{
		{Hash: "h1", SubtitleID: "s1", Bad: "0"},
	}}
	s := New(svc, &fakeWriter{err: errors.New("disk full")}, cfg, quietLogger())

	result, err := s.Run([]scan.MovieFile{movie("/media", "one.mkv", "h1")})
	assert.Error(t, err)
	assert.Empty(t, result.Saved)
	assert.True(t, svc.loggedOut)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "logged-in", StateLoggedIn.String())
	assert.Equal(t, "searched", StateSearched.String())
	assert.Equal(t, "logged-out", StateLoggedOut.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "error", StateError.String())
}
