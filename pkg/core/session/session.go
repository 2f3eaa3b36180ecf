// Package session drives one download run against the subtitle service:
// log in, one batched search for every fingerprinted file, selection,
// per-plan-entry fetch and write-out, log out. Remote failures abort the
// remaining steps; logout is still attempted. Fingerprint failures were
// already absorbed during scanning and never reach this package.
package session

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/subgrab/subgrab/pkg/core/opensubtitles"
	"github.com/subgrab/subgrab/pkg/core/scan"
	"github.com/subgrab/subgrab/pkg/core/selector"
)

// State of the per-run session. Transitions are linear; Error leads to a
// logout attempt and then Done.
type State int

const (
	StateIdle State = iota
	StateLoggedIn
	StateSearched
	StateLoggedOut
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoggedIn:
		return "logged-in"
	case StateSearched:
		return "searched"
	case StateLoggedOut:
		return "logged-out"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Service is the remote collaborator. *opensubtitles.Client satisfies it;
// tests substitute a fake.
type Service interface {
	LogIn(username, password, language, userAgent string) error
	SearchSubtitles(language string, queries []opensubtitles.HashQuery) ([]selector.Record, error)
	DownloadSubtitle(subtitleID string) ([]byte, error)
	LogOut() error
}

// Writer is the output collaborator.
type Writer interface {
	Write(dir, name string, data []byte) error
}

// Config carries the login parameters. Empty username and password log
// in anonymously.
type Config struct {
	Username  string
	Password  string
	Language  string
	UserAgent string
}

// Saved records one subtitle written to disk.
type Saved struct {
	File       scan.MovieFile
	SubtitleID string
	Path       string
}

// Result of a run: the selected plan and every file actually written.
type Result struct {
	Plan  []selector.Download
	Saved []Saved
}

// Session is single-use: one Run per Session.
type Session struct {
	svc    Service
	out    Writer
	cfg    Config
	logger *log.Logger
	state  State
}

func New(svc Service, out Writer, cfg Config, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New()
	}
	return &Session{svc: svc, out: out, cfg: cfg, logger: logger, state: StateIdle}
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Run executes the whole session for the given files. Files without a
// fingerprint are skipped. Many files may share one fingerprint; the
// subtitle is downloaded once and written to each of them.
func (s *Session) Run(files []scan.MovieFile) (Result, error) {
	var result Result

	queries := make([]opensubtitles.HashQuery, 0, len(files))
	requested := make(map[string]bool, len(files))
	byHash := make(map[string][]scan.MovieFile, len(files))
	for _, f := range files {
		if f.Hash == "" {
			continue
		}
		if !requested[f.Hash] {
			queries = append(queries, opensubtitles.HashQuery{Hash: f.Hash, Size: f.Size})
			requested[f.Hash] = true
		}
		byHash[f.Hash] = append(byHash[f.Hash], f)
	}
	if len(queries) == 0 {
		s.logger.Info("No fingerprinted files to search for")
		s.state = StateDone
		return result, nil
	}

	s.logger.Info("Logging in...")
	if err := s.svc.LogIn(s.cfg.Username, s.cfg.Password, s.cfg.Language, s.cfg.UserAgent); err != nil {
		s.state = StateError
		return result, fmt.Errorf("login: %w", err)
	}
	s.state = StateLoggedIn
	// Defers run last-in-first-out: logout first, then the session is done.
	defer func() { s.state = StateDone }()
	defer s.logout()

	s.logger.Infof("Searching subtitles for %d file(s)...", len(queries))
	records, err := s.svc.SearchSubtitles(s.cfg.Language, queries)
	if err != nil {
		s.state = StateError
		return result, fmt.Errorf("search: %w", err)
	}
	s.state = StateSearched

	result.Plan = selector.SelectDownloads(requested, records)
	if len(result.Plan) == 0 {
		s.logger.Info("No subtitles found")
		return result, nil
	}

	for _, d := range result.Plan {
		data, err := s.svc.DownloadSubtitle(d.SubtitleID)
		if err != nil {
			s.state = StateError
			return result, fmt.Errorf("download subtitle %s: %w", d.SubtitleID, err)
		}
		for _, f := range byHash[d.Hash] {
			target := f.SubtitlePath()
			s.logger.Infof("Saving subtitle for: %s", f.Name)
			if err := s.out.Write(f.Dir, filepath.Base(target), data); err != nil {
				s.state = StateError
				return result, fmt.Errorf("write subtitle for %s: %w", f.Name, err)
			}
			result.Saved = append(result.Saved, Saved{File: f, SubtitleID: d.SubtitleID, Path: target})
		}
	}

	return result, nil
}

// logout ends the remote session, on the error path as well. Its own
// failure is only logged: the run's primary error must stay visible.
func (s *Session) logout() {
	s.logger.Info("Logging out...")
	if err := s.svc.LogOut(); err != nil {
		s.logger.Warnf("Logout failed: %v", err)
	}
	s.state = StateLoggedOut
}
