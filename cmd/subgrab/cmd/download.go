package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/subgrab/subgrab/internal/constants"
	"github.com/subgrab/subgrab/pkg/core/history"
	"github.com/subgrab/subgrab/pkg/core/opensubtitles"
	"github.com/subgrab/subgrab/pkg/core/scan"
	"github.com/subgrab/subgrab/pkg/core/session"
	"github.com/subgrab/subgrab/pkg/core/writer"
)

var (
	downloadLang  string
	downloadForce bool
)

// NewServiceFunc allows overriding the remote client creation for testing.
var NewServiceFunc = func(logger *log.Logger) (session.Service, error) {
	return opensubtitles.NewClient(constants.DefaultEndpoint, logger)
}

var downloadCmd = &cobra.Command{
	Use:   "download DIR",
	Short: "Fetch subtitles for every video under DIR",
	Long: `Walks DIR recursively, fingerprints every video file without an
existing subtitle, searches OpenSubtitles in one batched call and writes
the selected subtitle next to each video as an .srt file.

Fingerprints already present in the fetch history are skipped unless
--force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	RootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVarP(&downloadLang, "lang", "l", "", "subtitle language (default \"eng\")")
	downloadCmd.Flags().BoolVar(&downloadForce, "force", false, "re-fetch subtitles already recorded in history")
}

func runDownload(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	root := args[0]

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	lang := downloadLang
	if lang == "" {
		lang = viper.GetString(CfgKeyLanguage)
	}
	if lang == "" {
		lang = constants.DefaultLanguage
	}
	lang, err = normalizeLanguage(lang)
	if err != nil {
		return err
	}

	userAgent := viper.GetString(CfgKeyUserAgent)
	if userAgent == "" {
		userAgent = constants.DefaultUserAgent
	}

	historyPath := viper.GetString(CfgKeyHistory)
	if historyPath == "" {
		stateDir, err := defaultStateDir()
		if err != nil {
			return err
		}
		historyPath = filepath.Join(stateDir, "history.db")
	}

	// One run at a time: concurrent runs would race on the history
	// database and on the .srt targets.
	if err := os.MkdirAll(filepath.Dir(historyPath), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	lock := flock.New(filepath.Join(filepath.Dir(historyPath), "subgrab.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring run lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another subgrab run is already in progress")
	}
	defer lock.Unlock()

	logger.WithFields(log.Fields{"run_id": uuid.NewString(), "lang": lang}).Infof("Scanning %s", root)

	files, err := scan.Collect(cmd.Context(), root, logger)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	if len(files) == 0 {
		logger.Info("No video files need subtitles")
		return nil
	}

	store, err := history.Open(historyPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if !downloadForce {
		files, err = dropSeen(files, store, logger)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			logger.Info("Everything already fetched; use --force to re-fetch")
			return nil
		}
	}

	svc, err := NewServiceFunc(logger)
	if err != nil {
		return fmt.Errorf("initializing OpenSubtitles client: %w", err)
	}
	if closer, ok := svc.(io.Closer); ok {
		defer closer.Close()
	}

	cfg := session.Config{
		Username:  viper.GetString(CfgKeyUsername),
		Password:  viper.GetString(CfgKeyPassword),
		Language:  lang,
		UserAgent: userAgent,
	}
	result, runErr := session.New(svc, writer.SubtitleWriter{}, cfg, logger).Run(files)

	// Subtitles written before a failure are real; record them either way.
	for _, saved := range result.Saved {
		if err := store.Record(saved.File.Hash, saved.SubtitleID, saved.Path); err != nil {
			logger.Warnf("Cannot record history for %s: %v", saved.File.Name, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Infof("Saved %d subtitle(s) for %d file(s)", len(result.Saved), len(files))
	return nil
}

// dropSeen filters out files whose fingerprint is already in the fetch
// history.
func dropSeen(files []scan.MovieFile, store *history.Store, logger *log.Logger) ([]scan.MovieFile, error) {
	kept := files[:0]
	for _, f := range files {
		if f.Hash != "" {
			seen, err := store.Seen(f.Hash)
			if err != nil {
				return nil, err
			}
			if seen {
				logger.Infof("Skipping %s: already fetched", f.Name)
				continue
			}
		}
		kept = append(kept, f)
	}
	return kept, nil
}
