package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	CfgKeyLanguage  = "opensubtitles.language"
	CfgKeyUsername  = "opensubtitles.username"
	CfgKeyPassword  = "opensubtitles.password"
	CfgKeyUserAgent = "opensubtitles.useragent"
	CfgKeyHistory   = "history.path"
)

var (
	cfgFile string
	verbose bool

	// RootCmd is the base command. Exported for use in tests.
	RootCmd = &cobra.Command{
		Use:   "subgrab",
		Short: "Batch subtitle downloader for OpenSubtitles",
		Long: `subgrab walks a directory tree, fingerprints every video file that
has no subtitle yet, searches OpenSubtitles for matches by content hash,
and saves the best candidate next to each video as an .srt file.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.subgrab/config.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// initConfig reads the config file and SUBGRAB_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".subgrab"))
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SUBGRAB")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error reading config file (%s): %v\n", viper.ConfigFileUsed(), err)
		}
	}
}

// newLogger builds the run logger; --verbose switches on debug output.
func newLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&log.TextFormatter{})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

// defaultStateDir is where the history database and the run lock live.
func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".subgrab"), nil
}
