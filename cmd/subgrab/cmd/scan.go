package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/subgrab/subgrab/pkg/core/metadata"
	"github.com/subgrab/subgrab/pkg/core/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan DIR",
	Short: "List the videos under DIR that still need subtitles",
	Long: `Walks DIR like download does but never touches the network: it prints
each video file that has no subtitle yet, with its size, fingerprint and
the title parsed from the release name.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	RootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	root := args[0]

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	files, err := scan.Collect(cmd.Context(), root, logger)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No video files need subtitles.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"File", "Size", "Fingerprint", "Title", "Year"})
	for _, f := range files {
		release := metadata.ParseRelease(f.Name)
		hash := f.Hash
		if hash == "" {
			hash = "(unhashable)"
		}
		year := ""
		if release.Year > 0 {
			year = fmt.Sprintf("%d", release.Year)
		}
		t.AppendRow(table.Row{f.Name, f.Size, hash, release.Title, year})
	}
	t.Render()
	return nil
}
