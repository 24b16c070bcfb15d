package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"elite-starscan/internal/journal"
	"elite-starscan/internal/logger"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [journal files or directories...]",
	Short: "Read journal files into system trees and print a summary",
	Long: "Ingest decodes the given journal files (or every Journal.*.log in the given " +
		"directories, default the configured journal directory), archives the lines and " +
		"feeds them through the reconciler.",
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("export", "", "write YAML/CSV exports to this directory")
	ingestCmd.Flags().Bool("check", false, "run the consistency checker after ingesting")
	ingestCmd.Flags().Int("workers", 0, "files decoded in parallel (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Workers = v
	}
	if v, _ := cmd.Flags().GetString("export"); v != "" {
		cfg.ExportDir = v
	}
	if len(args) == 0 {
		args = []string{cfg.JournalDir}
	}

	paths, err := expandJournalArgs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no journal files found in %v", args)
	}

	ctx, cancel := setupSignalContext()
	defer cancel()

	logger.Info("JOURNAL", fmt.Sprintf("Reading %d journal files", len(paths)))
	lines, err := journal.ReadFiles(ctx, paths, cfg.Workers)
	if err != nil {
		return err
	}

	archive, err := openArchive(cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	eng := newEngine(cfg)
	st, err := feed(ctx, eng, archive, lines)
	if err != nil {
		return err
	}
	markSources(archive, paths)
	printStats(eng, st)

	if check, _ := cmd.Flags().GetBool("check"); check {
		if n := checkSystems(eng); n > 0 {
			return fmt.Errorf("%d consistency violations", n)
		}
		logger.Success("CHECK", "All trees consistent")
	}
	return exportTo(cfg.ExportDir, eng)
}

// expandJournalArgs turns directories into their journal files, oldest first.
func expandJournalArgs(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		fi, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			out = append(out, a)
			continue
		}
		files, err := journal.JournalFiles(a)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}
