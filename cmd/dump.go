package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"elite-starscan/internal/db"
	"elite-starscan/internal/export"
	"elite-starscan/internal/logger"
	"elite-starscan/internal/starscan"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <system>",
	Short: "Print one system's body tree from the archive",
	Long:  "Dump replays the archive and prints the tree of the system given by name, \"name:address\" or address.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().String("format", "text", "output format: text, yaml or csv")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	// Keep stdout for the dump itself.
	logger.SetOutput(os.Stderr)
	archive, err := db.Open(cfg.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	ctx, cancel := setupSignalContext()
	defer cancel()

	eng := newEngine(cfg)
	ref := starscan.ParseSystemKey(args[0])
	if _, err := replayArchive(ctx, eng, archive, ref.Address); err != nil {
		return err
	}
	sys, ok := eng.System(args[0])
	if !ok {
		return fmt.Errorf("system %q not in archive", args[0])
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "text":
		return sys.Dump(os.Stdout)
	case "yaml":
		return export.WriteYAML(os.Stdout, sys)
	case "csv":
		return export.WriteCSV(os.Stdout, sys)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
