package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"elite-starscan/internal/db"
	"elite-starscan/internal/logger"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild system trees from the archive",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().Int64("system", 0, "replay only this system address")
	replayCmd.Flags().String("export", "", "write YAML/CSV exports to this directory")
	replayCmd.Flags().Bool("check", false, "run the consistency checker after replaying")
	replayCmd.Flags().Bool("list", false, "list archived systems instead of replaying")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if v, _ := cmd.Flags().GetString("export"); v != "" {
		cfg.ExportDir = v
	}
	archive, err := db.Open(cfg.ArchivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	ctx, cancel := setupSignalContext()
	defer cancel()

	if list, _ := cmd.Flags().GetBool("list"); list {
		systems, err := archive.Systems(ctx)
		if err != nil {
			return err
		}
		logger.Section("Archived systems")
		for _, s := range systems {
			logger.Stats(fmt.Sprintf("%s (%d)", s.Name, s.Address), fmt.Sprintf("%d events, %s .. %s", s.Events, s.First, s.Last))
		}
		return nil
	}

	address, _ := cmd.Flags().GetInt64("system")
	eng := newEngine(cfg)
	st, err := replayArchive(ctx, eng, archive, address)
	if err != nil {
		return err
	}
	printStats(eng, st)

	if check, _ := cmd.Flags().GetBool("check"); check {
		if n := checkSystems(eng); n > 0 {
			return fmt.Errorf("%d consistency violations", n)
		}
		logger.Success("CHECK", "All trees consistent")
	}
	return exportTo(cfg.ExportDir, eng)
}
