package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"elite-starscan/internal/db"
	"elite-starscan/internal/journal"
	"elite-starscan/internal/logger"
	"elite-starscan/internal/starscan"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the journal directory and update trees as the game writes",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().Bool("from-start", false, "read the newest journal from its first line")
	watchCmd.Flags().Bool("serve", false, "also serve the HTTP API while watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger.Banner(Version)

	archive, err := openArchive(cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	ctx, cancel := setupSignalContext()
	defer cancel()

	eng := newEngine(cfg)
	if archive != nil {
		st, err := replayArchive(ctx, eng, archive, 0)
		if err != nil {
			return err
		}
		logger.Info("WATCH", fmt.Sprintf("Restored %d systems from %d archived lines", eng.Registry().Len(), st.Lines))
	}

	tl, err := journal.NewTailer(cfg.JournalDir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", cfg.JournalDir, err)
	}
	if archive != nil {
		files, _ := journal.JournalFiles(cfg.JournalDir)
		for _, f := range files {
			if off := archive.SourceOffset(f); off > 0 {
				tl.Seed(f, off)
			}
		}
	}
	fromStart, _ := cmd.Flags().GetBool("from-start")
	if err := tl.Start(fromStart); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.JournalDir, err)
	}
	logger.Success("WATCH", fmt.Sprintf("Watching %s", cfg.JournalDir))

	if serve, _ := cmd.Flags().GetBool("serve"); serve {
		go func() {
			if err := serveHTTP(ctx, &cfg, eng, archive); err != nil {
				logger.Error("HTTP", err.Error())
			}
		}()
	}

	go func() {
		<-ctx.Done()
		tl.Stop()
	}()
	follow(context.WithoutCancel(ctx), eng, archive, tl.Lines)

	if archive != nil {
		for f, off := range tl.Offsets() {
			if err := archive.SetSourceOffset(f, off); err != nil {
				logger.Warn("DB", err.Error())
			}
		}
	}
	logger.Info("WATCH", fmt.Sprintf("Stopped with %d events pending", eng.Registry().PendingTotal()))
	return nil
}

// follow applies tailed lines until the channel closes. Queued events are
// retried whenever the channel runs dry, which ends each tailer batch.
func follow(ctx context.Context, eng *starscan.Engine, archive *db.DB, lines <-chan journal.Line) {
	for l := range lines {
		if archive != nil {
			if _, err := archive.Insert(ctx, l.Source, []journal.Line{l}); err != nil {
				logger.Warn("DB", err.Error())
			}
		}
		out, _ := eng.Process(l.Event)
		if sc, ok := l.Event.(*journal.Scan); ok && out == starscan.Applied {
			logger.Info("SCAN", sc.BodyName)
		}
		if len(lines) == 0 {
			if n := eng.AssignPending(); n > 0 {
				logger.Info("PENDING", fmt.Sprintf("Resolved %d queued events", n))
			}
		}
	}
}
