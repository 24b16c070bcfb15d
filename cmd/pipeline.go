package cmd

import (
	"context"
	"fmt"
	"os"

	"elite-starscan/internal/config"
	"elite-starscan/internal/db"
	"elite-starscan/internal/export"
	"elite-starscan/internal/journal"
	"elite-starscan/internal/logger"
	"elite-starscan/internal/starscan"
)

// runStats tallies what one batch of lines did to the engine.
type runStats struct {
	Lines    int
	Archived int
	Outcomes map[starscan.Outcome]int
	Late     int // queued events resolved by the final retry
}

func newEngine(cfg config.Config) *starscan.Engine {
	return starscan.NewEngine(starscan.WithReplayOnTouch(cfg.ReplayOnTouch))
}

// openArchive opens the configured archive, or returns nil when archiving is off.
func openArchive(cfg config.Config) (*db.DB, error) {
	if !cfg.Archive {
		return nil, nil
	}
	return db.Open(cfg.ArchivePath)
}

// feed archives lines (when archive is set) and applies them to eng in order.
func feed(ctx context.Context, eng *starscan.Engine, archive *db.DB, lines []journal.Line) (runStats, error) {
	st := runStats{Lines: len(lines), Outcomes: make(map[starscan.Outcome]int)}
	if archive != nil {
		n, err := archive.Insert(ctx, "", lines)
		if err != nil {
			return st, fmt.Errorf("archive: %w", err)
		}
		st.Archived = n
	}
	for _, l := range lines {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		out, _ := eng.Process(l.Event)
		st.Outcomes[out]++
	}
	st.Late = eng.AssignPending()
	return st, nil
}

// markSources records every fully read journal file in the archive so a
// later watch resumes after it.
func markSources(archive *db.DB, paths []string) {
	if archive == nil {
		return
	}
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if err := archive.SetSourceOffset(p, fi.Size()); err != nil {
			logger.Warn("DB", err.Error())
		}
	}
}

// replayArchive rebuilds eng from the archive. address 0 replays everything.
func replayArchive(ctx context.Context, eng *starscan.Engine, archive *db.DB, address int64) (runStats, error) {
	lines, err := archive.Lines(ctx, address)
	if err != nil {
		return runStats{}, err
	}
	return feed(ctx, eng, nil, lines)
}

func printStats(eng *starscan.Engine, st runStats) {
	logger.Section("Summary")
	logger.Stats("Lines", st.Lines)
	if st.Archived > 0 {
		logger.Stats("Newly archived", st.Archived)
	}
	for _, o := range []starscan.Outcome{starscan.Applied, starscan.Deferred, starscan.Rejected, starscan.Ignored} {
		logger.Stats(o.String(), st.Outcomes[o])
	}
	if st.Late > 0 {
		logger.Stats("Resolved late", st.Late)
	}
	bodies := 0
	for _, s := range eng.Systems() {
		bodies += len(s.Bodies())
	}
	logger.Stats("Systems", eng.Registry().Len())
	logger.Stats("Bodies", bodies)
	logger.Stats("Still pending", eng.Registry().PendingTotal())
}

// checkSystems runs the consistency checker over every system and logs
// each violation. Returns the number found.
func checkSystems(eng *starscan.Engine) int {
	n := 0
	for _, s := range eng.Systems() {
		for _, err := range s.CheckConsistency() {
			logger.Error("CHECK", fmt.Sprintf("%s: %v", s.Name(), err))
			n++
		}
	}
	return n
}

func exportTo(dir string, eng *starscan.Engine) error {
	if dir == "" {
		return nil
	}
	files, err := export.WriteDir(dir, eng.Systems())
	if err != nil {
		return err
	}
	logger.Success("EXPORT", fmt.Sprintf("Wrote %d files to %s", len(files), dir))
	return nil
}
