package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"elite-starscan/internal/config"
	"elite-starscan/internal/db"
	"elite-starscan/internal/journal"
	"elite-starscan/internal/starscan"
)

// The moon arrives before its planet, so it queues and resolves late.
const pipelineJournal = `{"timestamp":"2024-03-01T20:00:00Z","event":"Location","StarSystem":"Test","SystemAddress":42}
{"timestamp":"2024-03-01T20:00:01Z","event":"Scan","BodyName":"Test A","BodyID":0,"StarSystem":"Test","SystemAddress":42,"StarType":"K"}
{"timestamp":"2024-03-01T20:00:02Z","event":"SAAScanComplete","BodyName":"Test A 1","BodyID":1,"SystemAddress":42,"ProbesUsed":4,"EfficiencyTarget":6}
{"timestamp":"2024-03-01T20:00:03Z","event":"Scan","BodyName":"Test A 1","BodyID":1,"Parents":[{"Star":0}],"StarSystem":"Test","SystemAddress":42,"PlanetClass":"Icy body"}
not json
`

func writeJournal(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "Journal.2024-03-01T200000.01.log")
	if err := os.WriteFile(path, []byte(pipelineJournal), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFeed_ArchivesAndApplies(t *testing.T) {
	dir := t.TempDir()
	path := writeJournal(t, dir)
	lines, err := journal.ReadFiles(context.Background(), []string{path}, 2)
	if err != nil {
		t.Fatal(err)
	}

	archive, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	cfg := *config.Default()
	eng := newEngine(cfg)
	st, err := feed(context.Background(), eng, archive, lines)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if st.Lines != 4 || st.Archived != 4 {
		t.Errorf("lines/archived = %d/%d, want 4/4", st.Lines, st.Archived)
	}
	if st.Outcomes[starscan.Applied] != 2 || st.Outcomes[starscan.Ignored] != 1 {
		t.Errorf("outcomes = %v", st.Outcomes)
	}
	if st.Outcomes[starscan.Deferred] != 1 {
		t.Errorf("deferred = %d, want 1", st.Outcomes[starscan.Deferred])
	}
	if eng.Registry().PendingTotal() != 0 {
		t.Errorf("pending = %d, want 0", eng.Registry().PendingTotal())
	}

	sys, ok := eng.System("Test")
	if !ok {
		t.Fatal("system missing")
	}
	b, ok := sys.FindByID(1)
	if !ok || !b.Mapped || !b.EfficientlyMapped {
		t.Errorf("body 1 = %+v, want efficiently mapped", b)
	}
	if n := checkSystems(eng); n != 0 {
		t.Errorf("checkSystems = %d violations", n)
	}

	// The archive rebuilds the same tree.
	again := newEngine(cfg)
	if _, err := replayArchive(context.Background(), again, archive, 0); err != nil {
		t.Fatalf("replayArchive: %v", err)
	}
	sys2, ok := again.System("42")
	if !ok {
		t.Fatal("replayed system missing")
	}
	if sys2.DumpString() != sys.DumpString() {
		t.Errorf("replayed tree differs:\n%s\nvs\n%s", sys2.DumpString(), sys.DumpString())
	}
}

func TestMarkSources(t *testing.T) {
	dir := t.TempDir()
	path := writeJournal(t, dir)
	archive, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	markSources(archive, []string{path, filepath.Join(dir, "missing.log")})
	if off := archive.SourceOffset(path); off != int64(len(pipelineJournal)) {
		t.Errorf("offset = %d, want %d", off, len(pipelineJournal))
	}
	markSources(nil, []string{path})
}

func TestExpandJournalArgs(t *testing.T) {
	dir := t.TempDir()
	path := writeJournal(t, dir)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)

	got, err := expandJournalArgs([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != path {
		t.Errorf("expandJournalArgs(dir) = %v", got)
	}

	got, err = expandJournalArgs([]string{path})
	if err != nil || len(got) != 1 {
		t.Errorf("expandJournalArgs(file) = %v, %v", got, err)
	}

	if _, err := expandJournalArgs([]string{filepath.Join(dir, "nope")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestExportTo(t *testing.T) {
	if err := exportTo("", nil); err != nil {
		t.Errorf("empty dir: %v", err)
	}

	lines, err := journal.ReadFile(writeJournal(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	eng := newEngine(*config.Default())
	feed(context.Background(), eng, nil, lines)

	out := filepath.Join(t.TempDir(), "export")
	if err := exportTo(out, eng); err != nil {
		t.Fatalf("exportTo: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(out, "bodies.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Test A 1") {
		t.Errorf("bodies.csv missing planet:\n%s", data)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".starscan.toml")
	rootCmd.SetArgs([]string{"config", "init", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	cfg, err := config.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPPort != config.Default().HTTPPort {
		t.Errorf("HTTPPort = %d", cfg.HTTPPort)
	}

	rootCmd.SetArgs([]string{"config", "init", path})
	if err := rootCmd.Execute(); err == nil {
		t.Error("second init without --force should fail")
	}
}

func TestFollow_RetriesQueueWithoutReplayOnTouch(t *testing.T) {
	raw := []string{
		`{"event":"ScanBaryCentre","StarSystem":"Delta","SystemAddress":10,"BodyID":5,"SemiMajorAxis":1.5e9}`,
		`{"event":"Scan","BodyName":"Delta A","BodyID":1,"Parents":[{"Null":5}],"StarSystem":"Delta","SystemAddress":10,"StarType":"K"}`,
	}
	lines := make(chan journal.Line, len(raw))
	for _, r := range raw {
		ev, err := journal.Decode([]byte(r))
		if err != nil {
			t.Fatal(err)
		}
		lines <- journal.Line{Raw: []byte(r), Event: ev}
	}
	close(lines)

	eng := starscan.NewEngine(starscan.WithReplayOnTouch(false))
	follow(context.Background(), eng, nil, lines)

	if n := eng.Registry().PendingTotal(); n != 0 {
		t.Errorf("pending after follow = %d, want 0", n)
	}
	sys, ok := eng.System("Delta")
	if !ok {
		t.Fatal("Delta not registered")
	}
	if b, ok := sys.FindByID(5); !ok || b.Barycentre == nil {
		t.Errorf("barycentre 5 = %+v, want its record attached", b)
	}
}
