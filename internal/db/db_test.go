package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"elite-starscan/internal/journal"

	_ "modernc.org/sqlite"
)

// openTestDB opens an in-memory SQLite DB and runs migrations (for testing only).
func openTestDB(t *testing.T) *DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	d := &DB{sql: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		t.Fatalf("migrate: %v", err)
	}
	return d
}

const archiveJournal = `{"timestamp":"2024-03-01T20:00:01Z","event":"Location","StarSystem":"Sol","SystemAddress":10477373803}
{"timestamp":"2024-03-01T20:00:02Z","event":"FSSSignalDiscovered","SystemAddress":10477373803,"SignalName":"Abraham Lincoln","IsStation":true}
{"timestamp":"2024-03-01T20:00:02Z","event":"FSSSignalDiscovered","SystemAddress":10477373803,"SignalName":"Galileo","IsStation":true}
{"timestamp":"2024-03-01T20:00:03Z","event":"Scan","BodyName":"Sol","BodyID":0,"StarSystem":"Sol","SystemAddress":10477373803,"StarType":"G"}
{"timestamp":"2024-03-01T20:05:00Z","event":"Location","StarSystem":"Achenar","SystemAddress":164098653}
{"timestamp":"2024-03-01T20:05:01Z","event":"Scan","BodyName":"Achenar","BodyID":0,"StarSystem":"Achenar","SystemAddress":164098653,"StarType":"B"}
`

func readSample(t *testing.T) []journal.Line {
	t.Helper()
	lines, err := journal.NewReader().ReadAll(strings.NewReader(archiveJournal))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return lines
}

func TestDB_MigrateVersion(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	if v := d.SchemaVersion(); v != 2 {
		t.Errorf("SchemaVersion = %d, want 2", v)
	}
	// Running again must be a no-op.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if v := d.SchemaVersion(); v != 2 {
		t.Errorf("SchemaVersion after re-migrate = %d, want 2", v)
	}
}

func TestDB_InsertSkipsDuplicates(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	lines := readSample(t)
	n, err := d.Insert(ctx, "Journal.01.log", lines)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n != len(lines) {
		t.Errorf("Insert added %d, want %d", n, len(lines))
	}

	n, err = d.Insert(ctx, "Journal.01.log", lines)
	if err != nil {
		t.Fatalf("second Insert: %v", err)
	}
	if n != 0 {
		t.Errorf("second Insert added %d, want 0", n)
	}
	if got := d.Count(); got != len(lines) {
		t.Errorf("Count = %d, want %d", got, len(lines))
	}
}

func TestDB_LinesRoundTrip(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	lines := readSample(t)
	if _, err := d.Insert(ctx, "j", lines); err != nil {
		t.Fatal(err)
	}

	got, err := d.Lines(ctx, 0)
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(got) != len(lines) {
		t.Fatalf("Lines = %d, want %d", len(got), len(lines))
	}
	for i := range got {
		if got[i].Event.Kind() != lines[i].Event.Kind() {
			t.Errorf("line %d kind = %s, want %s", i, got[i].Event.Kind(), lines[i].Event.Kind())
		}
	}
	sl, ok := got[1].Event.(*journal.SignalList)
	if !ok || len(sl.Signals) != 2 {
		t.Errorf("signal batch not restored: %+v", got[1].Event)
	}
	sc, ok := got[2].Event.(*journal.Scan)
	if !ok || sc.Location.Address != 10477373803 {
		t.Errorf("scan lost its location: %+v", got[2].Event)
	}
}

func TestDB_LinesForOneSystem(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	if _, err := d.Insert(ctx, "j", readSample(t)); err != nil {
		t.Fatal(err)
	}
	got, err := d.Lines(ctx, 164098653)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Lines(Achenar) = %d, want 2", len(got))
	}
	for _, l := range got {
		if l.Event.System().Address != 164098653 {
			t.Errorf("foreign line replayed: %+v", l.Event)
		}
	}
}

func TestDB_Systems(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()
	ctx := context.Background()

	if _, err := d.Insert(ctx, "j", readSample(t)); err != nil {
		t.Fatal(err)
	}
	systems, err := d.Systems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(systems) != 2 {
		t.Fatalf("Systems = %d, want 2", len(systems))
	}
	if systems[0].Address != 10477373803 || systems[0].Events != 3 {
		t.Errorf("systems[0] = %+v, want Sol with 3 events", systems[0])
	}
	if systems[0].Name != "Sol" {
		t.Errorf("systems[0].Name = %q, want Sol", systems[0].Name)
	}
	if systems[1].First != "2024-03-01T20:05:00Z" {
		t.Errorf("systems[1].First = %q", systems[1].First)
	}
}

func TestDB_SourceOffset(t *testing.T) {
	d := openTestDB(t)
	defer d.Close()

	if off := d.SourceOffset("Journal.01.log"); off != 0 {
		t.Errorf("unknown source offset = %d, want 0", off)
	}
	if err := d.SetSourceOffset("Journal.01.log", 120); err != nil {
		t.Fatal(err)
	}
	if err := d.SetSourceOffset("Journal.01.log", 480); err != nil {
		t.Fatal(err)
	}
	if off := d.SourceOffset("Journal.01.log"); off != 480 {
		t.Errorf("offset = %d, want 480", off)
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := d.Insert(context.Background(), "j", readSample(t)); err != nil {
		t.Fatal(err)
	}
	d.Close()

	d, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	if d.Count() != 5 {
		t.Errorf("Count after reopen = %d, want 5", d.Count())
	}
}
