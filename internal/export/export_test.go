package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"elite-starscan/internal/journal"
	"elite-starscan/internal/starscan"
)

const testJournal = `{"event":"Scan","BodyName":"Test A","BodyID":0,"StarSystem":"Test","SystemAddress":42,"StarType":"K","DistanceFromArrivalLS":0}
{"event":"Scan","BodyName":"Test A 1","BodyID":1,"Parents":[{"Star":0}],"StarSystem":"Test","SystemAddress":42,"PlanetClass":"Icy body","Landable":true,"DistanceFromArrivalLS":500,"SemiMajorAxis":1e9}
{"event":"Scan","BodyName":"Test A 2","BodyID":2,"Parents":[{"Star":0}],"StarSystem":"Test","SystemAddress":42,"PlanetClass":"Rocky body","DistanceFromArrivalLS":1500,"SemiMajorAxis":3e9}
{"event":"Scan","BodyName":"Test A 1 a","BodyID":3,"Parents":[{"Planet":1},{"Star":0}],"StarSystem":"Test","SystemAddress":42,"PlanetClass":"Icy body","DistanceFromArrivalLS":510}
{"event":"FSSBodySignals","BodyName":"Test A 1","BodyID":1,"SystemAddress":42,"Signals":[{"Type":"$SAA_SignalType_Biological;","Count":3}]}`

func testSystem(t *testing.T) *starscan.SystemNode {
	t.Helper()
	eng := starscan.NewEngine()
	for _, line := range strings.Split(testJournal, "\n") {
		ev, err := journal.Decode([]byte(line))
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if out, err := eng.Process(ev); out != starscan.Applied {
			t.Fatalf("Process(%s) = %v, %v", ev.Kind(), out, err)
		}
	}
	sys, ok := eng.System("42")
	if !ok {
		t.Fatal("system 42 not registered")
	}
	return sys
}

func rowByID(rows []BodyRow, id int) (BodyRow, bool) {
	for _, r := range rows {
		if r.BodyID == id {
			return r, true
		}
	}
	return BodyRow{}, false
}

func TestRows(t *testing.T) {
	rows := Rows(testSystem(t))
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0].BodyID != 0 || rows[0].Depth != 0 || rows[0].ParentID != -1 {
		t.Errorf("rows[0] = %+v, want top-level star", rows[0])
	}
	if rows[0].Type != "K" {
		t.Errorf("star type = %q, want K", rows[0].Type)
	}

	moon, ok := rowByID(rows, 3)
	if !ok {
		t.Fatal("moon row missing")
	}
	if moon.Depth != 2 || moon.ParentID != 1 || moon.Parent != "1" {
		t.Errorf("moon = %+v, want depth 2 under body 1", moon)
	}
	if moon.Name != "a" || moon.CanonicalName != "Test A 1 a" {
		t.Errorf("moon names = %q/%q", moon.Name, moon.CanonicalName)
	}

	planet, _ := rowByID(rows, 1)
	if planet.Signals != 3 || !planet.Landable || planet.Type != "Icy body" {
		t.Errorf("planet = %+v", planet)
	}
	if planet.System != "Test" || planet.Address != 42 {
		t.Errorf("planet system = %q/%d", planet.System, planet.Address)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testSystem(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("csv lines = %d, want header + 4", len(lines))
	}
	if !strings.HasPrefix(lines[0], "system,address,body_id,name") {
		t.Errorf("header = %q", lines[0])
	}

	var back []BodyRow
	if err := gocsv.UnmarshalString(buf.String(), &back); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if r, ok := rowByID(back, 2); !ok || r.DistanceLS != 1500 {
		t.Errorf("body 2 read back as %+v", r)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, testSystem(t)); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if doc["name"] != "Test" {
		t.Errorf("name = %v, want Test", doc["name"])
	}
	tree, ok := doc["tree"].(map[string]any)
	if !ok {
		t.Fatalf("tree = %T", doc["tree"])
	}
	if tree["class"] != "System" {
		t.Errorf("root class = %v", tree["class"])
	}
	if !strings.Contains(buf.String(), "canonical_name: Test A 1 a") {
		t.Errorf("moon missing from yaml:\n%s", buf.String())
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(testSystem(t))
	if sum.Bodies != 4 || sum.Scanned != 4 {
		t.Errorf("bodies/scanned = %d/%d, want 4/4", sum.Bodies, sum.Scanned)
	}
	if sum.Classes["PlanetOrMoon"] != 3 || sum.Classes["Star"] != 1 {
		t.Errorf("classes = %v", sum.Classes)
	}
	if sum.MeanDistanceLS != 627.5 {
		t.Errorf("MeanDistanceLS = %v, want 627.5", sum.MeanDistanceLS)
	}
	if sum.StdDistanceLS <= 0 {
		t.Errorf("StdDistanceLS = %v, want > 0", sum.StdDistanceLS)
	}
	if sum.MedianDistanceLS < 500 || sum.MedianDistanceLS > 510 {
		t.Errorf("MedianDistanceLS = %v, want within [500, 510]", sum.MedianDistanceLS)
	}
	if sum.MaxDistanceLS != 1500 {
		t.Errorf("MaxDistanceLS = %v, want 1500", sum.MaxDistanceLS)
	}
}

func TestSummarize_Empty(t *testing.T) {
	eng := starscan.NewEngine()
	ev, _ := journal.Decode([]byte(`{"event":"FSSDiscoveryScan","SystemName":"Empty","SystemAddress":7,"BodyCount":3,"Progress":0.1}`))
	eng.Process(ev)
	sys, ok := eng.System("7")
	if !ok {
		t.Fatal("system not registered")
	}
	sum := Summarize(sys)
	if sum.Scanned != 0 || sum.MeanDistanceLS != 0 {
		t.Errorf("empty summary = %+v", sum)
	}
}

func TestWriteDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	files, err := WriteDir(dir, []*starscan.SystemNode{testSystem(t)})
	if err != nil {
		t.Fatalf("WriteDir: %v", err)
	}
	want := []string{"Test.yaml", "bodies.csv", "summary.yaml"}
	if len(files) != len(want) {
		t.Fatalf("files = %v", files)
	}
	for i, f := range files {
		if filepath.Base(f) != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, filepath.Base(f), want[i])
		}
		if _, err := os.Stat(f); err != nil {
			t.Errorf("stat %s: %v", f, err)
		}
	}
}
