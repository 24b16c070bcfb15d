package starscan

import (
	"strings"
	"testing"
)

func TestSnapshot_NestsTree(t *testing.T) {
	e := NewEngine()
	e.ProcessAll(solEvents())
	s := mustSystem(t, e, "Sol")

	snap := s.Snapshot()
	if snap["name"] != "Sol" || snap["address"] != int64(100) {
		t.Errorf("identity = %v / %v", snap["name"], snap["address"])
	}
	tree, ok := snap["tree"].(map[string]any)
	if !ok || tree["class"] != "System" {
		t.Fatalf("tree = %#v", snap["tree"])
	}
	top := tree["children"].([]map[string]any)
	if len(top) != 1 || top[0]["name"] != "BC of A, B" {
		t.Fatalf("top level = %v", top)
	}
	stars := top[0]["children"].([]map[string]any)
	if len(stars) != 2 || stars[0]["name"] != "A" || stars[1]["name"] != "B" {
		t.Errorf("stars = %v", stars)
	}
	if got := top[0]["orbiters"]; len(got.([]string)) != 2 {
		t.Errorf("orbiters = %v", got)
	}
	counts := snap["counts"].(map[string]any)
	if counts["scanned"] != 6 {
		t.Errorf("scanned = %v, want 6", counts["scanned"])
	}
}

func TestDump_IndentsByDepth(t *testing.T) {
	e := NewEngine()
	e.ProcessAll(solEvents())
	out := mustSystem(t, e, "Sol").DumpString()

	for _, want := range []string{
		"Sol (100)\n",
		"  BC of A, B [Barycentre #0]\n",
		"    A [Star #1] G0",
		"      1 [PlanetOrMoon #3] Icy body Biological:2\n",
		"        a [PlanetOrMoon #4]",
		"      A Belt Cluster [BeltCluster #6]\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}

func TestFind_FirstOnlyAndPredicates(t *testing.T) {
	e := NewEngine()
	e.ProcessAll(solEvents())
	s := mustSystem(t, e, "Sol")

	all := s.Find(OfClass(ClassStar), false)
	if len(all) != 2 {
		t.Fatalf("stars = %d, want 2", len(all))
	}
	first := s.Find(OfClass(ClassStar), true)
	if len(first) != 1 || first[0].OwnName != all[0].OwnName {
		t.Errorf("first = %v", first)
	}
	if got := s.Find(NameContains("belt"), false); len(got) != 2 {
		t.Errorf("belt matches = %d, want 2", len(got))
	}
	if b, ok := s.FindBySubName("A 1 a"); !ok || b.BodyID != 4 {
		t.Errorf("FindBySubName = %+v, %v", b, ok)
	}
	if _, ok := s.FindByID(42); ok {
		t.Error("FindByID found a body that was never reported")
	}
}
