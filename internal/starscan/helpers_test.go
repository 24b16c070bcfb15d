package starscan

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"elite-starscan/internal/journal"
)

type scanOpt func(*journal.Scan)

func newScan(system string, addr int64, body string, opts ...scanOpt) *journal.Scan {
	sc := &journal.Scan{
		Header:        journal.Header{Event: "Scan"},
		ScanType:      "Detailed",
		StarSystem:    system,
		SystemAddress: addr,
		BodyName:      body,
		PlanetClass:   "Icy body",
	}
	for _, o := range opts {
		o(sc)
	}
	return sc
}

func withID(id int, parents ...journal.ParentRef) scanOpt {
	return func(sc *journal.Scan) {
		sc.BodyID = &id
		sc.Parents = parents
	}
}

func asStar(class string) scanOpt {
	return func(sc *journal.Scan) {
		sc.StarType = class
		sc.PlanetClass = ""
	}
}

func asClusterBody() scanOpt {
	return func(sc *journal.Scan) { sc.PlanetClass = "" }
}

func withSMA(v float64) scanOpt {
	return func(sc *journal.Scan) { sc.SemiMajorAxis = &v }
}

func withRings(rings ...journal.Ring) scanOpt {
	return func(sc *journal.Scan) { sc.Rings = rings }
}

func null(id int) journal.ParentRef   { return journal.ParentRef{ID: id, Type: journal.ParentNull} }
func star(id int) journal.ParentRef   { return journal.ParentRef{ID: id, Type: journal.ParentStar} }
func planet(id int) journal.ParentRef { return journal.ParentRef{ID: id, Type: journal.ParentPlanet} }
func ring(id int) journal.ParentRef   { return journal.ParentRef{ID: id, Type: journal.ParentRing} }

func signals(addr int64, id int, name string, sigs ...journal.Signal) *journal.BodySignals {
	return &journal.BodySignals{
		Header:        journal.Header{Event: "SAASignalsFound"},
		SystemAddress: addr,
		BodyID:        id,
		BodyName:      name,
		Signals:       sigs,
	}
}

func mustProcess(t *testing.T, e *Engine, want Outcome, ev journal.Event) {
	t.Helper()
	got, err := e.Process(ev)
	if got != want {
		t.Fatalf("Process(%s) = %v (%v), want %v", ev.Kind(), got, err, want)
	}
}

func mustSystem(t *testing.T, e *Engine, key string) *SystemNode {
	t.Helper()
	s, ok := e.System(key)
	if !ok {
		t.Fatalf("system %q not registered", key)
	}
	return s
}

func assertConsistent(t *testing.T, s *SystemNode) {
	t.Helper()
	for _, err := range s.CheckConsistency() {
		t.Errorf("%s: %v", s.Name(), err)
	}
}

// fingerprint renders a tree independent of sibling order: one line per
// node with its path of own names, id and game name.
func fingerprint(s *SystemNode) string {
	var lines []string
	s.View(func(t *Tree) {
		t.Walk(t.Root(), func(h Handle, n *BodyNode) bool {
			var path []string
			for _, p := range t.Path(h) {
				path = append(path, t.Node(p).OwnName)
			}
			lines = append(lines, fmt.Sprintf("%s|%d|%s|%s", strings.Join(path, "/"), n.BodyID, n.Class, n.CanonicalName))
			return true
		})
	})
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func pathOf(t *testing.T, s *SystemNode, id int) string {
	t.Helper()
	names, ok := s.PathNames(id)
	if !ok {
		t.Fatalf("body %d not found", id)
	}
	return strings.Join(names, "/")
}

// pathByName returns the own-name path of the body carrying a game name.
func pathByName(t *testing.T, s *SystemNode, name string) string {
	t.Helper()
	var names []string
	s.View(func(tr *Tree) {
		h := newReconciler(tr, s.name).findCanonical(name, nil)
		if h == NoHandle {
			return
		}
		for _, p := range tr.Path(h)[1:] {
			names = append(names, tr.Node(p).OwnName)
		}
	})
	if names == nil {
		t.Fatalf("body %q not found", name)
	}
	return strings.Join(names, "/")
}
