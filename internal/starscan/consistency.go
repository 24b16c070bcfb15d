package starscan

import (
	"fmt"
	"slices"
)

// CheckConsistency verifies the structural invariants of the system's tree
// and returns every violation found.
func (s *SystemNode) CheckConsistency() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.check()
}

func (t *Tree) check() []error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	root := t.node(t.Root())
	if root.parent != NoHandle || root.Class != ClassSystem {
		fail("root has parent %d and class %s", root.parent, root.Class)
	}

	// Each live node is reached from the root exactly once.
	seen := make(map[Handle]int)
	var visit func(h Handle, depth int)
	visit = func(h Handle, depth int) {
		seen[h]++
		if seen[h] > 1 || depth > len(t.nodes) {
			fail("node %d reached twice from the root", h)
			return
		}
		for _, c := range t.node(h).children {
			if int(c) < 0 || int(c) >= len(t.nodes) {
				fail("node %d lists invalid child %d", h, c)
				continue
			}
			if t.node(c).dead {
				fail("node %d lists removed child %d", h, c)
				continue
			}
			visit(c, depth+1)
		}
	}
	visit(t.Root(), 0)

	for i, n := range t.nodes {
		h := Handle(i)
		if n.dead {
			if _, ok := seen[h]; ok {
				fail("removed node %d still linked", h)
			}
			continue
		}
		if n.handle != h {
			fail("node %d records handle %d", h, n.handle)
		}
		if seen[h] == 0 {
			fail("node %d (%s) unreachable from the root", h, n.OwnName)
		}
		if h != t.Root() {
			if n.parent == NoHandle || t.Node(n.parent) == nil {
				fail("node %d (%s) has no live parent", h, n.OwnName)
			} else if cnt := countOf(t.node(n.parent).children, h); cnt != 1 {
				fail("node %d (%s) listed %d times by its parent %d", h, n.OwnName, cnt, n.parent)
			}
		}
		for _, c := range n.children {
			if int(c) >= 0 && int(c) < len(t.nodes) && t.node(c).parent != h {
				fail("child %d of %d points at parent %d", c, h, t.node(c).parent)
			}
		}
		if n.BodyID >= 0 {
			if got, ok := t.byID[n.BodyID]; !ok || got != h {
				fail("body id %d of node %d not indexed to it", n.BodyID, h)
			}
		}
		if len(n.orbiters) > 0 {
			if n.Class != ClassBarycentre {
				fail("%s node %d records orbiters", n.Class, h)
			}
			for o := range n.orbiters {
				if !slices.Contains(n.children, o) {
					fail("orbiter %d of barycentre %d is not its child", o, h)
				}
			}
			if want := ComposeBarycentreName(n.Orbiters()); n.OwnName != want {
				fail("barycentre %d named %q, orbiters give %q", h, n.OwnName, want)
			}
		}
	}

	for id, h := range t.byID {
		n := t.Node(h)
		if n == nil {
			fail("body id %d indexed to removed node %d", id, h)
			continue
		}
		if n.BodyID != id {
			fail("body id %d indexed to node %d with id %d", id, h, n.BodyID)
		}
	}
	return errs
}

func countOf(hs []Handle, h Handle) int {
	n := 0
	for _, x := range hs {
		if x == h {
			n++
		}
	}
	return n
}
