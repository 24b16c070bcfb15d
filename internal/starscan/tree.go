package starscan

import (
	"slices"
	"strings"
)

// Tree is the arena holding one system's bodies. Index 0 is the "System"
// pseudo-root. Nodes are addressed by Handle; parent links are non-owning
// handles and child lists are owned by the arena, so reparenting is two list
// edits and a handle assignment.
type Tree struct {
	nodes []*BodyNode
	byID  map[int]Handle
}

func newTree() *Tree {
	t := &Tree{byID: make(map[int]Handle)}
	t.nodes = append(t.nodes, &BodyNode{
		OwnName: SystemRootName,
		BodyID:  rootID,
		Class:   ClassSystem,
		handle:  0,
		parent:  NoHandle,
	})
	return t
}

// Root returns the handle of the System pseudo-root.
func (t *Tree) Root() Handle { return 0 }

// Node returns the node for h, or nil for an invalid or removed handle.
// The returned pointer must be treated as read-only by callers outside this
// package and only used while the owning system's lock is held.
func (t *Tree) Node(h Handle) *BodyNode {
	if h < 0 || int(h) >= len(t.nodes) {
		return nil
	}
	n := t.nodes[h]
	if n.dead {
		return nil
	}
	return n
}

// ByID returns the node indexed under a body id.
func (t *Tree) ByID(id int) (Handle, bool) {
	h, ok := t.byID[id]
	return h, ok
}

// Len returns the number of live nodes, root included.
func (t *Tree) Len() int {
	n := 0
	for _, b := range t.nodes {
		if !b.dead {
			n++
		}
	}
	return n
}

func (t *Tree) node(h Handle) *BodyNode { return t.nodes[h] }

// newNode creates a node under parent, indexes it and re-sorts the parent's children.
func (t *Tree) newNode(parent Handle, name string, id int, class BodyClass) Handle {
	h := Handle(len(t.nodes))
	t.nodes = append(t.nodes, &BodyNode{
		OwnName: name,
		BodyID:  id,
		Class:   class,
		handle:  h,
		parent:  NoHandle,
	})
	if id >= 0 {
		t.byID[id] = h
	}
	t.attach(parent, h)
	return h
}

// attach makes h the last child of parent and re-sorts the children.
func (t *Tree) attach(parent, h Handle) {
	n := t.node(h)
	n.parent = parent
	p := t.node(parent)
	p.children = append(p.children, h)
	t.sortChildren(parent)
}

// detach unlinks h from its parent. The subtree below h stays intact.
// A barycentre parent forgets h as an orbiter.
func (t *Tree) detach(h Handle) {
	n := t.node(h)
	if n.parent == NoHandle {
		return
	}
	p := t.node(n.parent)
	if i := slices.Index(p.children, h); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	if _, ok := p.orbiters[h]; ok {
		delete(p.orbiters, h)
		t.refreshBarycentreName(n.parent)
	}
	n.parent = NoHandle
}

// remove drops a detached, childless node from the arena and the index.
func (t *Tree) remove(h Handle) {
	n := t.node(h)
	t.detach(h)
	if n.BodyID >= 0 && t.byID[n.BodyID] == h {
		delete(t.byID, n.BodyID)
	}
	n.children = nil
	n.dead = true
}

// setID changes a node's body id and keeps the index one-to-one.
func (t *Tree) setID(h Handle, id int) {
	n := t.node(h)
	if n.BodyID == id {
		return
	}
	if n.BodyID >= 0 && t.byID[n.BodyID] == h {
		delete(t.byID, n.BodyID)
	}
	n.BodyID = id
	if id >= 0 {
		t.byID[id] = h
	}
}

// rename changes a node's own name, keeping orbiter sets and order current.
func (t *Tree) rename(h Handle, name string) {
	n := t.node(h)
	n.OwnName = name
	if n.parent == NoHandle {
		return
	}
	p := t.node(n.parent)
	if _, ok := p.orbiters[h]; ok {
		p.orbiters[h] = shortNameOf(n)
		t.refreshBarycentreName(n.parent)
	}
	t.sortChildren(n.parent)
}

// addOrbiter records that h orbits the barycentre bary. It reports whether
// the barycentre's name changed.
func (t *Tree) addOrbiter(bary, h Handle) bool {
	b := t.node(bary)
	short := shortNameOf(t.node(h))
	if b.orbiters == nil {
		b.orbiters = make(map[Handle]string)
	}
	if cur, ok := b.orbiters[h]; ok && cur == short {
		return false
	}
	b.orbiters[h] = short
	return t.refreshBarycentreName(bary)
}

func (t *Tree) refreshBarycentreName(bary Handle) bool {
	b := t.node(bary)
	if len(b.orbiters) == 0 {
		return false
	}
	name := ComposeBarycentreName(b.Orbiters())
	if b.OwnName == name {
		return false
	}
	b.OwnName = name
	if b.parent != NoHandle {
		t.sortChildren(b.parent)
	}
	return true
}

// isAncestorOrSelf reports whether a is h or one of h's ancestors.
func (t *Tree) isAncestorOrSelf(a, h Handle) bool {
	for cur := h; cur != NoHandle; cur = t.node(cur).parent {
		if cur == a {
			return true
		}
	}
	return false
}

func (t *Tree) childNamed(parent Handle, name string, match func(*BodyNode) bool) Handle {
	for _, c := range t.node(parent).children {
		n := t.node(c)
		if n.OwnName == name && (match == nil || match(n)) {
			return c
		}
	}
	return NoHandle
}

// Walk visits the subtree under start depth-first, parents before children,
// in child order. Returning false from fn stops the walk; Walk then reports false.
func (t *Tree) Walk(start Handle, fn func(h Handle, n *BodyNode) bool) bool {
	n := t.Node(start)
	if n == nil {
		return true
	}
	if !fn(start, n) {
		return false
	}
	for _, c := range n.children {
		if !t.Walk(c, fn) {
			return false
		}
	}
	return true
}

// Path returns the handles from the root down to h.
func (t *Tree) Path(h Handle) []Handle {
	var path []Handle
	for cur := h; cur != NoHandle; cur = t.node(cur).parent {
		path = append(path, cur)
	}
	slices.Reverse(path)
	return path
}

// derivedName rebuilds a body name from the node's position: the system name
// followed by every ancestor's own name that would appear in a game name.
func (t *Tree) derivedName(h Handle, systemName string) string {
	var parts []string
	for _, p := range t.Path(h) {
		n := t.node(p)
		switch {
		case n.Class == ClassSystem, IsPlaceholderName(n.OwnName), n.OwnName == MainStarName:
			continue
		case n.Class == ClassBarycentre && !IsBarycentreName(n.OwnName):
			continue
		}
		parts = append(parts, n.OwnName)
	}
	if len(parts) == 0 {
		return systemName
	}
	return strings.TrimSpace(systemName + " " + strings.Join(parts, " "))
}

// sortChildren orders a node's children for presentation: single-character
// designations lexically, then by semi-major axis, belt clusters first,
// composite barycentre names after named bodies, finally by name.
func (t *Tree) sortChildren(parent Handle) {
	p := t.node(parent)
	slices.SortStableFunc(p.children, func(a, b Handle) int {
		return compareBodies(t.node(a), t.node(b))
	})
}

func compareBodies(a, b *BodyNode) int {
	if len(a.OwnName) == 1 && len(b.OwnName) == 1 {
		return strings.Compare(a.OwnName, b.OwnName)
	}
	sa, oka := a.SemiMajorAxis()
	sb, okb := b.SemiMajorAxis()
	if oka && okb && sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	ca, cb := a.Class == ClassBeltCluster, b.Class == ClassBeltCluster
	if ca != cb {
		if ca {
			return -1
		}
		return 1
	}
	ba, bb := IsCompositeBarycentreName(a.OwnName), IsCompositeBarycentreName(b.OwnName)
	if ba != bb {
		if bb {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.OwnName, b.OwnName); c != 0 {
		return c
	}
	switch {
	case a.BodyID < b.BodyID:
		return -1
	case a.BodyID > b.BodyID:
		return 1
	}
	return 0
}
