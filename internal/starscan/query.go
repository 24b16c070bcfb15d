package starscan

import (
	"strconv"
	"strings"

	"elite-starscan/internal/journal"
)

// ParseSystemKey turns user input into a system reference: digits are an
// address, anything else a name (optionally "name:address").
func ParseSystemKey(key string) journal.SystemRef {
	key = strings.TrimSpace(key)
	if addr, err := strconv.ParseInt(key, 10, 64); err == nil && addr > 0 {
		return journal.SystemRef{Address: addr}
	}
	return journal.SystemRef{Name: key}
}

// FindByID returns a copy of the body with the given id.
func (s *SystemNode) FindByID(id int) (BodyNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.tree.byID[id]
	if !ok {
		return BodyNode{}, false
	}
	return s.tree.node(h).copyNode(), true
}

// FindByCanonicalName returns a copy of the body carrying the given game
// name. Bodies not scanned yet are matched by the name their position implies.
func (s *SystemNode) FindByCanonicalName(name string) (BodyNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := newReconciler(s.tree, s.name).findCanonical(name, nil)
	if h == NoHandle {
		return BodyNode{}, false
	}
	return s.tree.node(h).copyNode(), true
}

// FindBySubName looks a body up by its name without the system prefix,
// e.g. "A 1 a". "" finds the main star.
func (s *SystemNode) FindBySubName(sub string) (BodyNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub == "" {
		for _, c := range s.tree.node(s.tree.Root()).children {
			if n := s.tree.node(c); n.OwnName == MainStarName {
				return n.copyNode(), true
			}
		}
		return BodyNode{}, false
	}
	var found *BodyNode
	s.tree.Walk(s.tree.Root(), func(h Handle, n *BodyNode) bool {
		if n.Class == ClassSystem {
			return true
		}
		name := n.CanonicalName
		if name == "" {
			name = s.tree.derivedName(h, s.name)
		}
		for _, sys := range s.names {
			if strings.EqualFold(SubName(name, sys), sub) {
				found = n
				return false
			}
		}
		if len(s.names) == 0 && strings.EqualFold(name, sub) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return BodyNode{}, false
	}
	return found.copyNode(), true
}

// Find returns copies of the bodies matching pred in tree order, stopping
// at the first match when firstOnly is set. The root is never returned.
func (s *SystemNode) Find(pred func(*BodyNode) bool, firstOnly bool) []BodyNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []BodyNode
	s.tree.Walk(s.tree.Root(), func(_ Handle, n *BodyNode) bool {
		if n.Class == ClassSystem || !pred(n) {
			return true
		}
		out = append(out, n.copyNode())
		return !firstOnly
	})
	return out
}

// Bodies returns copies of every body in tree order.
func (s *SystemNode) Bodies() []BodyNode {
	return s.Find(func(*BodyNode) bool { return true }, false)
}

// PathNames returns the own names from the root down to the body with the
// given id, root excluded.
func (s *SystemNode) PathNames(id int) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.tree.byID[id]
	if !ok {
		return nil, false
	}
	var names []string
	for _, p := range s.tree.Path(h)[1:] {
		names = append(names, s.tree.node(p).OwnName)
	}
	return names, true
}

// NameContains matches bodies whose own or game name contains sub,
// ignoring case.
func NameContains(sub string) func(*BodyNode) bool {
	sub = strings.ToLower(sub)
	return func(n *BodyNode) bool {
		return strings.Contains(strings.ToLower(n.OwnName), sub) ||
			strings.Contains(strings.ToLower(n.CanonicalName), sub)
	}
}

// OfClass matches bodies of one class.
func OfClass(c BodyClass) func(*BodyNode) bool {
	return func(n *BodyNode) bool { return n.Class == c }
}
