package starscan

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented text rendering of the system's tree.
func (s *SystemNode) Dump(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(w, "%s (%d)\n", s.name, s.address); err != nil {
		return err
	}
	var err error
	s.tree.Walk(s.tree.Root(), func(h Handle, n *BodyNode) bool {
		if n.Class == ClassSystem {
			return true
		}
		depth := len(s.tree.Path(h)) - 1
		_, err = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describe(n))
		return err == nil
	})
	return err
}

// DumpString is Dump into a string.
func (s *SystemNode) DumpString() string {
	var b strings.Builder
	_ = s.Dump(&b)
	return b.String()
}

func describe(n *BodyNode) string {
	var b strings.Builder
	b.WriteString(n.OwnName)
	fmt.Fprintf(&b, " [%s", n.Class)
	if n.BodyID >= 0 {
		fmt.Fprintf(&b, " #%d", n.BodyID)
	}
	b.WriteString("]")
	if sc := n.Scan; sc != nil {
		switch {
		case sc.StarType != "":
			fmt.Fprintf(&b, " %s%d %s", sc.StarType, sc.Subclass, sc.Luminosity)
		case sc.PlanetClass != "":
			fmt.Fprintf(&b, " %s", sc.PlanetClass)
			if sc.Landable {
				b.WriteString(" landable")
			}
		}
		if sc.DistanceFromArrivalLS > 0 {
			fmt.Fprintf(&b, " %.0fls", sc.DistanceFromArrivalLS)
		}
	}
	if n.Mapped {
		b.WriteString(" mapped")
	}
	for _, sig := range n.Signals {
		fmt.Fprintf(&b, " %s:%d", firstNonEmpty(sig.TypeLocalised, sig.Type), sig.Count)
	}
	if len(n.Organics) > 0 {
		fmt.Fprintf(&b, " organics:%d", len(n.Organics))
	}
	if len(n.Features) > 0 {
		fmt.Fprintf(&b, " features:%d", len(n.Features))
	}
	return b.String()
}
