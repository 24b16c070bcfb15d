package starscan

import (
	"sort"
	"strings"
	"unicode"

	"elite-starscan/internal/journal"
)

// Names given to nodes whose real name is not (yet) known.
const (
	SystemRootName        = "System"
	MainStarName          = "Main Star"
	UnknownStarName       = "Unknown Star"
	UnknownBarycentreName = "Unknown Barycentre"
	UnknownBodyName       = "Unknown Body"

	barycentrePrefix = "BC of "
)

// IsPlaceholderName reports whether s is one of the synthetic names used for
// structurally present but textually unnamed nodes.
func IsPlaceholderName(s string) bool {
	switch s {
	case UnknownStarName, UnknownBarycentreName, UnknownBodyName:
		return true
	}
	return false
}

// IsCompositeBarycentreName reports whether s was derived from a
// barycentre's orbiters.
func IsCompositeBarycentreName(s string) bool { return strings.HasPrefix(s, barycentrePrefix) }

// ComposeBarycentreName builds a barycentre name from the short names of
// the bodies orbiting it, e.g. "BC of A, B".
func ComposeBarycentreName(orbiters []string) string {
	names := append([]string(nil), orbiters...)
	sort.Strings(names)
	return barycentrePrefix + strings.Join(names, ", ")
}

// isStarDesignator reports whether s is a single uppercase letter.
func isStarDesignator(s string) bool {
	r := []rune(s)
	return len(r) == 1 && unicode.IsUpper(r[0]) && unicode.IsLetter(r[0])
}

// IsBarycentreName reports whether s looks like a textual barycentre
// designation ("AB", "CDE"): two or more uppercase letters.
func IsBarycentreName(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// SplitName tokenizes a sub-name into segments. Multi-word belt and ring
// designations ("A Belt Cluster", "A Belt", "B Ring") are kept whole.
func SplitName(text string) []string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		w := words[i]
		if isStarDesignator(w) && i+1 < len(words) {
			switch words[i+1] {
			case "Belt":
				if i+2 < len(words) && words[i+2] == "Cluster" {
					out = append(out, w+" Belt Cluster")
					i += 3
					continue
				}
				out = append(out, w+" Belt")
				i += 2
				continue
			case "Ring":
				out = append(out, w+" Ring")
				i += 2
				continue
			}
		}
		out = append(out, w)
		i++
	}
	return out
}

// SubName strips the system name prefix from a body name. A body named
// exactly like its system yields "", a body with an unrelated proper name is
// returned unchanged.
func SubName(bodyName, systemName string) string {
	bodyName = strings.TrimSpace(bodyName)
	if systemName == "" {
		return bodyName
	}
	if strings.EqualFold(bodyName, systemName) {
		return ""
	}
	if len(bodyName) > len(systemName) && strings.EqualFold(bodyName[:len(systemName)], systemName) && bodyName[len(systemName)] == ' ' {
		return strings.TrimSpace(bodyName[len(systemName)+1:])
	}
	return bodyName
}

// placeholderFor names an ancestor the text does not mention.
func placeholderFor(t journal.ParentType) string {
	switch t {
	case journal.ParentNull:
		return UnknownBarycentreName
	case journal.ParentStar:
		return UnknownStarName
	default:
		return UnknownBodyName
	}
}

// Align pairs a parent chain (nearest ancestor first) with the segments of
// the scanned body's sub-name and returns one name per chain level, topmost
// first, followed by the leaf's name ("" when the text names nothing).
//
// Text is assigned from the leaf upwards: the leaf takes the last segment,
// a barycentre takes a segment only when it looks like a barycentre
// designation, every other ancestor takes the next segment while any
// remain. Ancestors left without text get a placeholder named after their
// declared type. Surplus leading segments are folded into the topmost
// named level so no text is lost.
func Align(parents []journal.ParentRef, segs []string) []string {
	n := len(parents)
	takes := make([]bool, n) // indexed like parents
	remaining := len(segs)
	leafTakes := remaining > 0
	if leafTakes {
		remaining--
	}
	for i := 0; i < n && remaining > 0; i++ {
		seg := segs[remaining-1]
		if parents[i].Type == journal.ParentNull && !IsBarycentreName(seg) {
			continue
		}
		takes[i] = true
		remaining--
	}

	out := make([]string, 0, n+1)
	si := 0
	first := true
	for i := n - 1; i >= 0; i-- {
		if !takes[i] {
			out = append(out, placeholderFor(parents[i].Type))
			continue
		}
		name := segs[si]
		si++
		if first && remaining > 0 {
			name = strings.Join(segs[:remaining+1], " ")
			si = remaining + 1
		}
		first = false
		out = append(out, name)
	}

	leaf := ""
	if leafTakes {
		if first && remaining > 0 {
			leaf = strings.Join(segs, " ")
		} else {
			leaf = segs[len(segs)-1]
		}
	}
	return append(out, leaf)
}

// guessClass classifies a sub-name segment when no parent chain is known.
func guessClass(seg string) BodyClass {
	switch {
	case isStarDesignator(seg):
		return ClassStar
	case IsBarycentreName(seg):
		return ClassBarycentre
	case strings.HasSuffix(seg, " Belt Cluster"), strings.HasSuffix(seg, " Belt"):
		return ClassBeltCluster
	case strings.HasSuffix(seg, " Ring"):
		return ClassPlanetaryRing
	default:
		return ClassPlanetOrMoon
	}
}

// beltClusterName normalises a belt designation to its cluster node name.
func beltClusterName(seg string) string {
	if strings.HasSuffix(seg, " Belt") {
		return seg + " Cluster"
	}
	return seg
}

// shortNameOf returns the name a body contributes to a barycentre's composite name.
func shortNameOf(n *BodyNode) string {
	if n.OwnName == MainStarName && n.CanonicalName != "" {
		return n.CanonicalName
	}
	return n.OwnName
}
