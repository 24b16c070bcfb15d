package starscan

import (
	"sort"
	"strings"

	"elite-starscan/internal/journal"
)

// Handle addresses a BodyNode inside one system's arena. Handles are never
// reused while the tree lives; Clear starts a new arena.
type Handle int32

// NoHandle is the parent of the root and the result of failed lookups.
const NoHandle Handle = -1

// BodyClass is the structural classification of a node.
type BodyClass int

const (
	ClassSystem BodyClass = iota
	ClassStar
	ClassPlanetOrMoon
	ClassBarycentre
	ClassBeltCluster
	ClassBeltClusterBody
	ClassPlanetaryRing
)

func (c BodyClass) String() string {
	switch c {
	case ClassSystem:
		return "System"
	case ClassStar:
		return "Star"
	case ClassPlanetOrMoon:
		return "PlanetOrMoon"
	case ClassBarycentre:
		return "Barycentre"
	case ClassBeltCluster:
		return "BeltCluster"
	case ClassBeltClusterBody:
		return "BeltClusterBody"
	case ClassPlanetaryRing:
		return "PlanetaryRing"
	default:
		return "Unknown"
	}
}

// ParseClass maps a class name back to its BodyClass, ignoring case.
func ParseClass(s string) (BodyClass, bool) {
	for c := ClassSystem; c <= ClassPlanetaryRing; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// Sentinel body ids for nodes placed before their real id is known.
const (
	AutoPlacedID            = -1
	AutoPlacedBeltClusterID = -2
	rootID                  = -3
)

// FeatureKind distinguishes the origin of a SurfaceFeature.
type FeatureKind string

const (
	FeatureTouchdown  FeatureKind = "Touchdown"
	FeatureSettlement FeatureKind = "Settlement"
	FeatureStation    FeatureKind = "Station"
)

// SurfaceFeature is a landing site, settlement or surface port on a body.
type SurfaceFeature struct {
	Kind        FeatureKind `json:"kind" yaml:"kind"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	MarketID    int64       `json:"market_id,omitempty" yaml:"market_id,omitempty"`
	StationType string      `json:"station_type,omitempty" yaml:"station_type,omitempty"`
	Latitude    *float64    `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Docked      bool        `json:"docked,omitempty" yaml:"docked,omitempty"`
}

// BodyNode is one node of a system's body tree. Structure fields are private
// and only change through the Tree; payload fields are written by the event
// handlers under the owning SystemNode's lock.
//
// The journal has no body identifier apart from the id and the display name.
// CanonicalName follows the latest evidence, so it changes when the system is
// renamed. FDName is the game name the body was first seen under and never
// changes afterwards.
type BodyNode struct {
	OwnName       string
	CanonicalName string
	FDName        string
	BodyID        int
	Class         BodyClass

	Scan              *journal.Scan
	Barycentre        *journal.ScanBaryCentre
	Ring              *journal.Ring
	Codex             []journal.CodexEntry
	Signals           []journal.Signal
	Genuses           []journal.Genus
	Organics          []journal.ScanOrganic
	Features          []SurfaceFeature
	Mapped            bool
	EfficientlyMapped bool

	handle   Handle
	parent   Handle
	children []Handle
	orbiters map[Handle]string // barycentres only: short names of known orbiters
	dead     bool
}

// Handle returns the node's arena handle.
func (n *BodyNode) Handle() Handle { return n.handle }

// Parent returns the parent handle, NoHandle for the root.
func (n *BodyNode) Parent() Handle { return n.parent }

// Children returns a copy of the ordered child handles.
func (n *BodyNode) Children() []Handle { return append([]Handle(nil), n.children...) }

// IsAutoPlaced reports whether the node was created before its id was known.
func (n *BodyNode) IsAutoPlaced() bool { return n.BodyID < 0 && n.Class != ClassSystem }

// HasPayload reports whether any evidence is attached to the node.
func (n *BodyNode) HasPayload() bool {
	return n.Scan != nil || n.Barycentre != nil || n.Ring != nil ||
		len(n.Codex) > 0 || len(n.Signals) > 0 || len(n.Genuses) > 0 ||
		len(n.Organics) > 0 || len(n.Features) > 0 || n.Mapped
}

// SemiMajorAxis returns the orbital semi-major axis from whichever record
// carries one.
func (n *BodyNode) SemiMajorAxis() (float64, bool) {
	if n.Scan != nil && n.Scan.SemiMajorAxis != nil {
		return *n.Scan.SemiMajorAxis, true
	}
	if n.Barycentre != nil && n.Barycentre.SemiMajorAxis > 0 {
		return n.Barycentre.SemiMajorAxis, true
	}
	return 0, false
}

// Orbiters returns the sorted short names of bodies known to orbit a barycentre.
func (n *BodyNode) Orbiters() []string {
	names := make([]string, 0, len(n.orbiters))
	for _, s := range n.orbiters {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}

// copyNode returns a detached copy safe to hand out after the lock is released.
func (n *BodyNode) copyNode() BodyNode {
	c := *n
	c.children = n.Children()
	c.Codex = append([]journal.CodexEntry(nil), n.Codex...)
	c.Signals = append([]journal.Signal(nil), n.Signals...)
	c.Genuses = append([]journal.Genus(nil), n.Genuses...)
	c.Organics = append([]journal.ScanOrganic(nil), n.Organics...)
	c.Features = append([]SurfaceFeature(nil), n.Features...)
	c.orbiters = nil
	if len(n.orbiters) > 0 {
		c.orbiters = make(map[Handle]string, len(n.orbiters))
		for h, s := range n.orbiters {
			c.orbiters[h] = s
		}
	}
	return c
}

// classCompatible reports whether a node of class have may stand for a body
// the evidence classifies as want.
func classCompatible(have, want BodyClass, haveAuto bool) bool {
	if have == want {
		return true
	}
	if !haveAuto {
		return false
	}
	guess := func(c BodyClass) bool {
		return c == ClassStar || c == ClassPlanetOrMoon || c == ClassBeltClusterBody
	}
	return guess(have) && guess(want)
}

// classFromParent maps a parent-chain entry type to a node class. above is
// the class of the node the entry hangs from: rings around stars are belts.
func classFromParent(t journal.ParentType, above BodyClass) BodyClass {
	switch t {
	case journal.ParentNull:
		return ClassBarycentre
	case journal.ParentStar:
		return ClassStar
	case journal.ParentRing:
		if above == ClassStar || above == ClassSystem || above == ClassBarycentre {
			return ClassBeltCluster
		}
		return ClassPlanetaryRing
	default:
		return ClassPlanetOrMoon
	}
}

// classFromScan classifies a scanned body from its own type flags.
func classFromScan(sc *journal.Scan) BodyClass {
	switch {
	case sc.IsStar():
		return ClassStar
	case sc.IsPlanet():
		return ClassPlanetOrMoon
	case sc.IsBeltClusterBody():
		return ClassBeltClusterBody
	case strings.HasSuffix(sc.BodyName, " Ring"):
		return ClassPlanetaryRing
	default:
		return ClassPlanetOrMoon
	}
}
