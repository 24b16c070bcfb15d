package starscan

import (
	"slices"
	"sync"
	"sync/atomic"

	"elite-starscan/internal/journal"
)

// Counts are the discovery aggregates of one system.
type Counts struct {
	BodyCount      int     `json:"body_count" yaml:"body_count"`
	NonBodyCount   int     `json:"non_body_count" yaml:"non_body_count"`
	Progress       float64 `json:"progress" yaml:"progress"`
	AllBodiesFound bool    `json:"all_bodies_found" yaml:"all_bodies_found"`
	Scanned        int     `json:"scanned" yaml:"scanned"`
	Mapped         int     `json:"mapped" yaml:"mapped"`
}

// Station is an orbital station docked at in a system.
type Station struct {
	Name           string  `json:"name" yaml:"name"`
	Type           string  `json:"type" yaml:"type"`
	MarketID       int64   `json:"market_id" yaml:"market_id"`
	DistFromStarLS float64 `json:"dist_from_star_ls" yaml:"dist_from_star_ls"`
}

// SystemNode is one star system: its identity, discovery aggregates and body
// tree. All fields below mu are guarded by it. Read methods take the lock
// and return copies.
type SystemNode struct {
	mu sync.Mutex

	name    string
	address int64
	names   []string

	tree         *Tree
	legacyPlaced bool
	counts       Counts
	signals      []journal.FSSSignal
	stations     []Station

	structureGen atomic.Uint64
	payloadGen   atomic.Uint64

	// Guarded by the Registry lock.
	regName    string
	regAddress int64
	seq        uint64
}

func newSystem(ref journal.SystemRef, seq uint64) *SystemNode {
	s := &SystemNode{
		name:       ref.Name,
		address:    ref.Address,
		tree:       newTree(),
		regName:    ref.Name,
		regAddress: ref.Address,
		seq:        seq,
	}
	if ref.Name != "" {
		s.names = []string{ref.Name}
	}
	return s
}

// Name returns the current display name.
func (s *SystemNode) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Address returns the system address, 0 when not yet known.
func (s *SystemNode) Address() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Names returns every display name the system has been known under,
// oldest first.
func (s *SystemNode) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.names)
}

// Ref returns the system's current identity.
func (s *SystemNode) Ref() journal.SystemRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return journal.SystemRef{Address: s.address, Name: s.name}
}

// StructureGeneration changes whenever a node is added, removed, moved,
// renamed or re-identified.
func (s *SystemNode) StructureGeneration() uint64 { return s.structureGen.Load() }

// PayloadGeneration changes whenever attached evidence changes.
func (s *SystemNode) PayloadGeneration() uint64 { return s.payloadGen.Load() }

// Counts returns the discovery aggregates.
func (s *SystemNode) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countsLocked()
}

func (s *SystemNode) countsLocked() Counts {
	c := s.counts
	c.Scanned, c.Mapped = 0, 0
	s.tree.Walk(s.tree.Root(), func(_ Handle, n *BodyNode) bool {
		if n.Scan != nil {
			c.Scanned++
		}
		if n.Mapped {
			c.Mapped++
		}
		return true
	})
	return c
}

// Signals returns the system's discovered signals.
func (s *SystemNode) Signals() []journal.FSSSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.signals)
}

// Stations returns the orbital stations docked at in the system.
func (s *SystemNode) Stations() []Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.stations)
}

// HasLegacyPlacements reports whether any body was placed from evidence
// without body ids since the last Clear.
func (s *SystemNode) HasLegacyPlacements() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.legacyPlaced
}

// View runs fn with the lock held. fn must not retain the tree or any node.
func (s *SystemNode) View(fn func(t *Tree)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.tree)
}

// Clear drops the body tree and id index. Identity, discovery counts,
// signals and system-level codex entries survive.
func (s *SystemNode) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.structureGen.Add(1)
}

func (s *SystemNode) clearLocked() {
	old := s.tree.node(s.tree.Root())
	s.tree = newTree()
	s.tree.node(s.tree.Root()).Codex = old.Codex
	s.legacyPlaced = false
}

// setIdentity records a name or address the registry learned for s.
func (s *SystemNode) setIdentity(name string, address int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if address != 0 {
		s.address = address
	}
	if name != "" && name != s.name {
		s.name = name
		if !slices.Contains(s.names, name) {
			s.names = append(s.names, name)
		}
	}
}

// bodyPrefix is the system name body names start with.
func (s *SystemNode) bodyPrefix(declared string) string {
	if declared != "" {
		return declared
	}
	return s.name
}
