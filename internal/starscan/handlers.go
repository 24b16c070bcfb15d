package starscan

import (
	"fmt"
	"reflect"
	"slices"

	"elite-starscan/internal/journal"
	"elite-starscan/internal/logger"
)

// validate rejects events that contradict themselves, before any system is
// touched.
func validate(ev journal.Event) error {
	if ev.System().IsZero() {
		return reject(ev.Kind(), "no system address or name")
	}
	switch e := ev.(type) {
	case *journal.Scan:
		if e.BodyName == "" {
			return reject(e.Kind(), "empty body name")
		}
		if e.Location.Address != 0 && e.SystemAddress != 0 && e.Location.Address != e.SystemAddress {
			return reject(e.Kind(), "%s declares system %d but was recorded in %s", e.BodyName, e.SystemAddress, e.Location)
		}
		if e.BodyID != nil {
			seen := map[int]bool{*e.BodyID: true}
			for _, p := range e.Parents {
				if p.ID < 0 {
					return reject(e.Kind(), "%s has negative parent id %d", e.BodyName, p.ID)
				}
				if seen[p.ID] {
					return reject(e.Kind(), "%s repeats body id %d in its parent chain", e.BodyName, p.ID)
				}
				seen[p.ID] = true
			}
		}
	case *journal.CodexEntry:
		return nil
	case journal.BodyScoped:
		if id, name := e.BodyRef(); id < 0 && name == "" {
			return reject(e.Kind(), "no body id or name")
		}
	}
	return nil
}

// apply feeds one event to the system. The caller holds s.mu.
func (s *SystemNode) apply(ev journal.Event) (Outcome, error) {
	var c change
	out, err := s.dispatch(ev, &c)
	if c.structure {
		s.structureGen.Add(1)
	}
	if c.payload {
		s.payloadGen.Add(1)
	}
	return out, err
}

// change tracks which generation counters one mutation bumps.
type change struct {
	structure bool
	payload   bool
}

func (s *SystemNode) dispatch(ev journal.Event, c *change) (Outcome, error) {
	switch e := ev.(type) {
	case *journal.Scan:
		return s.applyScan(e, c)
	case *journal.ScanBaryCentre:
		return s.applyBaryCentre(e, c)
	case *journal.FSSDiscoveryScan:
		next := s.counts
		next.BodyCount, next.NonBodyCount, next.Progress = e.BodyCount, e.NonBodyCount, e.Progress
		if next != s.counts {
			s.counts = next
			c.payload = true
		}
		return Applied, nil
	case *journal.FSSAllBodiesFound:
		if !s.counts.AllBodiesFound || s.counts.BodyCount != e.Count {
			s.counts.AllBodiesFound = true
			s.counts.BodyCount = e.Count
			s.counts.Progress = 1
			c.payload = true
		}
		return Applied, nil
	case *journal.SignalList:
		return s.applySignals(e, c), nil
	case *journal.CodexEntry:
		return s.applyCodex(e, c), nil
	case *journal.ScanOrganic:
		return s.withBody(e, c, func(n *BodyNode) bool {
			before := len(n.Organics)
			n.Organics = appendOrganic(n.Organics, *e)
			return len(n.Organics) != before
		}), nil
	case *journal.BodySignals:
		return s.withBody(e, c, func(n *BodyNode) bool {
			changed := false
			if !slices.Equal(n.Signals, e.Signals) {
				n.Signals = slices.Clone(e.Signals)
				changed = true
			}
			if len(e.Genuses) > 0 && !slices.Equal(n.Genuses, e.Genuses) {
				n.Genuses = slices.Clone(e.Genuses)
				changed = true
			}
			return changed
		}), nil
	case *journal.SAAScanComplete:
		return s.withBody(e, c, func(n *BodyNode) bool {
			eff := e.EfficiencyTarget > 0 && e.ProbesUsed <= e.EfficiencyTarget
			if n.Mapped && n.EfficientlyMapped == (n.EfficientlyMapped || eff) {
				return false
			}
			n.Mapped = true
			n.EfficientlyMapped = n.EfficientlyMapped || eff
			return true
		}), nil
	case *journal.Touchdown:
		if !e.OnPlanet {
			return Ignored, nil
		}
		return s.withBody(e, c, func(n *BodyNode) bool {
			before := slices.Clone(n.Features)
			n.Features = upsertFeature(n.Features, SurfaceFeature{
				Kind:      FeatureTouchdown,
				Name:      e.NearestDestination,
				Latitude:  e.Latitude,
				Longitude: e.Longitude,
			})
			return !reflect.DeepEqual(before, n.Features)
		}), nil
	case *journal.ApproachSettlement:
		return s.withBody(e, c, func(n *BodyNode) bool {
			before := slices.Clone(n.Features)
			n.Features = upsertFeature(n.Features, SurfaceFeature{
				Kind:      FeatureSettlement,
				Name:      e.Name,
				MarketID:  e.MarketID,
				Latitude:  e.Latitude,
				Longitude: e.Longitude,
			})
			return !reflect.DeepEqual(before, n.Features)
		}), nil
	case *journal.Docked:
		return s.applyDocked(e, c), nil
	}
	return Ignored, nil
}

// applyScan places the scanned body, clearing a legacy-built tree once when
// modern evidence cannot be reconciled with it.
func (s *SystemNode) applyScan(sc *journal.Scan, c *change) (Outcome, error) {
	prefix := s.bodyPrefix(sc.StarSystem)
	if sc.BodyID != nil {
		if err := s.checkChain(sc); err != nil {
			if !s.legacyPlaced {
				return Rejected, reject(sc.Kind(), "%s: %v", sc.BodyName, err)
			}
			logger.Warn("TREE", fmt.Sprintf("%s: %s contradicts bodies placed without ids, rebuilding", s.name, sc.BodyName))
			s.clearLocked()
			c.structure = true
		}
	}

	r := newReconciler(s.tree, prefix)
	levels, leaf, modern := scanLevels(sc, prefix)
	h, err := r.place(levels, leaf)
	if err != nil {
		c.structure = c.structure || r.structural
		return Rejected, reject(sc.Kind(), "%s: %v", sc.BodyName, err)
	}
	r.attachScan(h, sc, modern)
	if !modern && (sc.BodyID == nil || len(levels) > 0) {
		s.legacyPlaced = true
	}
	c.structure = c.structure || r.structural
	c.payload = c.payload || r.payload
	return Applied, nil
}

// checkChain looks for ids the tree already binds to bodies of another kind.
func (s *SystemNode) checkChain(sc *journal.Scan) error {
	above := ClassSystem
	for i := len(sc.Parents) - 1; i >= 0; i-- {
		p := sc.Parents[i]
		want := classFromParent(p.Type, above)
		if h, ok := s.tree.byID[p.ID]; ok {
			have := s.tree.node(h).Class
			if !sameKind(have, want) {
				return fmt.Errorf("%w: body %d is a %s, chain says %s", errConflict, p.ID, have, want)
			}
		}
		above = want
	}
	if h, ok := s.tree.byID[*sc.BodyID]; ok {
		have, want := s.tree.node(h).Class, classFromScan(sc)
		if !sameKind(have, want) {
			return fmt.Errorf("%w: body %d is a %s, scan says %s", errConflict, *sc.BodyID, have, want)
		}
	}
	return nil
}

func sameKind(a, b BodyClass) bool {
	ring := func(c BodyClass) bool { return c == ClassBeltCluster || c == ClassPlanetaryRing }
	return a == b || (ring(a) && ring(b))
}

func (s *SystemNode) applyBaryCentre(e *journal.ScanBaryCentre, c *change) (Outcome, error) {
	h, ok := s.tree.byID[e.BodyID]
	if !ok {
		return Deferred, nil
	}
	n := s.tree.node(h)
	if n.Class != ClassBarycentre {
		return Rejected, reject(e.Kind(), "body %d is a %s", e.BodyID, n.Class)
	}
	if n.Barycentre == nil || *n.Barycentre != *e {
		rec := *e
		n.Barycentre = &rec
		s.tree.sortChildren(n.parent)
		c.payload = true
	}
	return Applied, nil
}

func (s *SystemNode) applySignals(e *journal.SignalList, c *change) Outcome {
	applied := false
	for _, sig := range e.Signals {
		if sig.SystemAddress != 0 && s.address != 0 && sig.SystemAddress != s.address {
			logger.Warn("SIGNAL", fmt.Sprintf("%s: dropping %q recorded for system %d", s.name, sig.SignalName, sig.SystemAddress))
			continue
		}
		applied = true
		i := slices.IndexFunc(s.signals, func(have journal.FSSSignal) bool {
			return have.SignalName == sig.SignalName && have.SignalType == sig.SignalType
		})
		switch {
		case i < 0:
			s.signals = append(s.signals, sig)
			c.payload = true
		case s.signals[i] != sig:
			s.signals[i] = sig
			c.payload = true
		}
	}
	if !applied {
		return Ignored
	}
	return Applied
}

func (s *SystemNode) applyCodex(e *journal.CodexEntry, c *change) Outcome {
	h := s.tree.Root()
	if e.BodyID != nil {
		var ok bool
		if h, ok = s.tree.byID[*e.BodyID]; !ok {
			return Deferred
		}
	}
	n := s.tree.node(h)
	before := len(n.Codex)
	n.Codex = appendCodex(n.Codex, *e)
	if len(n.Codex) != before {
		c.payload = true
	}
	return Applied
}

func (s *SystemNode) applyDocked(e *journal.Docked, c *change) Outcome {
	if !e.IsSurfaceStation() {
		st := Station{Name: e.StationName, Type: e.StationType, MarketID: e.MarketID, DistFromStarLS: e.DistFromStarLS}
		i := slices.IndexFunc(s.stations, func(have Station) bool { return have.MarketID == e.MarketID })
		switch {
		case i < 0:
			s.stations = append(s.stations, st)
			c.payload = true
		case s.stations[i] != st:
			s.stations[i] = st
			c.payload = true
		}
		return Applied
	}

	found := false
	s.tree.Walk(s.tree.Root(), func(_ Handle, n *BodyNode) bool {
		for i := range n.Features {
			f := &n.Features[i]
			if f.Kind == FeatureTouchdown || !(f.MarketID == e.MarketID && e.MarketID != 0 || f.Name == e.StationName) {
				continue
			}
			found = true
			if !f.Docked || f.StationType != e.StationType || f.Kind != FeatureStation {
				f.Docked, f.StationType, f.Kind = true, e.StationType, FeatureStation
				if f.MarketID == 0 {
					f.MarketID = e.MarketID
				}
				c.payload = true
			}
			return false
		}
		return true
	})
	if !found {
		return Deferred
	}
	return Applied
}

// withBody locates the body an event targets and lets fn update it. fn
// reports whether anything changed.
func (s *SystemNode) withBody(ev journal.BodyScoped, c *change, fn func(n *BodyNode) bool) Outcome {
	id, name := ev.BodyRef()
	h := s.locateBody(id, name, c)
	if h == NoHandle {
		return Deferred
	}
	if fn(s.tree.node(h)) {
		c.payload = true
	}
	return Applied
}

// locateBody resolves a body reference by id, then by game name. A body
// found by name that has no id yet takes the event's id.
func (s *SystemNode) locateBody(id int, name string, c *change) Handle {
	if id >= 0 {
		if h, ok := s.tree.byID[id]; ok {
			return h
		}
	}
	if name == "" {
		return NoHandle
	}
	r := newReconciler(s.tree, s.name)
	h := r.findCanonical(name, nil)
	if h == NoHandle {
		return NoHandle
	}
	n := s.tree.node(h)
	if id >= 0 && n.BodyID != id {
		if n.BodyID >= 0 {
			return NoHandle
		}
		s.tree.setID(h, id)
		c.structure = true
	}
	return h
}

func appendCodex(list []journal.CodexEntry, e journal.CodexEntry) []journal.CodexEntry {
	for _, have := range list {
		if have.EntryID == e.EntryID && floatsEqual(have.Latitude, e.Latitude) && floatsEqual(have.Longitude, e.Longitude) {
			return list
		}
	}
	return append(list, e)
}

func appendOrganic(list []journal.ScanOrganic, e journal.ScanOrganic) []journal.ScanOrganic {
	if slices.Contains(list, e) {
		return list
	}
	return append(list, e)
}

// upsertFeature replaces the feature with the same identity or appends f.
// Touchdowns are identified by position, the rest by market id or name.
func upsertFeature(list []SurfaceFeature, f SurfaceFeature) []SurfaceFeature {
	for i, have := range list {
		var same bool
		if f.Kind == FeatureTouchdown {
			same = have.Kind == FeatureTouchdown && floatsEqual(have.Latitude, f.Latitude) && floatsEqual(have.Longitude, f.Longitude)
		} else {
			same = have.Kind != FeatureTouchdown &&
				(f.MarketID != 0 && have.MarketID == f.MarketID || f.Name != "" && have.Name == f.Name)
		}
		if !same {
			continue
		}
		if have.Kind == FeatureStation {
			f.Kind, f.Docked, f.StationType = have.Kind, have.Docked, have.StationType
		}
		if f.MarketID == 0 {
			f.MarketID = have.MarketID
		}
		list[i] = f
		return list
	}
	return append(list, f)
}

func floatsEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
