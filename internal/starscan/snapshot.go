package starscan

import (
	"slices"
)

// Snapshot returns the system as nested maps and slices of plain values,
// ready for JSON or YAML encoding. The copy is taken under the lock.
func (s *SystemNode) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.countsLocked()

	signals := make([]map[string]any, 0, len(s.signals))
	for _, sig := range s.signals {
		m := map[string]any{"name": sig.SignalName, "type": sig.SignalType}
		if sig.SignalNameLocalised != "" {
			m["name"] = sig.SignalNameLocalised
		}
		if sig.IsStation {
			m["station"] = true
		}
		signals = append(signals, m)
	}
	stations := make([]map[string]any, 0, len(s.stations))
	for _, st := range s.stations {
		stations = append(stations, map[string]any{
			"name":              st.Name,
			"type":              st.Type,
			"market_id":         st.MarketID,
			"dist_from_star_ls": st.DistFromStarLS,
		})
	}

	return map[string]any{
		"name":    s.name,
		"address": s.address,
		"names":   slices.Clone(s.names),
		"counts": map[string]any{
			"body_count":       counts.BodyCount,
			"non_body_count":   counts.NonBodyCount,
			"progress":         counts.Progress,
			"all_bodies_found": counts.AllBodiesFound,
			"scanned":          counts.Scanned,
			"mapped":           counts.Mapped,
		},
		"structure_generation": s.structureGen.Load(),
		"payload_generation":   s.payloadGen.Load(),
		"signals":              signals,
		"stations":             stations,
		"tree":                 s.nodeMap(s.tree.Root()),
	}
}

func (s *SystemNode) nodeMap(h Handle) map[string]any {
	n := s.tree.node(h)
	m := map[string]any{
		"name":  n.OwnName,
		"class": n.Class.String(),
		"id":    n.BodyID,
	}
	if n.CanonicalName != "" {
		m["canonical_name"] = n.CanonicalName
	}
	if n.FDName != "" && n.FDName != n.CanonicalName {
		m["fd_name"] = n.FDName
	}
	if sc := n.Scan; sc != nil {
		scan := map[string]any{
			"distance_ls":    sc.DistanceFromArrivalLS,
			"was_discovered": sc.WasDiscovered,
			"was_mapped":     sc.WasMapped,
		}
		if sc.StarType != "" {
			scan["star_type"] = sc.StarType
			scan["subclass"] = sc.Subclass
			scan["luminosity"] = sc.Luminosity
		}
		if sc.PlanetClass != "" {
			scan["planet_class"] = sc.PlanetClass
			scan["atmosphere"] = sc.Atmosphere
			scan["terraform_state"] = sc.TerraformState
			scan["landable"] = sc.Landable
		}
		if sma, ok := n.SemiMajorAxis(); ok {
			scan["semi_major_axis"] = sma
		}
		m["scan"] = scan
	} else if sma, ok := n.SemiMajorAxis(); ok {
		m["semi_major_axis"] = sma
	}
	if n.Ring != nil {
		m["ring"] = map[string]any{"class": n.Ring.RingClass, "inner_rad": n.Ring.InnerRad, "outer_rad": n.Ring.OuterRad}
	}
	if len(n.orbiters) > 0 {
		m["orbiters"] = n.Orbiters()
	}
	if len(n.Signals) > 0 {
		sigs := make(map[string]any, len(n.Signals))
		for _, sig := range n.Signals {
			name := sig.TypeLocalised
			if name == "" {
				name = sig.Type
			}
			sigs[name] = sig.Count
		}
		m["signals"] = sigs
	}
	if len(n.Genuses) > 0 {
		var g []string
		for _, ge := range n.Genuses {
			g = append(g, firstNonEmpty(ge.GenusLocalised, ge.Genus))
		}
		m["genuses"] = g
	}
	if len(n.Organics) > 0 {
		var o []map[string]any
		for _, org := range n.Organics {
			o = append(o, map[string]any{
				"scan_type": org.ScanType,
				"species":   firstNonEmpty(org.SpeciesLocalised, org.Species),
				"variant":   org.Variant,
			})
		}
		m["organics"] = o
	}
	if len(n.Codex) > 0 {
		var c []string
		for _, e := range n.Codex {
			c = append(c, firstNonEmpty(e.NameLocalised, e.Name))
		}
		m["codex"] = c
	}
	if len(n.Features) > 0 {
		var f []map[string]any
		for _, feat := range n.Features {
			fm := map[string]any{"kind": string(feat.Kind), "name": feat.Name}
			if feat.Latitude != nil && feat.Longitude != nil {
				fm["latitude"], fm["longitude"] = *feat.Latitude, *feat.Longitude
			}
			if feat.Docked {
				fm["docked"] = true
				fm["station_type"] = feat.StationType
			}
			f = append(f, fm)
		}
		m["features"] = f
	}
	if n.Mapped {
		m["mapped"] = true
		m["efficiently_mapped"] = n.EfficientlyMapped
	}
	if len(n.children) > 0 {
		children := make([]map[string]any, 0, len(n.children))
		for _, c := range n.children {
			children = append(children, s.nodeMap(c))
		}
		m["children"] = children
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
