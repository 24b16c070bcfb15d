package starscan

import (
	"reflect"
	"slices"
	"strings"

	"elite-starscan/internal/journal"
)

// level is one step of a placement descent from the root towards the
// scanned body.
type level struct {
	id          int
	name        string
	class       BodyClass
	canonical   string // game name this level stands for, "" when unknown
	placeholder bool
	modern      bool // evidence carries ids; misplaced nodes are moved
	starAlias   bool // "Main Star" and "Unknown Star" name the same body
	leaf        bool
}

// reconciler applies one piece of placement evidence to a tree.
type reconciler struct {
	t          *Tree
	systemName string
	structural bool
	payload    bool
}

func newReconciler(t *Tree, systemName string) *reconciler {
	return &reconciler{t: t, systemName: systemName}
}

// scanLevels picks the descent for a scan and reports whether it follows a
// parent chain. A scan with an id but no chain goes through name inference
// and keeps its id; the main body named after the system has nothing to infer.
func scanLevels(sc *journal.Scan, systemName string) ([]level, level, bool) {
	if sc.HasParentChain() {
		levels, leaf := modernLevels(sc, systemName)
		return levels, leaf, true
	}
	if sc.BodyID != nil && len(SplitName(SubName(sc.BodyName, systemName))) == 0 {
		levels, leaf := modernLevels(sc, systemName)
		return levels, leaf, true
	}
	levels, leaf := legacyLevels(sc, systemName)
	if sc.BodyID != nil {
		leaf.id = *sc.BodyID
	}
	return levels, leaf, false
}

// modernLevels builds the descent for a scan that reports a parent chain.
func modernLevels(sc *journal.Scan, systemName string) ([]level, level) {
	segs := SplitName(SubName(sc.BodyName, systemName))
	names := Align(sc.Parents, segs)

	levels := make([]level, 0, len(sc.Parents))
	var text []string
	above := ClassSystem
	for i := len(sc.Parents) - 1; i >= 0; i-- {
		p := sc.Parents[i]
		name := names[len(sc.Parents)-1-i]
		lv := level{
			id:          p.ID,
			name:        name,
			class:       classFromParent(p.Type, above),
			placeholder: IsPlaceholderName(name),
			modern:      true,
		}
		if lv.class == ClassBeltCluster {
			lv.name = beltClusterName(lv.name)
		}
		if !lv.placeholder {
			text = append(text, lv.name)
			lv.canonical = joinName(systemName, text)
		}
		lv.starAlias = lv.class == ClassStar && lv.name == UnknownStarName
		levels = append(levels, lv)
		above = lv.class
	}

	leaf := level{
		id:        *sc.BodyID,
		name:      names[len(names)-1],
		class:     classFromScan(sc),
		canonical: sc.BodyName,
		modern:    true,
		leaf:      true,
	}
	if leaf.name == "" {
		leaf.name, leaf.starAlias = mainBodyName(sc, leaf.class)
	}
	return levels, leaf
}

// legacyLevels builds the descent for a scan without body ids. A chain that
// does not open with a star or barycentre designation hangs from an
// implicit star.
func legacyLevels(sc *journal.Scan, systemName string) ([]level, level) {
	segs := SplitName(SubName(sc.BodyName, systemName))
	leaf := level{
		id:        AutoPlacedID,
		class:     classFromScan(sc),
		canonical: sc.BodyName,
		leaf:      true,
	}
	if len(segs) == 0 {
		leaf.name, leaf.starAlias = mainBodyName(sc, leaf.class)
		return nil, leaf
	}

	var levels []level
	if !isStarDesignator(segs[0]) && !IsBarycentreName(segs[0]) {
		levels = append(levels, level{
			id:          AutoPlacedID,
			name:        UnknownStarName,
			class:       ClassStar,
			placeholder: true,
			starAlias:   true,
		})
	}
	var text []string
	for _, seg := range segs[:len(segs)-1] {
		lv := level{id: AutoPlacedID, name: seg, class: guessClass(seg)}
		if lv.class == ClassBeltCluster {
			lv.name = beltClusterName(seg)
			lv.id = AutoPlacedBeltClusterID
		}
		text = append(text, lv.name)
		lv.canonical = joinName(systemName, text)
		levels = append(levels, lv)
	}
	leaf.name = segs[len(segs)-1]
	return levels, leaf
}

func mainBodyName(sc *journal.Scan, class BodyClass) (string, bool) {
	if class == ClassStar {
		return MainStarName, true
	}
	return sc.BodyName, false
}

func joinName(systemName string, parts []string) string {
	return strings.TrimSpace(systemName + " " + strings.Join(parts, " "))
}

// place walks the levels from the root and returns the leaf's handle.
func (r *reconciler) place(levels []level, leaf level) (Handle, error) {
	cur := r.t.Root()
	for _, lv := range levels {
		h, err := r.resolve(cur, lv)
		if err != nil {
			return NoHandle, err
		}
		cur = h
	}
	return r.resolve(cur, leaf)
}

// resolve makes sure a node for lv exists directly under parent: it locates
// the node by id, by game name or by own name, creates it when absent, and
// moves, re-ids, renames and reclassifies it when the evidence says so.
// Modern evidence moves a misplaced node together with its subtree; legacy
// evidence adopts a node wherever it already sits.
func (r *reconciler) resolve(parent Handle, lv level) (Handle, error) {
	h := r.locate(parent, lv)
	if h == NoHandle {
		h = r.t.newNode(parent, lv.name, lv.id, lv.class)
		r.structural = true
		return h, nil
	}

	n := r.t.node(h)
	if n.parent != parent {
		if !lv.modern {
			return h, nil
		}
		if r.t.isAncestorOrSelf(h, parent) {
			return NoHandle, errConflict
		}
		r.move(h, parent)
	}

	if lv.id >= 0 && n.BodyID != lv.id {
		if n.BodyID >= 0 {
			return NoHandle, errConflict
		}
		r.t.setID(h, lv.id)
		r.structural = true
	}

	frozen := n.Class == ClassBarycentre && len(n.orbiters) > 0
	if lv.name != "" && lv.name != n.OwnName && !lv.placeholder && !frozen {
		r.t.rename(h, lv.name)
		r.structural = true
	}

	if n.Class != lv.class && (lv.modern || (lv.leaf && n.IsAutoPlaced())) && classCompatible(n.Class, lv.class, true) {
		n.Class = lv.class
		r.structural = true
	}

	if lv.modern {
		r.absorbDuplicates(n.parent, h)
	}
	return h, nil
}

// locate finds the existing node lv stands for, or NoHandle.
func (r *reconciler) locate(parent Handle, lv level) Handle {
	if lv.id >= 0 {
		if h, ok := r.t.byID[lv.id]; ok {
			return h
		}
	}
	accept := func(n *BodyNode) bool {
		if lv.modern && !n.IsAutoPlaced() {
			return false
		}
		return classCompatible(n.Class, lv.class, n.IsAutoPlaced())
	}
	if lv.canonical != "" {
		if h := r.findCanonical(lv.canonical, accept); h != NoHandle {
			return h
		}
	}
	if h := r.t.childNamed(parent, lv.name, accept); h != NoHandle {
		return h
	}
	if lv.class == ClassBarycentre && IsBarycentreName(lv.name) {
		if h := r.baryByOrbiters(parent, lv.name); h != NoHandle {
			return h
		}
	}
	if lv.starAlias {
		for _, alias := range []string{UnknownStarName, MainStarName} {
			if alias == lv.name {
				continue
			}
			if h := r.t.childNamed(parent, alias, accept); h != NoHandle {
				return h
			}
		}
	}
	return NoHandle
}

// baryByOrbiters finds a barycentre under parent whose known orbiters are
// all stars named in the designation, e.g. "BC of A, B" for "AB".
func (r *reconciler) baryByOrbiters(parent Handle, designation string) Handle {
	for _, c := range r.t.node(parent).children {
		n := r.t.node(c)
		if n.Class != ClassBarycentre || len(n.orbiters) == 0 {
			continue
		}
		all := true
		for _, o := range n.orbiters {
			if !isStarDesignator(o) || !strings.Contains(designation, o) {
				all = false
				break
			}
		}
		if all {
			return c
		}
	}
	return NoHandle
}

// findCanonical searches the whole tree for a node carrying, or positioned
// to carry, the given game name.
func (r *reconciler) findCanonical(name string, accept func(*BodyNode) bool) Handle {
	found := NoHandle
	r.t.Walk(r.t.Root(), func(h Handle, n *BodyNode) bool {
		if n.Class == ClassSystem || (accept != nil && !accept(n)) {
			return true
		}
		have := n.CanonicalName
		if have == "" {
			have = r.t.derivedName(h, r.systemName)
		}
		if strings.EqualFold(have, name) {
			found = h
			return false
		}
		return true
	})
	return found
}

// move reparents h, carrying its subtree, and collapses any auto-placed
// ancestors the move left empty.
func (r *reconciler) move(h, newParent Handle) {
	old := r.t.node(h).parent
	r.t.detach(h)
	r.t.attach(newParent, h)
	r.collapse(old)
	r.structural = true
}

// collapse removes empty, evidence-free auto-placed nodes from h upwards.
func (r *reconciler) collapse(h Handle) {
	for h != NoHandle && h != r.t.Root() {
		n := r.t.node(h)
		if !n.IsAutoPlaced() || len(n.children) > 0 || n.HasPayload() {
			return
		}
		p := n.parent
		r.t.remove(h)
		r.structural = true
		h = p
	}
}

// absorbDuplicates folds auto-placed siblings that stand for the same body
// as h into h. Their children are re-attached to h as orphans.
func (r *reconciler) absorbDuplicates(parent, h Handle) {
	if parent == NoHandle {
		return
	}
	n := r.t.node(h)
	for _, c := range slices.Clone(r.t.node(parent).children) {
		if c == h {
			continue
		}
		s := r.t.node(c)
		if s.dead || !s.IsAutoPlaced() || !sameBody(n, s) {
			continue
		}
		r.mergeInto(h, c)
	}
}

func sameBody(a, b *BodyNode) bool {
	if !classCompatible(b.Class, a.Class, true) {
		return false
	}
	if a.OwnName == b.OwnName && !IsPlaceholderName(a.OwnName) {
		return true
	}
	star := func(s string) bool { return s == MainStarName || s == UnknownStarName }
	return a.Class == ClassStar && b.Class == ClassStar && star(a.OwnName) && star(b.OwnName)
}

// mergeInto moves src's children and evidence onto dst and removes src.
// Children that collide by name with one of dst's are merged recursively.
func (r *reconciler) mergeInto(dst, src Handle) {
	d, s := r.t.node(dst), r.t.node(src)
	for _, c := range slices.Clone(s.children) {
		cn := r.t.node(c)
		twin := r.t.childNamed(dst, cn.OwnName, func(o *BodyNode) bool {
			return (o.IsAutoPlaced() || cn.IsAutoPlaced()) && classCompatible(o.Class, cn.Class, true)
		})
		if twin != NoHandle && !IsPlaceholderName(cn.OwnName) {
			if cn.IsAutoPlaced() {
				r.mergeInto(twin, c)
			} else {
				r.mergeInto(c, twin)
				r.t.detach(c)
				r.t.attach(dst, c)
			}
			continue
		}
		orbiter, isOrbiter := s.orbiters[c]
		r.t.detach(c)
		r.t.attach(dst, c)
		if isOrbiter && d.Class == ClassBarycentre {
			if d.orbiters == nil {
				d.orbiters = make(map[Handle]string)
			}
			d.orbiters[c] = orbiter
			r.t.refreshBarycentreName(dst)
		}
	}

	if d.Scan == nil {
		d.Scan = s.Scan
	}
	if d.Barycentre == nil {
		d.Barycentre = s.Barycentre
	}
	if d.Ring == nil {
		d.Ring = s.Ring
	}
	if d.CanonicalName == "" {
		d.CanonicalName = s.CanonicalName
	}
	if d.FDName == "" {
		d.FDName = s.FDName
	}
	for _, c := range s.Codex {
		d.Codex = appendCodex(d.Codex, c)
	}
	for _, o := range s.Organics {
		d.Organics = appendOrganic(d.Organics, o)
	}
	for _, f := range s.Features {
		d.Features = upsertFeature(d.Features, f)
	}
	if len(d.Signals) == 0 {
		d.Signals = s.Signals
	}
	if len(d.Genuses) == 0 {
		d.Genuses = s.Genuses
	}
	d.Mapped = d.Mapped || s.Mapped
	d.EfficientlyMapped = d.EfficientlyMapped || s.EfficientlyMapped

	id := s.BodyID
	r.t.remove(src)
	if id >= 0 && d.BodyID < 0 {
		r.t.setID(dst, id)
	}
	r.structural = true
}

// attachScan stores the survey record on the leaf and places its rings.
func (r *reconciler) attachScan(h Handle, sc *journal.Scan, modern bool) {
	n := r.t.node(h)
	if !reflect.DeepEqual(n.Scan, sc) {
		n.Scan = sc
		r.payload = true
	}
	if n.CanonicalName != sc.BodyName {
		n.CanonicalName = sc.BodyName
		r.payload = true
	}
	if n.FDName == "" {
		n.FDName = sc.BodyName
	}
	if n.parent != NoHandle {
		r.t.sortChildren(n.parent)
		if modern && r.t.node(n.parent).Class == ClassBarycentre {
			if r.t.addOrbiter(n.parent, h) {
				r.structural = true
			}
		}
	}
	for _, ring := range sc.Rings {
		r.placeRing(h, sc.BodyName, ring)
	}
}

// placeRing creates or updates the node for one ring or belt of a body.
// Belts become belt-cluster nodes that later cluster-body scans hang from.
func (r *reconciler) placeRing(owner Handle, ownerName string, ring journal.Ring) {
	short := SubName(ring.Name, ownerName)
	if short == ring.Name {
		short = ring.Name[strings.LastIndex(ring.Name, " ")+1:]
	}
	name, class, id, canonical := short, ClassPlanetaryRing, AutoPlacedID, ring.Name
	if ring.IsBelt() {
		name, class, id, canonical = beltClusterName(short), ClassBeltCluster, AutoPlacedBeltClusterID, ring.Name+" Cluster"
	}

	h := r.t.childNamed(owner, name, func(n *BodyNode) bool { return n.Class == class })
	if h == NoHandle {
		h = r.findCanonical(canonical, func(n *BodyNode) bool { return n.Class == class })
	}
	if h == NoHandle {
		h = r.t.newNode(owner, name, id, class)
		r.structural = true
	}
	n := r.t.node(h)
	if n.Ring == nil || *n.Ring != ring {
		rc := ring
		n.Ring = &rc
		r.payload = true
	}
	if n.CanonicalName == "" {
		n.CanonicalName = canonical
	}
	if n.FDName == "" {
		n.FDName = ring.Name
	}
}
