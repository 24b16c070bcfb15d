package starscan

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"elite-starscan/internal/journal"
)

// Registry maps system addresses and names to SystemNodes and owns the
// pending queue. Its lock is never held while a SystemNode lock is taken.
type Registry struct {
	mu        sync.Mutex
	byAddress map[int64]*SystemNode
	byName    map[string]*SystemNode
	pending   *PendingQueue
	seq       uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAddress: make(map[int64]*SystemNode),
		byName:    make(map[string]*SystemNode),
		pending:   newPendingQueue(),
	}
}

func nameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func compositeKey(name string, address int64) string {
	return nameKey(name) + ":" + strconv.FormatInt(address, 10)
}

// GetOrAdd returns the system ref designates, creating it when unknown.
// An address wins over a name: a known address with a new name is a rename,
// and a known name with a new address is a distinct system sharing the
// display name. Both are then keyed by "name:address". A ref with neither
// address nor name yields nil.
func (r *Registry) GetOrAdd(ref journal.SystemRef) *SystemNode {
	if ref.IsZero() {
		return nil
	}
	s, name, addr := r.getOrAdd(ref)
	if name != "" || addr != 0 {
		s.setIdentity(name, addr)
	}
	return s
}

// getOrAdd does the map work under the registry lock and returns the
// identity change to apply to the node once the lock is released.
func (r *Registry) getOrAdd(ref journal.SystemRef) (*SystemNode, string, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ref.Address != 0 {
		if s, ok := r.byAddress[ref.Address]; ok {
			if ref.Name == "" || strings.EqualFold(s.regName, ref.Name) {
				return s, "", 0
			}
			key := nameKey(ref.Name)
			if other, ok := r.byName[key]; ok && other != s {
				key = compositeKey(ref.Name, ref.Address)
			}
			r.byName[key] = s
			s.regName = ref.Name
			return s, ref.Name, 0
		}
		if ref.Name == "" {
			return r.addLocked(ref, ""), "", 0
		}
		key := nameKey(ref.Name)
		if s, ok := r.byName[key]; ok {
			if s.regAddress == 0 {
				s.regAddress = ref.Address
				r.byAddress[ref.Address] = s
				return s, "", ref.Address
			}
			delete(r.byName, key)
			r.byName[compositeKey(s.regName, s.regAddress)] = s
			return r.addLocked(ref, compositeKey(ref.Name, ref.Address)), "", 0
		}
		if r.hasCompositeLocked(key) {
			return r.addLocked(ref, compositeKey(ref.Name, ref.Address)), "", 0
		}
		return r.addLocked(ref, key), "", 0
	}

	key := nameKey(ref.Name)
	if s, ok := r.byName[key]; ok {
		return s, "", 0
	}
	if s := r.latestCompositeLocked(key); s != nil {
		return s, "", 0
	}
	return r.addLocked(ref, key), "", 0
}

func (r *Registry) addLocked(ref journal.SystemRef, key string) *SystemNode {
	r.seq++
	s := newSystem(ref, r.seq)
	if ref.Address != 0 {
		r.byAddress[ref.Address] = s
	}
	if key != "" {
		r.byName[key] = s
	}
	return s
}

func (r *Registry) hasCompositeLocked(key string) bool {
	return r.latestCompositeLocked(key) != nil
}

// latestCompositeLocked resolves a bare name against "name:address" keys,
// preferring the most recently registered system.
func (r *Registry) latestCompositeLocked(key string) *SystemNode {
	var best *SystemNode
	prefix := key + ":"
	for k, s := range r.byName {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if _, err := strconv.ParseInt(k[len(prefix):], 10, 64); err != nil {
			continue
		}
		if best == nil || s.seq > best.seq {
			best = s
		}
	}
	return best
}

// Lookup finds a system without creating it. A name may be given bare or
// in "name:address" form.
func (r *Registry) Lookup(ref journal.SystemRef) (*SystemNode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref.Address != 0 {
		s, ok := r.byAddress[ref.Address]
		return s, ok
	}
	if ref.Name == "" {
		return nil, false
	}
	key := nameKey(ref.Name)
	if s, ok := r.byName[key]; ok {
		return s, true
	}
	s := r.latestCompositeLocked(key)
	return s, s != nil
}

// Systems returns every registered system in registration order.
func (r *Registry) Systems() []*SystemNode {
	r.mu.Lock()
	seen := make(map[*SystemNode]bool, len(r.byAddress)+len(r.byName))
	out := make([]*SystemNode, 0, len(seen))
	for _, s := range r.byAddress {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range r.byName {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Len returns the number of registered systems.
func (r *Registry) Len() int { return len(r.Systems()) }

// PendingCount returns the number of events waiting for bodies of the
// system at address.
func (r *Registry) PendingCount(address int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.Len(address)
}

// PendingTotal returns the number of queued events across all systems.
func (r *Registry) PendingTotal() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.Total()
}

func (r *Registry) deferEvent(address int64, ev journal.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending.add(address, ev)
}

func (r *Registry) takePending(address int64) []journal.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.take(address)
}

func (r *Registry) restorePending(address int64, evs []journal.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending.restore(address, evs)
}

// pendingSystems returns the systems that have queued events.
func (r *Registry) pendingSystems() []*SystemNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*SystemNode
	for _, addr := range r.pending.Addresses() {
		if s, ok := r.byAddress[addr]; ok {
			out = append(out, s)
		}
	}
	return out
}
