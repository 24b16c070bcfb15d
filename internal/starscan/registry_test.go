package starscan

import (
	"slices"
	"testing"

	"elite-starscan/internal/journal"
)

func TestRegistry_DuplicateDisplayNames(t *testing.T) {
	r := NewRegistry()
	first := r.GetOrAdd(journal.SystemRef{Address: 1, Name: "Twin"})
	second := r.GetOrAdd(journal.SystemRef{Address: 2, Name: "Twin"})
	if first == second {
		t.Fatal("distinct addresses share a node")
	}
	if s, _ := r.Lookup(journal.SystemRef{Name: "Twin:1"}); s != first {
		t.Error("Twin:1 does not resolve to the first system")
	}
	if s, _ := r.Lookup(journal.SystemRef{Name: "twin:2"}); s != second {
		t.Error("twin:2 does not resolve to the second system")
	}
	if s, _ := r.Lookup(journal.SystemRef{Name: "Twin"}); s != second {
		t.Error("bare name does not resolve to the latest system")
	}
	if s := r.GetOrAdd(journal.SystemRef{Name: "Twin"}); s != second {
		t.Error("name-only sighting created or picked the wrong system")
	}

	third := r.GetOrAdd(journal.SystemRef{Address: 3, Name: "Twin"})
	if s, _ := r.Lookup(journal.SystemRef{Name: "Twin"}); s != third {
		t.Error("bare name does not follow the newest duplicate")
	}
	if got := r.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
}

func TestRegistry_NameOnlySightingAdoptsAddress(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrAdd(journal.SystemRef{Name: "Lonely"})
	if got := r.GetOrAdd(journal.SystemRef{Address: 7, Name: "Lonely"}); got != s {
		t.Fatal("address sighting did not adopt the named system")
	}
	if s.Address() != 7 {
		t.Errorf("Address = %d, want 7", s.Address())
	}
	if got, ok := r.Lookup(journal.SystemRef{Address: 7}); !ok || got != s {
		t.Error("address lookup failed")
	}
}

func TestRegistry_Rename(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrAdd(journal.SystemRef{Address: 9, Name: "Old"})
	if got := r.GetOrAdd(journal.SystemRef{Address: 9, Name: "New"}); got != s {
		t.Fatal("rename created a new system")
	}
	if s.Name() != "New" {
		t.Errorf("Name = %q", s.Name())
	}
	if got := s.Names(); !slices.Equal(got, []string{"Old", "New"}) {
		t.Errorf("Names = %q", got)
	}
	for _, name := range []string{"Old", "New"} {
		if got, _ := r.Lookup(journal.SystemRef{Name: name}); got != s {
			t.Errorf("Lookup(%q) missed", name)
		}
	}
}

func TestRegistry_AddressFirstThenName(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrAdd(journal.SystemRef{Address: 5})
	if s.Name() != "" {
		t.Errorf("Name = %q, want empty", s.Name())
	}
	r.GetOrAdd(journal.SystemRef{Address: 5, Name: "Named"})
	if got := s.Names(); !slices.Equal(got, []string{"Named"}) {
		t.Errorf("Names = %q", got)
	}
}

func TestRegistry_ZeroRef(t *testing.T) {
	r := NewRegistry()
	if s := r.GetOrAdd(journal.SystemRef{}); s != nil {
		t.Error("zero ref created a system")
	}
	if _, ok := r.Lookup(journal.SystemRef{}); ok {
		t.Error("zero ref found a system")
	}
}

func TestRegistry_SystemsInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var want []*SystemNode
	for i, name := range []string{"Sol", "Achenar", "Alioth"} {
		want = append(want, r.GetOrAdd(journal.SystemRef{Address: int64(i + 1), Name: name}))
	}
	if got := r.Systems(); !slices.Equal(got, want) {
		t.Errorf("Systems out of order")
	}
}

func TestPendingQueue_RestoreKeepsOrder(t *testing.T) {
	q := newPendingQueue()
	a := signals(1, 1, "a")
	b := signals(1, 2, "b")
	c := signals(1, 3, "c")
	q.add(1, a)
	q.add(1, b)
	taken := q.take(1)
	q.add(1, c)
	q.restore(1, taken[1:])
	got := q.take(1)
	if len(got) != 2 || got[0] != journal.Event(b) || got[1] != journal.Event(c) {
		t.Errorf("queue = %v, want [b c]", got)
	}
	if q.Total() != 0 {
		t.Errorf("Total = %d", q.Total())
	}
}
