package starscan

import (
	"slices"

	"elite-starscan/internal/journal"
)

// PendingQueue holds events whose target body was not in the tree when they
// arrived, keyed by system address and kept in arrival order. It is not
// safe for concurrent use; the Registry lock guards it.
type PendingQueue struct {
	byAddress map[int64][]journal.Event
}

func newPendingQueue() *PendingQueue {
	return &PendingQueue{byAddress: make(map[int64][]journal.Event)}
}

func (q *PendingQueue) add(address int64, ev journal.Event) {
	q.byAddress[address] = append(q.byAddress[address], ev)
}

// take removes and returns the queue of one system.
func (q *PendingQueue) take(address int64) []journal.Event {
	evs := q.byAddress[address]
	delete(q.byAddress, address)
	return evs
}

// restore puts unresolved events back ahead of any queued meanwhile.
func (q *PendingQueue) restore(address int64, evs []journal.Event) {
	if len(evs) == 0 {
		return
	}
	q.byAddress[address] = append(slices.Clip(evs), q.byAddress[address]...)
}

// Len returns the queue length of one system.
func (q *PendingQueue) Len(address int64) int { return len(q.byAddress[address]) }

// Total returns the number of queued events.
func (q *PendingQueue) Total() int {
	n := 0
	for _, evs := range q.byAddress {
		n += len(evs)
	}
	return n
}

// Addresses returns the systems with queued events, sorted.
func (q *PendingQueue) Addresses() []int64 {
	out := make([]int64, 0, len(q.byAddress))
	for a := range q.byAddress {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
