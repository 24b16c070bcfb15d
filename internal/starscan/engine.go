package starscan

import (
	"errors"
	"fmt"

	"elite-starscan/internal/journal"
	"elite-starscan/internal/logger"
)

// Engine feeds journal events into a Registry of system trees. It is safe
// for concurrent use: events for different systems proceed in parallel,
// events for one system serialize on that system's lock.
type Engine struct {
	reg           *Registry
	replayOnTouch bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithReplayOnTouch controls whether queued events of a system are retried
// each time the system accepts new evidence. When off, only AssignPending
// retries them.
func WithReplayOnTouch(on bool) Option {
	return func(e *Engine) { e.replayOnTouch = on }
}

// WithRegistry makes the engine work on an existing registry.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.reg = r }
}

// NewEngine returns an engine with an empty registry.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{replayOnTouch: true}
	for _, o := range opts {
		o(e)
	}
	if e.reg == nil {
		e.reg = NewRegistry()
	}
	return e
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry { return e.reg }

// Process applies one event. Rejected events come back with a *RejectError;
// every other outcome has a nil error.
func (e *Engine) Process(ev journal.Event) (Outcome, error) {
	if ev == nil {
		return Ignored, nil
	}
	if err := validate(ev); err != nil {
		logger.Warn("EVENT", err.Error())
		return Rejected, err
	}

	sys := e.reg.GetOrAdd(ev.System())
	sys.mu.Lock()
	out, err := sys.apply(ev)
	addr := sys.address
	name := sys.name
	sys.mu.Unlock()

	switch out {
	case Rejected:
		logger.Warn("EVENT", err.Error())
		return Rejected, err
	case Deferred:
		if addr == 0 {
			err := reject(ev.Kind(), "target body unknown in %s and no system address to queue under", name)
			logger.Warn("EVENT", err.Error())
			return Rejected, err
		}
		e.reg.deferEvent(addr, ev)
		return Deferred, nil
	case Applied:
		if e.replayOnTouch {
			e.drain(sys)
		}
	}
	return out, nil
}

// ProcessAll applies events in order and returns how many ended in each
// outcome.
func (e *Engine) ProcessAll(evs []journal.Event) map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, ev := range evs {
		out, _ := e.Process(ev)
		counts[out]++
	}
	return counts
}

// AssignPending retries every queued event and returns how many resolved.
func (e *Engine) AssignPending() int {
	n := 0
	for _, sys := range e.reg.pendingSystems() {
		n += e.drain(sys)
	}
	return n
}

// drain retries a system's queued events until a pass resolves nothing.
// Events still unresolved go back ahead of any queued meanwhile.
func (e *Engine) drain(sys *SystemNode) int {
	addr := sys.Address()
	if addr == 0 {
		return 0
	}
	total := 0
	for {
		evs := e.reg.takePending(addr)
		if len(evs) == 0 {
			return total
		}
		var keep []journal.Event
		resolved := 0
		sys.mu.Lock()
		for _, ev := range evs {
			out, err := sys.apply(ev)
			switch {
			case out == Deferred:
				keep = append(keep, ev)
			case errors.Is(err, ErrRejected):
				logger.Warn("PENDING", fmt.Sprintf("dropping queued %s", err))
				resolved++
			default:
				resolved++
			}
		}
		sys.mu.Unlock()
		e.reg.restorePending(addr, keep)
		total += resolved
		if resolved == 0 {
			return total
		}
	}
}

// System looks up a system by "name", "name:address" or numeric address text.
func (e *Engine) System(key string) (*SystemNode, bool) {
	return e.reg.Lookup(ParseSystemKey(key))
}

// Systems returns every known system in registration order.
func (e *Engine) Systems() []*SystemNode { return e.reg.Systems() }
