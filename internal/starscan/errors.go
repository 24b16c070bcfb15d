package starscan

import (
	"errors"
	"fmt"
)

// Outcome is the result of feeding one event to the engine.
type Outcome int

const (
	// Applied means the event changed or confirmed the tree.
	Applied Outcome = iota
	// Deferred means the target body is not known yet; the event is queued.
	Deferred
	// Rejected means the event contradicts itself and was dropped.
	Rejected
	// Ignored means the event carries nothing the tree records.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Deferred:
		return "deferred"
	case Rejected:
		return "rejected"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// ErrRejected is wrapped by every RejectError.
var ErrRejected = errors.New("evidence rejected")

// errConflict signals evidence that cannot be reconciled with the current
// tree. The engine turns it into a Clear for legacy-built systems or a
// rejection otherwise; it never reaches callers.
var errConflict = errors.New("structural conflict")

// RejectError describes why an event was dropped.
type RejectError struct {
	Event  string
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Event, e.Reason)
}

func (e *RejectError) Unwrap() error { return ErrRejected }

func reject(event, format string, args ...any) *RejectError {
	return &RejectError{Event: event, Reason: fmt.Sprintf(format, args...)}
}
