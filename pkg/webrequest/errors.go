package webrequest

import (
	"errors"
	"fmt"
)

var ErrUnknownEventType = errors.New("unknown event type")

var ErrNoCandidates = errors.New("no candidates to resolve")

// ResolverTargetWarning is reported when a resolver cannot be set
// for an event type or replaces an existing one.
type ResolverTargetWarning struct {
	Event  EventType
	Reason string
}

func (w *ResolverTargetWarning) Error() string {
	return fmt.Sprintf("resolver for %q: %s", w.Event, w.Reason)
}

// ListenerInvocationFailure describes a failed execution of a
// listener action. It is never raised by the dispatch, but handed
// to the resolver.
type ListenerInvocationFailure struct {
	ListenerID string
	Order      int64
	Cause      error
	Panic      any
	Stack      []byte
}

func (f *ListenerInvocationFailure) Error() string {
	if f.Panic != nil {
		return fmt.Sprintf("listener %s (order %d) panicked: %v", f.ListenerID, f.Order, f.Panic)
	}
	return fmt.Sprintf("listener %s (order %d) failed: %s", f.ListenerID, f.Order, f.Cause)
}

func (f *ListenerInvocationFailure) Unwrap() error {
	return f.Cause
}
