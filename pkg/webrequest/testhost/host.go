package testhost

import (
	"context"
	"slices"
	"sync"

	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Hook is the currently installed hook for an event type.
type Hook struct {
	URLs    []string
	Digest  string
	Handler webrequest.Handler
}

// Call is a recorded Install (URLs != nil) or Uninstall call.
type Call struct {
	Event webrequest.EventType
	URLs  []string
}

// Host is an in-memory host recording the hook
// changes and delivering records to the installed hooks.
type Host struct {
	lock  sync.Mutex
	hooks map[webrequest.EventType]*Hook
	calls []Call
}

var _ webrequest.Host = (*Host)(nil)

func New() *Host {
	return &Host{hooks: map[webrequest.EventType]*Hook{}}
}

func (h *Host) Install(event webrequest.EventType, urls []string, digest string, handler webrequest.Handler) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.hooks[event] = &Hook{URLs: slices.Clone(urls), Digest: digest, Handler: handler}
	h.calls = append(h.calls, Call{Event: event, URLs: slices.Clone(urls)})
}

func (h *Host) Uninstall(event webrequest.EventType) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.hooks, event)
	h.calls = append(h.calls, Call{Event: event})
}

// Hook provides the installed hook, or nil.
func (h *Host) Hook(event webrequest.EventType) *Hook {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.hooks[event]
}

func (h *Host) Calls() []Call {
	h.lock.Lock()
	defer h.lock.Unlock()
	return slices.Clone(h.calls)
}

func (h *Host) LastCall() *Call {
	h.lock.Lock()
	defer h.lock.Unlock()
	if len(h.calls) == 0 {
		return nil
	}
	c := h.calls[len(h.calls)-1]
	return &c
}

func (h *Host) Reset() {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.calls = nil
}

// Deliver sends a record to the installed hook. The second result
// is false if no hook is installed for the event type.
func (h *Host) Deliver(ctx context.Context, event webrequest.EventType, rec *webrequest.Record) (*webrequest.Decision, bool, error) {
	hook := h.Hook(event)
	if hook == nil {
		return nil, false, nil
	}
	d, err := hook.Handler(ctx, rec)
	return d, true, err
}
