package webrequest

import (
	"context"
)

// Handler is the hook installed into a host for one event type.
// For callback events it returns exactly one decision, for
// notification events it returns nil.
type Handler func(ctx context.Context, rec *Record) (*Decision, error)

// Host is the networking stack offering exactly one hook
// per event type. Install replaces a hook already installed
// for the event type.
// Implementations must not call back into the registry
// from Install or Uninstall.
type Host interface {
	Install(event EventType, urls []string, digest string, h Handler)
	Uninstall(event EventType)
}

// Executor runs notification invocations.
type Executor interface {
	Execute(f func())
}

type ExecutorFunc func(f func())

func (e ExecutorFunc) Execute(f func()) {
	e(f)
}

// GoExecutor runs every invocation in its own goroutine.
var GoExecutor Executor = ExecutorFunc(func(f func()) { go f() })

type nohost struct{}

func (nohost) Install(EventType, []string, string, Handler) {}
func (nohost) Uninstall(EventType)                          {}
