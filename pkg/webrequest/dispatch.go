package webrequest

import (
	"context"
	"runtime/debug"
)

// PendingInvocation is the deferred execution of one listener
// for one record. It is executed only if a resolver calls Invoke.
type PendingInvocation struct {
	Context Context

	listener *Listener
	record   *Record
}

func (p *PendingInvocation) ListenerID() string {
	return p.listener.ID
}

// Invoke executes the listener action on a private copy of the record.
// Errors and panics of the action are reported as
// *ListenerInvocationFailure.
func (p *PendingInvocation) Invoke(ctx context.Context) (d *Decision, err error) {
	rec := p.record.Copy()
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = &ListenerInvocationFailure{
				ListenerID: p.listener.ID,
				Order:      p.Context.Order,
				Panic:      r,
				Stack:      debug.Stack(),
			}
		}
	}()

	d, err = p.listener.action(ctx, rec)
	if err != nil {
		return nil, &ListenerInvocationFailure{
			ListenerID: p.listener.ID,
			Order:      p.Context.Order,
			Cause:      err,
		}
	}
	if d == nil && p.listener.Event.HasCallback() {
		d = p.record.Forward()
	}
	return d, nil
}

// Handler provides the hook handler for an event type.
func (r *Registry) Handler(event EventType) Handler {
	return func(ctx context.Context, rec *Record) (*Decision, error) {
		return r.Dispatch(ctx, event, rec)
	}
}

// Dispatch handles a record delivered by the host.
// For callback events the decision of the resolver is returned
// as it is, records matching no listener are forwarded unchanged.
// For notification events all matching listeners are started
// via the executor and nil is returned.
func (r *Registry) Dispatch(ctx context.Context, event EventType, rec *Record) (*Decision, error) {
	matched, resolver, ok := r.snapshot(event, rec.URL)
	if !ok {
		go r.dropStaleHook(event)
		return r.forward(event, rec), nil
	}
	if len(matched) == 0 {
		r.log.Trace("no listener for {{event}} matches {{url}}", "event", event, "url", rec.URL)
		return r.forward(event, rec), nil
	}

	candidates := make([]*PendingInvocation, len(matched))
	for i, l := range matched {
		candidates[i] = &PendingInvocation{
			Context:  l.Context,
			listener: l,
			record:   rec,
		}
	}

	if !event.HasCallback() {
		nctx := context.WithoutCancel(ctx)
		for _, p := range candidates {
			r.executor.Execute(func() {
				if _, err := p.Invoke(nctx); err != nil {
					r.log.Debug("notification {{event}} for {{url}}: {{error}}", "event", event, "url", rec.URL, "error", err)
				}
			})
		}
		return nil, nil
	}

	if resolver == nil {
		resolver = DefaultResolver
	}
	r.log.Trace("resolving {{amount}} listeners for {{event}} on {{url}}", "amount", len(candidates), "event", event, "url", rec.URL)
	d, err := resolver(ctx, candidates)
	if err == nil && d == nil {
		d = rec.Forward()
	}
	return d, err
}

func (r *Registry) forward(event EventType, rec *Record) *Decision {
	if event.HasCallback() {
		return rec.Forward()
	}
	return nil
}
