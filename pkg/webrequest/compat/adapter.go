package compat

import (
	"context"
	"fmt"

	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Adapter offers the loosely typed registration methods known from
// the per-event hook functions of a host. Every method accepts
//
//   - no argument: all listeners of the event are removed
//   - (action)
//   - (filter, action)
//   - (action, context)
//   - (filter, action, context)
//
// For the shapes with an action the created listener is returned.
type Adapter struct {
	registry *webrequest.Registry
}

func New(r *webrequest.Registry) *Adapter {
	return &Adapter{registry: r}
}

func (a *Adapter) Registry() *webrequest.Registry {
	return a.registry
}

func (a *Adapter) OnBeforeRequest(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnBeforeRequest, args...)
}

func (a *Adapter) OnBeforeSendHeaders(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnBeforeSendHeaders, args...)
}

func (a *Adapter) OnHeadersReceived(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnHeadersReceived, args...)
}

func (a *Adapter) OnSendHeaders(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnSendHeaders, args...)
}

func (a *Adapter) OnResponseStarted(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnResponseStarted, args...)
}

func (a *Adapter) OnBeforeRedirect(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnBeforeRedirect, args...)
}

func (a *Adapter) OnCompleted(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnCompleted, args...)
}

func (a *Adapter) OnErrorOccurred(args ...any) (*webrequest.Listener, error) {
	return a.Alias(webrequest.OnErrorOccurred, args...)
}

// Alias handles a registration call for the given event type.
func (a *Adapter) Alias(event webrequest.EventType, args ...any) (*webrequest.Listener, error) {
	if !event.IsValid() {
		return nil, fmt.Errorf("%w: %q", webrequest.ErrUnknownEventType, event)
	}
	c, err := parseArguments(event, args)
	if err != nil {
		return nil, err
	}
	if c.unbind {
		a.registry.Clear(event)
		return nil, nil
	}
	return a.registry.Add(event, c.filter, c.action, c.context)
}

type call struct {
	unbind  bool
	filter  webrequest.Filter
	action  webrequest.Action
	context webrequest.Context
}

func parseArguments(event webrequest.EventType, args []any) (*call, error) {
	shapeError := func(reason string) error {
		return &ArgumentShapeError{Event: event, Count: len(args), Reason: reason}
	}

	c := &call{filter: webrequest.AllURLs()}
	var ok bool
	var err error

	switch len(args) {
	case 0:
		c.unbind = true
	case 1:
		if c.action = toAction(args[0]); c.action == nil {
			return nil, shapeError("no listener function given")
		}
	case 2:
		if c.action = toAction(args[1]); c.action != nil {
			if c.filter, ok = toFilter(args[0]); ok {
				break
			}
		}
		if c.action = toAction(args[0]); c.action != nil {
			if c.context, ok, err = toContext(args[1]); ok {
				break
			}
			if err != nil {
				return nil, shapeError(err.Error())
			}
		}
		return nil, shapeError("argument 1 should be a filter or the listener function")
	case 3:
		if c.filter, ok = toFilter(args[0]); !ok {
			return nil, shapeError("argument 1 should be a filter")
		}
		if c.action = toAction(args[1]); c.action == nil {
			return nil, shapeError("argument 2 should be the listener function")
		}
		if c.context, ok, err = toContext(args[2]); !ok {
			if err != nil {
				return nil, shapeError(err.Error())
			}
			return nil, shapeError("argument 3 should be a context")
		}
	default:
		return nil, shapeError("too many arguments")
	}
	return c, nil
}

func toAction(o any) webrequest.Action {
	switch f := o.(type) {
	case webrequest.Action:
		return f
	case func(context.Context, *webrequest.Record) (*webrequest.Decision, error):
		return f
	case func(*webrequest.Record) *webrequest.Decision:
		if f == nil {
			return nil
		}
		return func(ctx context.Context, rec *webrequest.Record) (*webrequest.Decision, error) {
			return f(rec), nil
		}
	case func(*webrequest.Record):
		if f == nil {
			return nil
		}
		return func(ctx context.Context, rec *webrequest.Record) (*webrequest.Decision, error) {
			f(rec)
			return nil, nil
		}
	}
	return nil
}

func toFilter(o any) (webrequest.Filter, bool) {
	switch f := o.(type) {
	case webrequest.Filter:
		return f, true
	case *webrequest.Filter:
		if f != nil {
			return *f, true
		}
	case []string:
		return webrequest.Filter{URLs: f}, true
	}
	return webrequest.Filter{}, false
}

func toContext(o any) (webrequest.Context, bool, error) {
	switch c := o.(type) {
	case webrequest.Context:
		return c, true, nil
	case *webrequest.Context:
		if c != nil {
			return *c, true, nil
		}
		return webrequest.Context{}, true, nil
	case map[string]any:
		var r webrequest.Context
		for k, v := range c {
			switch k {
			case "priority":
				p, err := toFloat(v)
				if err != nil {
					return r, false, fmt.Errorf("context priority: %w", err)
				}
				r.Priority = &p
			case "origin":
				s, ok := v.(string)
				if !ok {
					return r, false, fmt.Errorf("context origin must be a string, found %T", v)
				}
				r.Origin = s
			case "order":
				// always assigned by the registry
			default:
				return r, false, fmt.Errorf("unknown context key %q", k)
			}
		}
		return r, true, nil
	}
	return webrequest.Context{}, false, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("number expected, found %T", v)
}
