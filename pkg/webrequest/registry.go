package webrequest

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mandelsoft/logging"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/webrequest/pkg/utils"
)

type bucket struct {
	listeners map[string]*Listener
	filters   sets.Set[string]
}

// sorted returns the listeners in registration order.
func (b *bucket) sorted() []*Listener {
	list := make([]*Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		list = append(list, l)
	}
	slices.SortFunc(list, compareOrder)
	return list
}

// Registry multiplexes any number of listeners per event type
// onto the single hook offered by a Host.
type Registry struct {
	lock     sync.RWMutex
	hostlock sync.Mutex

	host     Host
	log      logging.Logger
	executor Executor

	order         int64
	buckets       map[EventType]*bucket
	resolvers     map[EventType]Resolver
	resolverNames map[EventType]string
}

type Option func(r *Registry)

func WithLoggingContext(lctx logging.Context) Option {
	return func(r *Registry) {
		r.log = lctx.Logger(REALM)
	}
}

// WithExecutor sets the executor used for notification events.
func WithExecutor(e Executor) Option {
	return func(r *Registry) {
		r.executor = e
	}
}

func NewRegistry(host Host, opts ...Option) *Registry {
	r := &Registry{
		host:      utils.OptionalDefaulted[Host](nohost{}, host),
		log:       logging.DefaultContext().Logger(REALM),
		executor:  GoExecutor,
		buckets:   map[EventType]*bucket{},
		resolvers: map[EventType]Resolver{},

		resolverNames: map[EventType]string{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) nextOrder() int64 {
	r.order++
	return r.order
}

// Add registers a new listener for the given event type.
// The order of the given context is always replaced by the
// next order stamp of the registry.
func (r *Registry) Add(event EventType, filter Filter, action Action, ctx ...Context) (*Listener, error) {
	if !event.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, event)
	}
	if action == nil {
		return nil, fmt.Errorf("listener for %q: action required", event)
	}
	urls, matchers, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}

	r.hostlock.Lock()
	defer r.hostlock.Unlock()

	r.lock.Lock()
	lctx := utils.Optional(ctx...)
	lctx.Order = r.nextOrder()
	l := &Listener{
		ID:       uuid.NewString(),
		Event:    event,
		URLs:     urls,
		Context:  lctx,
		Created:  time.Now(),
		action:   action,
		matchers: matchers,
	}

	b := r.buckets[event]
	if b == nil {
		b = &bucket{listeners: map[string]*Listener{}}
		r.buckets[event] = b
	}
	b.listeners[l.ID] = l
	b.filters = MergeFilters(b.sorted()...)
	filters := b.filters.Clone()
	r.lock.Unlock()

	r.log.Info("added listener {{id}} for {{event}} (order {{order}})", "id", l.ID, "event", event, "order", l.Context.Order, "urls", l.URLs)
	r.install(event, filters)
	return l, nil
}

// Remove removes a listener. Unknown listeners are ignored.
// Removing the last listener of an event type is the same as
// clearing it.
func (r *Registry) Remove(event EventType, id string) {
	r.hostlock.Lock()
	defer r.hostlock.Unlock()

	r.lock.Lock()
	b := r.buckets[event]
	if b == nil || b.listeners[id] == nil {
		r.lock.Unlock()
		return
	}
	if len(b.listeners) == 1 {
		delete(r.buckets, event)
		r.lock.Unlock()
		r.log.Info("removed last listener {{id}} for {{event}}", "id", id, "event", event)
		r.uninstall(event)
		return
	}
	delete(b.listeners, id)
	b.filters = MergeFilters(b.sorted()...)
	filters := b.filters.Clone()
	r.lock.Unlock()

	r.log.Info("removed listener {{id}} for {{event}}", "id", id, "event", event)
	r.install(event, filters)
}

// Clear removes all listeners of an event type and
// uninstalls the host hook.
func (r *Registry) Clear(event EventType) {
	r.hostlock.Lock()
	defer r.hostlock.Unlock()

	r.lock.Lock()
	n := 0
	if b := r.buckets[event]; b != nil {
		n = len(b.listeners)
	}
	delete(r.buckets, event)
	r.lock.Unlock()

	r.log.Info("cleared {{amount}} listeners for {{event}}", "amount", n, "event", event)
	r.uninstall(event)
}

func (r *Registry) install(event EventType, filters sets.Set[string]) {
	urls := sets.List(filters)
	r.log.Debug("installing hook for {{event}}", "event", event, "urls", urls)
	r.host.Install(event, urls, FilterDigest(filters), r.Handler(event))
}

func (r *Registry) uninstall(event EventType) {
	r.log.Debug("uninstalling hook for {{event}}", "event", event)
	r.host.Uninstall(event)
}

// dropStaleHook uninstalls a hook the host still delivers for,
// although the event type has no listeners anymore.
func (r *Registry) dropStaleHook(event EventType) {
	r.hostlock.Lock()
	defer r.hostlock.Unlock()

	r.lock.RLock()
	b := r.buckets[event]
	r.lock.RUnlock()
	if b == nil {
		r.log.Debug("dropping stale hook for {{event}}", "event", event)
		r.host.Uninstall(event)
	}
}

////////////////////////////////////////////////////////////////////////////////

// HasCallback reports whether the event type requires a decision.
func (r *Registry) HasCallback(event EventType) bool {
	return event.HasCallback()
}

// EventTypes lists the event types with registered listeners.
func (r *Registry) EventTypes() []EventType {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return utils.OrderedMapKeys(r.buckets)
}

// Listeners provides the listeners of all event types in
// registration order.
func (r *Registry) Listeners() map[EventType][]*Listener {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := map[EventType][]*Listener{}
	for e, b := range r.buckets {
		result[e] = b.sorted()
	}
	return result
}

// ListenersFor provides the listeners of an event type in
// registration order, or nil.
func (r *Registry) ListenersFor(event EventType) []*Listener {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if b := r.buckets[event]; b != nil {
		return b.sorted()
	}
	return nil
}

// Listener looks up a listener by id.
func (r *Registry) Listener(event EventType, id string) *Listener {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if b := r.buckets[event]; b != nil {
		return b.listeners[id]
	}
	return nil
}

func (r *Registry) Filters() map[EventType]sets.Set[string] {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := map[EventType]sets.Set[string]{}
	for e, b := range r.buckets {
		result[e] = b.filters.Clone()
	}
	return result
}

// FiltersFor provides the aggregated url filters of an event type,
// or nil if there are no listeners.
func (r *Registry) FiltersFor(event EventType) sets.Set[string] {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if b := r.buckets[event]; b != nil {
		return b.filters.Clone()
	}
	return nil
}

// snapshot provides the listeners matching the url and the
// resolver of an event type observed at one point in time.
func (r *Registry) snapshot(event EventType, url string) ([]*Listener, Resolver, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	b := r.buckets[event]
	if b == nil {
		return nil, nil, false
	}
	var matched []*Listener
	for _, l := range b.sorted() {
		if l.Matches(url) {
			matched = append(matched, l)
		}
	}
	return matched, r.resolvers[event], true
}
