package webrequest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mandelsoft/webrequest/pkg/utils"
)

// Resolver converts the matching candidates of a callback event
// into the single decision forwarded to the host. Only candidates
// invoked by the resolver execute their listener action.
type Resolver func(ctx context.Context, candidates []*PendingInvocation) (*Decision, error)

// SetResolver sets the resolver for a callback event type.
// It returns true if an existing resolver has been replaced.
// Resolvers for notification events are rejected with a
// *ResolverTargetWarning.
func (r *Registry) SetResolver(event EventType, resolver Resolver) (bool, error) {
	return r.setResolver(event, CustomResolverName, resolver)
}

// UseResolver sets a built-in resolver by name.
func (r *Registry) UseResolver(event EventType, name string) (bool, error) {
	resolver, err := ResolverByName(name)
	if err != nil {
		return false, err
	}
	return r.setResolver(event, normalize(name), resolver)
}

func (r *Registry) setResolver(event EventType, name string, resolver Resolver) (bool, error) {
	if !event.IsValid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownEventType, event)
	}
	if !event.HasCallback() {
		w := &ResolverTargetWarning{Event: event, Reason: "event has no callback and does not use a resolver"}
		r.log.Warn("{{warning}}", "warning", w.Error())
		return false, w
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	_, replaced := r.resolvers[event]
	if replaced {
		w := &ResolverTargetWarning{Event: event, Reason: "overriding existing resolver"}
		r.log.Warn("{{warning}}", "warning", w.Error())
	}
	if resolver == nil {
		delete(r.resolvers, event)
		delete(r.resolverNames, event)
	} else {
		r.resolvers[event] = resolver
		r.resolverNames[event] = name
	}
	return replaced, nil
}

// ResetResolver restores the default resolver for an event type.
func (r *Registry) ResetResolver(event EventType) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.resolvers, event)
	delete(r.resolverNames, event)
}

// ResolverName provides the name of the resolver used for
// a callback event type. Resolvers not set by name are
// reported as CustomResolverName.
func (r *Registry) ResolverName(event EventType) string {
	if !event.HasCallback() {
		return ""
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	if n, ok := r.resolverNames[event]; ok {
		return n
	}
	return DefaultResolverName
}

// HasResolver reports whether a custom resolver is set.
func (r *Registry) HasResolver(event EventType) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.resolvers[event]
	return ok
}

////////////////////////////////////////////////////////////////////////////////

func byOrder(a, b *PendingInvocation) int {
	return cmp.Compare(a.Context.Order, b.Context.Order)
}

func descending[T any](f func(a, b T) int) func(a, b T) int {
	return func(a, b T) int { return f(b, a) }
}

func sortedCandidates(candidates []*PendingInvocation, f func(a, b *PendingInvocation) int) []*PendingInvocation {
	list := slices.Clone(candidates)
	slices.SortStableFunc(list, f)
	return list
}

// DefaultResolver invokes only the most recently registered
// candidate: the last registered listener wins, earlier
// overlapping listeners are not executed.
func DefaultResolver(ctx context.Context, candidates []*PendingInvocation) (*Decision, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return sortedCandidates(candidates, descending(byOrder))[0].Invoke(ctx)
}

// FirstRegisteredResolver invokes only the earliest registered candidate.
func FirstRegisteredResolver(ctx context.Context, candidates []*PendingInvocation) (*Decision, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return sortedCandidates(candidates, byOrder)[0].Invoke(ctx)
}

// PriorityResolver invokes only the candidate with the highest
// priority. Candidates with equal priority are ordered by
// registration, the last one wins.
func PriorityResolver(ctx context.Context, candidates []*PendingInvocation) (*Decision, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	list := sortedCandidates(candidates, func(a, b *PendingInvocation) int {
		if c := cmp.Compare(b.Context.GetPriority(), a.Context.GetPriority()); c != 0 {
			return c
		}
		return byOrder(b, a)
	})
	return list[0].Invoke(ctx)
}

// CancelAnyResolver invokes all candidates in registration order.
// The request is cancelled if any listener cancels it, otherwise
// the decision of the last successful listener is used.
// It fails only if all candidates fail.
func CancelAnyResolver(ctx context.Context, candidates []*PendingInvocation) (*Decision, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	var result *Decision
	var errs []error
	cancel := false
	for _, c := range sortedCandidates(candidates, byOrder) {
		d, err := c.Invoke(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cancel = cancel || d.Cancel
		result = d.Copy()
	}
	if result == nil {
		return nil, errors.Join(errs...)
	}
	result.Cancel = cancel
	return result, nil
}

const (
	DefaultResolverName   = "last"
	FirstResolverName     = "first"
	PriorityResolverName  = "priority"
	CancelAnyResolverName = "cancel-any"
	CustomResolverName    = "custom"
)

type namedResolver struct {
	name     string
	resolver Resolver
}

// builtin lists the built-in resolvers in the order used for help texts.
var builtin = []namedResolver{
	{DefaultResolverName, DefaultResolver},
	{FirstResolverName, FirstRegisteredResolver},
	{PriorityResolverName, PriorityResolver},
	{CancelAnyResolverName, CancelAnyResolver},
}

// ResolverNames lists the names of the built-in resolvers.
func ResolverNames() []string {
	return utils.TransformSlice(builtin, func(e namedResolver) string { return e.name })
}

// ResolverByName provides a built-in resolver.
func ResolverByName(name string) (Resolver, error) {
	n := normalize(name)
	i := slices.IndexFunc(builtin, func(e namedResolver) bool { return e.name == n })
	if i < 0 {
		return nil, fmt.Errorf("unknown resolver %q (use one of %s)", name, strings.Join(ResolverNames(), ", "))
	}
	return builtin[i].resolver, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
