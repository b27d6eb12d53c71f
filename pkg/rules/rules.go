package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/config"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

type entry struct {
	rule     api.Rule
	listener *webrequest.Listener
}

// Set manages the rule based listeners of a registry.
// Applying a rule with an already known name replaces the
// listener of the former rule.
type Set struct {
	lock     sync.Mutex
	registry *webrequest.Registry
	rules    map[string]*entry
}

func New(reg *webrequest.Registry) *Set {
	return &Set{
		registry: reg,
		rules:    map[string]*entry{},
	}
}

func (s *Set) Registry() *webrequest.Registry {
	return s.registry
}

// Apply installs a rule. It returns the new listener and whether
// the rule has been newly created.
func (s *Set) Apply(r api.Rule) (*webrequest.Listener, bool, error) {
	if err := r.Validate(); err != nil {
		return nil, false, err
	}
	r.URLs = slices.Clone(r.URLs)

	s.lock.Lock()
	defer s.lock.Unlock()

	l, err := s.registry.Add(r.Event, webrequest.Filter{URLs: r.URLs}, Action(r), webrequest.Context{
		Priority: r.Priority,
		Origin:   r.Origin(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("rule %q: %w", r.Name, err)
	}

	old := s.active(r.Name)
	if old != nil {
		s.registry.Remove(old.listener.Event, old.listener.ID)
	}
	s.rules[r.Name] = &entry{rule: r, listener: l}
	log.Info("applied rule {{rule}} for {{event}} (listener {{id}})", "rule", r.Name, "event", r.Event, "id", l.ID)
	return l, old == nil, nil
}

// Delete removes the listener of a rule.
func (s *Set) Delete(name string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	e := s.active(name)
	if e == nil {
		return false
	}
	delete(s.rules, name)
	s.registry.Remove(e.listener.Event, e.listener.ID)
	log.Info("deleted rule {{rule}}", "rule", name)
	return true
}

// Get provides the rule with the given name, if its listener
// is still registered.
func (s *Set) Get(name string) *api.Rule {
	s.lock.Lock()
	defer s.lock.Unlock()

	if e := s.active(name); e != nil {
		r := e.rule
		return &r
	}
	return nil
}

// List provides the rules with registered listeners ordered by name.
func (s *Set) List() []api.Rule {
	s.lock.Lock()
	defer s.lock.Unlock()

	var list []api.Rule
	for _, n := range utils.OrderedMapKeys(s.rules) {
		if e := s.active(n); e != nil {
			list = append(list, e.rule)
		}
	}
	return list
}

// active provides the entry for a rule, whose listener is
// still registered. Entries for listeners removed directly
// at the registry are dropped.
func (s *Set) active(name string) *entry {
	e := s.rules[name]
	if e == nil {
		return nil
	}
	if s.registry.Listener(e.listener.Event, e.listener.ID) == nil {
		delete(s.rules, name)
		return nil
	}
	return e
}

// IsRuleListener checks whether a listener has been created for a rule.
func IsRuleListener(l *webrequest.Listener) bool {
	return strings.HasPrefix(l.Context.Origin, api.RuleOriginPrefix)
}

// ApplyConfig sets the configured resolvers and installs the
// configured rules.
func ApplyConfig(s *Set, cfg *config.Config) error {
	var errs []error
	for _, e := range utils.OrderedMapKeys(cfg.Resolvers) {
		if _, err := s.registry.UseResolver(e, cfg.Resolvers[e]); err != nil {
			errs = append(errs, fmt.Errorf("resolver for %q: %w", e, err))
		}
	}
	for _, r := range cfg.Rules {
		if _, _, err := s.Apply(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
