package webrequest

import (
	"context"
	"slices"
	"time"

	"github.com/mandelsoft/webrequest/pkg/pattern"
)

// Action handles a record for a listener. For notification
// events the returned decision is ignored. A nil decision
// for a callback event forwards the record unchanged.
type Action func(ctx context.Context, rec *Record) (*Decision, error)

// Filter describes the urls a listener is interested in.
type Filter struct {
	URLs []string `json:"urls"`
}

// AllURLs is the filter used if no url pattern is given.
func AllURLs() Filter {
	return Filter{URLs: []string{pattern.AllURLs}}
}

// Context is the ordering context of a listener.
// Order is always assigned by the registry.
type Context struct {
	Order    int64    `json:"order"`
	Priority *float64 `json:"priority,omitempty"`
	Origin   string   `json:"origin,omitempty"`
}

func (c Context) GetPriority() float64 {
	if c.Priority == nil {
		return 0
	}
	return *c.Priority
}

// Listener is a registered observer for one event type.
// Listeners are never modified after registration.
type Listener struct {
	ID      string    `json:"id"`
	Event   EventType `json:"event"`
	URLs    []string  `json:"urls"`
	Context Context   `json:"context"`
	Created time.Time `json:"created"`

	action   Action
	matchers []pattern.Matcher
}

func (l *Listener) Action() Action {
	return l.action
}

// Matches checks whether any url pattern of the listener matches.
func (l *Listener) Matches(url string) bool {
	for _, m := range l.matchers {
		if m.Match(url) {
			return true
		}
	}
	return false
}

func compileFilter(f Filter) ([]string, []pattern.Matcher, error) {
	urls := f.URLs
	if len(urls) == 0 {
		urls = AllURLs().URLs
	}
	var list []string
	var matchers []pattern.Matcher
	for _, u := range urls {
		if slices.Contains(list, u) {
			continue
		}
		m, err := pattern.Compile(u)
		if err != nil {
			return nil, nil, err
		}
		list = append(list, u)
		matchers = append(matchers, m)
	}
	return list, matchers, nil
}

func compareOrder(a, b *Listener) int {
	switch {
	case a.Context.Order < b.Context.Order:
		return -1
	case a.Context.Order > b.Context.Order:
		return 1
	}
	return 0
}
