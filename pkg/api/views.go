package api

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

type Listener struct {
	ID       string               `json:"id"`
	Event    webrequest.EventType `json:"event"`
	URLs     []string             `json:"urls"`
	Order    int64                `json:"order"`
	Priority *float64             `json:"priority,omitempty"`
	Origin   string               `json:"origin,omitempty"`
	Created  utils.Timestamp      `json:"created"`
}

// Bucket describes the listeners of one event type together
// with the filter set installed into the host.
type Bucket struct {
	Event     webrequest.EventType `json:"event"`
	Callback  bool                 `json:"callback"`
	Resolver  string               `json:"resolver,omitempty"`
	Filters   []string             `json:"filters"`
	Digest    string               `json:"digest"`
	Listeners []Listener           `json:"listeners"`
}

type BucketList struct {
	Items []Bucket `json:"items"`
}

type ResolverRequest struct {
	Policy string `json:"policy"`
}

type ResolverResponse struct {
	Event    webrequest.EventType `json:"event"`
	Policy   string               `json:"policy"`
	Replaced bool                 `json:"replaced"`
}

type Error struct {
	Error string `json:"error"`
}

func NewListener(l *webrequest.Listener) Listener {
	return Listener{
		ID:       l.ID,
		Event:    l.Event,
		URLs:     l.URLs,
		Order:    l.Context.Order,
		Priority: l.Context.Priority,
		Origin:   l.Context.Origin,
		Created:  utils.NewTimestampFor(l.Created),
	}
}

// NewBucket provides the view for the listeners of one event type.
// The filter set is taken from the given listeners, which must be
// the complete listener list of the event type.
func NewBucket(event webrequest.EventType, resolver string, listeners []*webrequest.Listener) Bucket {
	filters := webrequest.MergeFilters(listeners...)
	return Bucket{
		Event:     event,
		Callback:  event.HasCallback(),
		Resolver:  resolver,
		Filters:   sets.List(filters),
		Digest:    webrequest.FilterDigest(filters),
		Listeners: utils.TransformSlice(listeners, NewListener),
	}
}
