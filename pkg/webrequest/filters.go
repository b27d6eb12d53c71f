package webrequest

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/mandelsoft/webrequest/pkg/utils"
)

// MergeFilters provides the union of the url patterns
// of the given listeners.
func MergeFilters(listeners ...*Listener) sets.Set[string] {
	r := sets.New[string]()
	for _, l := range listeners {
		r.Insert(l.URLs...)
	}
	return r
}

// FilterDigest provides a stable digest for a filter set.
func FilterDigest(filters sets.Set[string]) string {
	if filters.Len() == 0 {
		return ""
	}
	return utils.HashData(sets.List(filters))
}
