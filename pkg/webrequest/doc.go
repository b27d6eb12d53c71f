// Package webrequest multiplexes any number of listeners per
// network request event type onto a host offering only a single
// hook per event type.
//
// The Registry keeps the listeners per event type together with the
// aggregated url filter set and (re-)installs the host hook whenever
// the filter set changes. Records delivered by the host are matched
// against the url patterns of the listeners. For callback events a
// Resolver decides which of the matching listeners are executed and
// which decision is returned to the host; by default the most recently
// registered listener wins. Notification events are delivered to all
// matching listeners.
package webrequest
