package webrequest

import (
	"encoding/json"
	"maps"
	"reflect"
	"strings"
	"sync"
)

// Record is a raw event record delivered by the host.
// Fields not known here are kept in Extra and passed through
// to decisions derived from the record.
type Record struct {
	ID              uint64              `json:"id"`
	URL             string              `json:"url"`
	Method          string              `json:"method,omitempty"`
	ResourceType    string              `json:"resourceType,omitempty"`
	Referrer        string              `json:"referrer,omitempty"`
	Timestamp       float64             `json:"timestamp,omitempty"`
	RequestHeaders  map[string]string   `json:"requestHeaders,omitempty"`
	ResponseHeaders map[string][]string `json:"responseHeaders,omitempty"`
	StatusCode      int                 `json:"statusCode,omitempty"`
	StatusLine      string              `json:"statusLine,omitempty"`
	RedirectURL     string              `json:"redirectURL,omitempty"`
	FromCache       bool                `json:"fromCache,omitempty"`
	Error           string              `json:"error,omitempty"`

	Extra map[string]any `json:"-"`
}

// Decision is the answer for a record of a callback event.
// Cancel is the only field every host understands, the other
// fields are copies of the mutable record fields.
type Decision struct {
	Cancel          bool                `json:"cancel"`
	RedirectURL     string              `json:"redirectURL,omitempty"`
	RequestHeaders  map[string]string   `json:"requestHeaders,omitempty"`
	ResponseHeaders map[string][]string `json:"responseHeaders,omitempty"`
	StatusLine      string              `json:"statusLine,omitempty"`

	Extra map[string]any `json:"-"`
}

// Copy provides a deep copy of the record.
func (r *Record) Copy() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.RequestHeaders = maps.Clone(r.RequestHeaders)
	c.ResponseHeaders = cloneMultiHeader(r.ResponseHeaders)
	c.Extra = maps.Clone(r.Extra)
	return &c
}

// Forward provides the decision passing the record unchanged.
func (r *Record) Forward() *Decision {
	return &Decision{
		Cancel:          false,
		RedirectURL:     r.RedirectURL,
		RequestHeaders:  maps.Clone(r.RequestHeaders),
		ResponseHeaders: cloneMultiHeader(r.ResponseHeaders),
		StatusLine:      r.StatusLine,
		Extra:           maps.Clone(r.Extra),
	}
}

func (d *Decision) Copy() *Decision {
	if d == nil {
		return nil
	}
	c := *d
	c.RequestHeaders = maps.Clone(d.RequestHeaders)
	c.ResponseHeaders = cloneMultiHeader(d.ResponseHeaders)
	c.Extra = maps.Clone(d.Extra)
	return &c
}

func cloneMultiHeader(h map[string][]string) map[string][]string {
	if h == nil {
		return nil
	}
	r := make(map[string][]string, len(h))
	for k, v := range h {
		r[k] = append([]string(nil), v...)
	}
	return r
}

////////////////////////////////////////////////////////////////////////////////

type record Record
type decision Decision

func (r Record) MarshalJSON() ([]byte, error) {
	return marshalExtra((*record)(&r), r.Extra)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	extra, err := unmarshalExtra(data, (*record)(r))
	r.Extra = extra
	return err
}

func (d Decision) MarshalJSON() ([]byte, error) {
	return marshalExtra((*decision)(&d), d.Extra)
}

func (d *Decision) UnmarshalJSON(data []byte) error {
	extra, err := unmarshalExtra(data, (*decision)(d))
	d.Extra = extra
	return err
}

func marshalExtra(v any, extra map[string]any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, e := range extra {
		if _, ok := fields[k]; !ok {
			fields[k] = e
		}
	}
	return json.Marshal(fields)
}

func unmarshalExtra(data []byte, v any) (map[string]any, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for _, k := range knownFields(reflect.TypeOf(v).Elem()) {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

var known sync.Map

func knownFields(t reflect.Type) []string {
	if f, ok := known.Load(t); ok {
		return f.([]string)
	}
	var fields []string
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			fields = append(fields, name)
		}
	}
	known.Store(t, fields)
	return fields
}
