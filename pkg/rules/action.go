package rules

import (
	"context"
	"strings"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Action compiles a rule into a listener action.
// The rule is expected to be valid.
func Action(r api.Rule) webrequest.Action {
	return func(ctx context.Context, rec *webrequest.Record) (*webrequest.Decision, error) {
		if r.Log {
			log.Info("{{rule}}: {{event}} {{method}} {{url}}", "rule", r.Name, "event", r.Event, "method", rec.Method, "url", rec.URL, "request", rec.ID)
		}
		if !r.Event.HasCallback() {
			return nil, nil
		}

		d := rec.Forward()
		d.Cancel = r.Cancel
		if r.RedirectURL != "" {
			d.RedirectURL = r.RedirectURL
		}
		if len(r.SetRequestHeaders) > 0 || len(r.RemoveRequestHeaders) > 0 {
			if d.RequestHeaders == nil {
				d.RequestHeaders = map[string]string{}
			}
			for _, n := range r.RemoveRequestHeaders {
				deleteHeader(d.RequestHeaders, n)
			}
			for n, v := range r.SetRequestHeaders {
				deleteHeader(d.RequestHeaders, n)
				d.RequestHeaders[n] = v
			}
		}
		if len(r.SetResponseHeaders) > 0 {
			if d.ResponseHeaders == nil {
				d.ResponseHeaders = map[string][]string{}
			}
			for n, v := range r.SetResponseHeaders {
				deleteHeader(d.ResponseHeaders, n)
				d.ResponseHeaders[n] = []string{v}
			}
		}
		return d, nil
	}
}

// deleteHeader removes a header ignoring the case of the name.
func deleteHeader[V any](headers map[string]V, name string) {
	for k := range headers {
		if strings.EqualFold(k, name) {
			delete(headers, k)
		}
	}
}
