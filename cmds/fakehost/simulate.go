package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Deliverer delivers records to the installed hooks.
type Deliverer interface {
	Deliver(ctx context.Context, event webrequest.EventType, rec *webrequest.Record) (*webrequest.Decision, bool, error)
}

const maxRedirects = 5

// Simulator passes simulated requests through the lifecycle
// of a network request.
type Simulator struct {
	host Deliverer
	seq  atomic.Uint64
}

func NewSimulator(host Deliverer) *Simulator {
	return &Simulator{host: host}
}

func (s *Simulator) deliver(ctx context.Context, event webrequest.EventType, rec *webrequest.Record) (*webrequest.Decision, error) {
	d, ok, err := s.host.Deliver(ctx, event, rec)
	if err != nil {
		log.LogError(err, "{{event}} for {{url}} failed", "event", event, "url", rec.URL)
		return nil, err
	}
	if ok && d != nil {
		log.Debug("{{event}} for {{url}}: cancel {{cancel}}", "event", event, "url", rec.URL, "cancel", d.Cancel)
	}
	return d, nil
}

func (s *Simulator) fail(ctx context.Context, rec *webrequest.Record, msg string) string {
	rec.Error = msg
	s.deliver(ctx, webrequest.OnErrorOccurred, rec)
	return "error: " + msg
}

// Request simulates a request for a URL and returns its outcome.
func (s *Simulator) Request(ctx context.Context, method, url string) string {
	rec := &webrequest.Record{
		ID:           s.seq.Add(1),
		URL:          url,
		Method:       method,
		ResourceType: Random([]string{"mainFrame", "script", "image", "xhr"}),
		RequestHeaders: map[string]string{
			"Accept":     "*/*",
			"User-Agent": "fakehost",
		},
	}

	for redirects := 0; ; redirects++ {
		d, err := s.deliver(ctx, webrequest.OnBeforeRequest, rec)
		if err != nil {
			return s.fail(ctx, rec, err.Error())
		}
		if d != nil && d.Cancel {
			return s.fail(ctx, rec, "net::ERR_BLOCKED_BY_CLIENT")
		}
		if d == nil || d.RedirectURL == "" {
			break
		}
		if redirects == maxRedirects {
			return s.fail(ctx, rec, "net::ERR_TOO_MANY_REDIRECTS")
		}
		rec.RedirectURL = d.RedirectURL
		rec.StatusCode = 307
		s.deliver(ctx, webrequest.OnBeforeRedirect, rec)
		rec.URL = d.RedirectURL
		rec.RedirectURL = ""
		rec.StatusCode = 0
	}

	d, err := s.deliver(ctx, webrequest.OnBeforeSendHeaders, rec)
	if err != nil {
		return s.fail(ctx, rec, err.Error())
	}
	if d != nil {
		if d.Cancel {
			return s.fail(ctx, rec, "net::ERR_BLOCKED_BY_CLIENT")
		}
		if d.RequestHeaders != nil {
			rec.RequestHeaders = d.RequestHeaders
		}
	}
	s.deliver(ctx, webrequest.OnSendHeaders, rec)

	rec.StatusCode = 200
	rec.StatusLine = "HTTP/1.1 200 OK"
	rec.ResponseHeaders = map[string][]string{
		"Content-Type": {"text/html"},
		"Server":       {generator.Generate()},
	}
	d, err = s.deliver(ctx, webrequest.OnHeadersReceived, rec)
	if err != nil {
		return s.fail(ctx, rec, err.Error())
	}
	if d != nil {
		if d.Cancel {
			return s.fail(ctx, rec, "net::ERR_BLOCKED_BY_CLIENT")
		}
		if d.ResponseHeaders != nil {
			rec.ResponseHeaders = d.ResponseHeaders
		}
		if d.StatusLine != "" {
			rec.StatusLine = d.StatusLine
		}
	}
	s.deliver(ctx, webrequest.OnResponseStarted, rec)
	s.deliver(ctx, webrequest.OnCompleted, rec)
	return fmt.Sprintf("completed: %s", rec.StatusLine)
}
