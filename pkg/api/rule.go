package api

import (
	"errors"
	"fmt"

	"github.com/mandelsoft/webrequest/pkg/pattern"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Rule is a declarative listener definition.
type Rule struct {
	Name     string               `json:"name"`
	Event    webrequest.EventType `json:"event"`
	URLs     []string             `json:"urls,omitempty"`
	Priority *float64             `json:"priority,omitempty"`

	Cancel               bool              `json:"cancel,omitempty"`
	RedirectURL          string            `json:"redirectURL,omitempty"`
	SetRequestHeaders    map[string]string `json:"setRequestHeaders,omitempty"`
	RemoveRequestHeaders []string          `json:"removeRequestHeaders,omitempty"`
	SetResponseHeaders   map[string]string `json:"setResponseHeaders,omitempty"`
	Log                  bool              `json:"log,omitempty"`
}

// Validate checks the rule for consistency.
func (r *Rule) Validate() error {
	var errs []error

	if r.Name == "" {
		errs = append(errs, fmt.Errorf("rule name required"))
	}
	if _, err := webrequest.ParseEventType(string(r.Event)); err != nil {
		errs = append(errs, err)
	} else if !r.Event.HasCallback() && r.modifies() {
		errs = append(errs, fmt.Errorf("event %s cannot modify requests", r.Event))
	}
	if err := pattern.Validate(r.URLs...); err != nil {
		errs = append(errs, err)
	}
	if r.RedirectURL != "" && r.Event != webrequest.OnBeforeRequest && r.Event != webrequest.OnHeadersReceived {
		errs = append(errs, fmt.Errorf("redirect not possible for event %s", r.Event))
	}
	if (len(r.SetRequestHeaders) > 0 || len(r.RemoveRequestHeaders) > 0) && r.Event != webrequest.OnBeforeSendHeaders {
		errs = append(errs, fmt.Errorf("request headers can only be modified for %s", webrequest.OnBeforeSendHeaders))
	}
	if len(r.SetResponseHeaders) > 0 && r.Event != webrequest.OnHeadersReceived {
		errs = append(errs, fmt.Errorf("response headers can only be modified for %s", webrequest.OnHeadersReceived))
	}
	if !r.modifies() && !r.Log {
		errs = append(errs, fmt.Errorf("rule has no effect"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	return nil
}

func (r *Rule) modifies() bool {
	return r.Cancel || r.RedirectURL != "" ||
		len(r.SetRequestHeaders) > 0 || len(r.RemoveRequestHeaders) > 0 ||
		len(r.SetResponseHeaders) > 0
}

// Origin is the listener origin used for rule based listeners.
func (r *Rule) Origin() string {
	return RuleOriginPrefix + r.Name
}

const RuleOriginPrefix = "rule:"
