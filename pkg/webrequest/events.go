package webrequest

import (
	"fmt"
	"slices"
)

// EventType identifies a stage of the lifecycle of a network request.
type EventType string

const (
	OnBeforeRequest     EventType = "onBeforeRequest"
	OnBeforeSendHeaders EventType = "onBeforeSendHeaders"
	OnHeadersReceived   EventType = "onHeadersReceived"

	OnSendHeaders     EventType = "onSendHeaders"
	OnResponseStarted EventType = "onResponseStarted"
	OnBeforeRedirect  EventType = "onBeforeRedirect"
	OnCompleted       EventType = "onCompleted"
	OnErrorOccurred   EventType = "onErrorOccurred"
)

// CallbackEvents must be answered by exactly one decision.
var CallbackEvents = []EventType{
	OnBeforeRequest,
	OnBeforeSendHeaders,
	OnHeadersReceived,
}

// NotificationEvents are fire-and-forget.
var NotificationEvents = []EventType{
	OnSendHeaders,
	OnResponseStarted,
	OnBeforeRedirect,
	OnCompleted,
	OnErrorOccurred,
}

// EventTypes lists all supported event types.
func EventTypes() []EventType {
	return append(slices.Clone(CallbackEvents), NotificationEvents...)
}

func (e EventType) HasCallback() bool {
	return slices.Contains(CallbackEvents, e)
}

func (e EventType) IsValid() bool {
	return e.HasCallback() || slices.Contains(NotificationEvents, e)
}

func (e EventType) String() string {
	return string(e)
}

func ParseEventType(s string) (EventType, error) {
	e := EventType(s)
	if !e.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return e, nil
}
