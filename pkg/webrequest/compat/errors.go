package compat

import (
	"fmt"

	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// ArgumentShapeError is returned for argument lists not matching
// one of the accepted call shapes.
type ArgumentShapeError struct {
	Event  webrequest.EventType
	Count  int
	Reason string
}

func (e *ArgumentShapeError) Error() string {
	return fmt.Sprintf("invalid arguments for %s (%d given): %s", e.Event, e.Count, e.Reason)
}
