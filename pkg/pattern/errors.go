package pattern

import (
	"fmt"
)

// InvalidPatternError is returned for patterns violating the
// match pattern grammar.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid url pattern %q: %s", e.Pattern, e.Reason)
}
