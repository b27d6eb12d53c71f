package server

import (
	"net/http"
)

var default_mux = http.NewServeMux()

// Register adds a handler to the default mux served by
// all servers created with the default option.
func Register(pattern string, handler http.Handler) {
	default_mux.Handle(pattern, handler)
}
