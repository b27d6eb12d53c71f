package healthz

import (
	"io"
	"net/http"

	"github.com/mandelsoft/webrequest/pkg/server"
)

const PATH = "/healthz"

func init() {
	server.Register(PATH, http.HandlerFunc(Healthz))
}

// Healthz is the HTTP handler for the health endpoint. It responds
// with status 200 if all health checks are up to date, and with
// status 500 otherwise.
func Healthz(w http.ResponseWriter, r *http.Request) {
	ok, info := HealthInfo()
	if ok {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusInternalServerError)
	}
	io.WriteString(w, info)
}
