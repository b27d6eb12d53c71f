package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mandelsoft/webrequest/pkg/api"
	"github.com/mandelsoft/webrequest/pkg/rules"
	"github.com/mandelsoft/webrequest/pkg/server"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Access provides the HTTP control API for a registry
// and its rule set.
type Access struct {
	registry *webrequest.Registry
	rules    *rules.Set
	prefix   string
}

// New creates the control API. All routes are served below
// the given path prefix.
func New(rules *rules.Set, prefix ...string) *Access {
	p := strings.TrimSuffix(utils.Optional(prefix...), "/")
	return &Access{
		registry: rules.Registry(),
		rules:    rules,
		prefix:   p,
	}
}

func (a *Access) RegisterHandler(srv *server.Server) {
	a.Register(srv.ServeMux)
}

func (a *Access) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+a.prefix+"/listeners", a.listBuckets)
	mux.HandleFunc("GET "+a.prefix+"/listeners/{event}", a.getBucket)
	mux.HandleFunc("POST "+a.prefix+"/listeners", a.applyRule)
	mux.HandleFunc("DELETE "+a.prefix+"/listeners/{event}", a.clear)
	mux.HandleFunc("DELETE "+a.prefix+"/listeners/{event}/{id}", a.remove)
	mux.HandleFunc("GET "+a.prefix+"/resolvers", a.listResolvers)
	mux.HandleFunc("PUT "+a.prefix+"/resolvers/{event}", a.setResolver)
	mux.HandleFunc("GET "+a.prefix+"/rules", a.listRules)
	mux.HandleFunc("DELETE "+a.prefix+"/rules/{name}", a.deleteRule)
}

func writeData(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.LogError(err, "cannot marshal response")
		status = http.StatusInternalServerError
		data, _ = json.Marshal(&api.Error{Error: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	log.Debug("request failed: {{error}}", "error", err.Error(), "status", status)
	writeData(w, status, &api.Error{Error: err.Error()})
}

func readData(r *http.Request, v any) error {
	t := r.Header.Get("Content-Type")
	if t != "" && !strings.HasPrefix(t, "application/json") {
		return fmt.Errorf("unsupported content type %q", t)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (a *Access) event(w http.ResponseWriter, r *http.Request) (webrequest.EventType, bool) {
	e, err := webrequest.ParseEventType(r.PathValue("event"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return "", false
	}
	return e, true
}

func (a *Access) bucket(e webrequest.EventType) api.Bucket {
	return api.NewBucket(e, a.registry.ResolverName(e), a.registry.ListenersFor(e))
}

func (a *Access) listBuckets(w http.ResponseWriter, r *http.Request) {
	list := api.BucketList{Items: []api.Bucket{}}
	for _, e := range a.registry.EventTypes() {
		list.Items = append(list.Items, a.bucket(e))
	}
	writeData(w, http.StatusOK, &list)
}

func (a *Access) getBucket(w http.ResponseWriter, r *http.Request) {
	e, ok := a.event(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, a.bucket(e))
}

func (a *Access) applyRule(w http.ResponseWriter, r *http.Request) {
	var rule api.Rule
	if err := readData(r, &rule); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	l, created, err := a.rules.Apply(rule)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, api.NewListener(l))
}

func (a *Access) clear(w http.ResponseWriter, r *http.Request) {
	e, ok := a.event(w, r)
	if !ok {
		return
	}
	log.Info("clearing listeners for {{event}}", "event", e)
	a.registry.Clear(e)
	w.WriteHeader(http.StatusNoContent)
}

func (a *Access) remove(w http.ResponseWriter, r *http.Request) {
	e, ok := a.event(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if a.registry.Listener(e, id) == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("listener %q not found for %s", id, e))
		return
	}
	log.Info("removing listener {{id}} for {{event}}", "event", e, "id", id)
	a.registry.Remove(e, id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *Access) listResolvers(w http.ResponseWriter, r *http.Request) {
	m := map[webrequest.EventType]string{}
	for _, e := range webrequest.CallbackEvents {
		m[e] = a.registry.ResolverName(e)
	}
	writeData(w, http.StatusOK, m)
}

func (a *Access) setResolver(w http.ResponseWriter, r *http.Request) {
	e, ok := a.event(w, r)
	if !ok {
		return
	}
	var req api.ResolverRequest
	if err := readData(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	replaced, err := a.registry.UseResolver(e, req.Policy)
	if err != nil {
		var warn *webrequest.ResolverTargetWarning
		if errors.As(err, &warn) {
			writeError(w, http.StatusConflict, err)
		} else {
			writeError(w, http.StatusBadRequest, err)
		}
		return
	}
	log.Info("resolver for {{event}} set to {{policy}}", "event", e, "policy", req.Policy)
	writeData(w, http.StatusOK, &api.ResolverResponse{
		Event:    e,
		Policy:   a.registry.ResolverName(e),
		Replaced: replaced,
	})
}

func (a *Access) listRules(w http.ResponseWriter, r *http.Request) {
	list := a.rules.List()
	if list == nil {
		list = []api.Rule{}
	}
	writeData(w, http.StatusOK, list)
}

func (a *Access) deleteRule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !a.rules.Delete(name) {
		writeError(w, http.StatusNotFound, fmt.Errorf("rule %q not found", name))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
