package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mandelsoft/webrequest/pkg/ctxutil"
)

// Service is a long-running component. Start must not block.
// The ready syncher (optional) is released once the service is
// operational, done once it has terminated.
type Service interface {
	Start(ctx context.Context) (ready Syncher, done Syncher, err error)
	Wait() error
}

// Named services provide a name used for reporting.
type Named interface {
	GetName() string
}

type Services interface {
	Add(s Service) error
	Start(st ...Service) error
	Wait() error
	Cancel()
	Context() context.Context
}

type entry struct {
	service Service
	done    Syncher
}

type services struct {
	lock     sync.Mutex
	ctx      context.Context
	services []*entry
	started  bool
	wg       *sync.WaitGroup
	errs     []error
}

// New provides a service group using a cancelable
// sub context of the given one. If one service fails to start,
// the context is canceled to shut down all others.
func New(ctx context.Context) Services {
	return &services{
		ctx: ctxutil.CancelContext(ctx),
		wg:  &sync.WaitGroup{},
	}
}

func Name(s Service) string {
	if n, ok := s.(Named); ok {
		return n.GetName()
	}
	return fmt.Sprintf("%T", s)
}

func (t *services) Context() context.Context {
	return t.ctx
}

func (t *services) Cancel() {
	log.Info("canceling services")
	ctxutil.Cancel(t.ctx)
}

func (t *services) lookup(s Service) *entry {
	for _, e := range t.services {
		if e.service == s {
			return e
		}
	}
	return nil
}

func (t *services) Add(s Service) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.lookup(s) != nil {
		return nil
	}
	e := &entry{service: s}
	t.services = append(t.services, e)
	if t.started {
		return t.startServices(e)
	}
	return nil
}

func (t *services) Start(st ...Service) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(st) == 0 {
		if t.started {
			return nil
		}
		t.started = true
		return t.startServices(t.services...)
	}

	var list []*entry
	for _, s := range st {
		e := t.lookup(s)
		if e == nil {
			e = &entry{service: s}
			t.services = append(t.services, e)
		}
		list = append(list, e)
	}
	return t.startServices(list...)
}

func (t *services) startServices(list ...*entry) error {
	type pending struct {
		name  string
		ready Syncher
	}
	var ready []pending
	for _, e := range list {
		if e.done != nil {
			continue
		}
		r, err := t.start(e)
		if err != nil {
			return err
		}
		if r != nil {
			ready = append(ready, pending{Name(e.service), r})
		}
	}

	for _, r := range ready {
		err := r.ready.Wait()
		if err != nil {
			log.LogError(err, "service {{service}} not ready", "service", r.name)
			ctxutil.Cancel(t.ctx)
			return fmt.Errorf("service %s: %w", r.name, err)
		}
		log.Debug("service {{service}} ready", "service", r.name)
	}
	return nil
}

func (t *services) start(e *entry) (Syncher, error) {
	name := Name(e.service)
	log.Debug("starting service {{service}}", "service", name)
	ready, done, err := e.service.Start(t.ctx)
	if err != nil || done == nil {
		ctxutil.Cancel(t.ctx)
		if err == nil {
			err = fmt.Errorf("service %s does not return a done syncher", name)
		} else {
			err = fmt.Errorf("service %s: %w", name, err)
		}
		log.LogError(err, "cannot start service {{service}}", "service", name)
		return nil, err
	}
	e.done = done
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		err := done.Wait()
		if err != nil {
			log.LogError(err, "service {{service}} failed", "service", name)
			t.lock.Lock()
			defer t.lock.Unlock()
			t.errs = append(t.errs, fmt.Errorf("service %s: %w", name, err))
		} else {
			log.Debug("service {{service}} finished", "service", name)
		}
	}()
	return ready, nil
}

func (t *services) Wait() error {
	t.wg.Wait()
	t.lock.Lock()
	defer t.lock.Unlock()
	return errors.Join(t.errs...)
}
