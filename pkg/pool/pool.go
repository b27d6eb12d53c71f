package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mandelsoft/logging"
	"k8s.io/client-go/util/workqueue"

	"github.com/mandelsoft/webrequest/pkg/healthz"
	"github.com/mandelsoft/webrequest/pkg/service"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

var REALM = logging.DefineRealm("webrequest/pool", "notification worker pool")

const tick = 30 * time.Second

// Pool executes functions on a fixed number of workers.
// Functions submitted before the pool is started are queued.
// After the pool has been stopped, functions are executed
// in their own goroutine.
type Pool interface {
	service.Service
	webrequest.Executor

	GetName() string
	QueueLength() int
}

type pool struct {
	logging.UnboundLogger
	name string
	size int
	lctx logging.AttributionContext
	key  string

	workqueue workqueue.RateLimitingInterface

	lock    sync.Mutex
	seq     uint64
	jobs    map[uint64]func()
	wg      *sync.WaitGroup
	ctx     context.Context
	ready   service.Trigger
	syncher service.Syncher
}

var _ Pool = (*pool)(nil)

func NewPool(lctxp logging.AttributionContextProvider, name string, size int) Pool {
	lctx := lctxp.AttributionContext().WithContext(REALM, logging.NewAttribute("pool", name)).WithName(name)
	if size <= 0 {
		size = 1
	}
	p := &pool{
		UnboundLogger: logging.DynamicLogger(lctx),
		name:          name,
		size:          size,
		lctx:          lctx.AttributionContext(),
		key:           fmt.Sprintf("pool %s", name),
		workqueue: workqueue.NewRateLimitingQueueWithConfig(workqueue.DefaultControllerRateLimiter(), workqueue.RateLimitingQueueConfig{
			Name: name,
		}),
		jobs: map[uint64]func(){},
	}
	p.Info("created pool {{name}}", "name", name, "size", size)
	return p
}

func (p *pool) GetName() string {
	return p.name
}

func (p *pool) Key() string {
	return p.key
}

func (p *pool) QueueLength() int {
	return p.workqueue.Len()
}

func (p *pool) Execute(f func()) {
	p.lock.Lock()
	p.seq++
	id := p.seq
	p.jobs[id] = f
	p.lock.Unlock()

	p.workqueue.Add(EncodeJobKey(id))
	if p.workqueue.ShuttingDown() {
		// the queue drops keys after shutdown
		if f := p.job(id); f != nil {
			p.Debug("pool stopped, running job directly")
			go f()
		}
	}
}

func (p *pool) job(id uint64) func() {
	p.lock.Lock()
	defer p.lock.Unlock()
	f := p.jobs[id]
	delete(p.jobs, id)
	return f
}

func (p *pool) Start(ctx context.Context) (service.Syncher, service.Syncher, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.syncher == nil {
		p.ctx = ctx
		p.wg = &sync.WaitGroup{}
		p.syncher = service.Sync(p.wg)
		p.ready = service.SyncTrigger()
		p.wg.Add(1)
		go p.Run()
	}
	return p.ready, p.syncher, nil
}

func (p *pool) Wait() error {
	p.lock.Lock()
	s := p.syncher
	p.lock.Unlock()
	if s == nil {
		return fmt.Errorf("pool %s not started", p.name)
	}
	return s.Wait()
}

func (p *pool) Run() {
	defer p.wg.Done()

	p.Info("starting worker pool {{name}}", "name", p.name, "workers", p.size)
	healthz.Start(p.Key(), tick)
	p.workqueue.AddAfter(tickCmd, tick)

	var workers sync.WaitGroup
	for i := 0; i < p.size; i++ {
		w := newWorker(p, i)
		workers.Add(1)
		go func() {
			defer workers.Done()
			w.Run()
		}()
	}
	p.ready.Trigger()

	<-p.ctx.Done()
	p.Info("waiting for pool workers to shutdown", "name", p.name)
	p.workqueue.ShutDown()
	workers.Wait()
	healthz.End(p.Key())
	p.Info("pool {{name}} stopped", "name", p.name)
}
