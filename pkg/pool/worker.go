/*
 * SPDX-FileCopyrightText: 2019 SAP SE or an SAP affiliate company and Gardener contributors
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package pool

import (
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/webrequest/pkg/healthz"
)

// worker is a single goroutine processing the
// jobs provided by the pool's workqueue.
type worker struct {
	logging.UnboundLogger
	pool *pool
}

func newWorker(p *pool, number int) *worker {
	lgr := logging.DynamicLogger(p.lctx,
		logging.NewName(fmt.Sprintf("worker %d", number)),
		logging.NewAttribute("worker", strconv.Itoa(number)),
	)

	return &worker{
		UnboundLogger: lgr,
		pool:          p,
	}
}

func (w *worker) Run() {
	w.Debug("starting worker")
	for w.processNextWorkItem() {
	}
	w.Debug("exit worker")
}

func (w *worker) catch(f func()) {
	defer func() {
		if r := recover(); r != nil {
			w.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	f()
}

func (w *worker) processNextWorkItem() bool {
	obj, shutdown := w.pool.workqueue.Get()
	if shutdown {
		return false
	}
	defer w.pool.workqueue.Done(obj)
	defer w.pool.workqueue.Forget(obj)
	healthz.Tick(w.pool.Key())

	key, ok := obj.(string)
	if !ok {
		w.LogError(fmt.Errorf("expected string in workqueue but got %#v", obj), "internal error")
		return true
	}

	cmd, id, err := DecodeKey(key)
	if err != nil {
		w.Error("request key error", "error", err)
		return true
	}

	if cmd != "" {
		if cmd == tickCommand {
			w.pool.workqueue.AddAfter(tickCmd, tick)
		} else {
			w.Error("unknown command", "command", cmd)
		}
		return true
	}

	f := w.pool.job(id)
	if f == nil {
		w.Warn("job not found", "job", id)
		return true
	}
	w.Trace("running job", "job", id)
	w.catch(f)
	return true
}
