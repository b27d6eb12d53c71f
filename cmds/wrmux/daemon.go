package main

import (
	"context"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/webrequest/pkg/bridge"
	"github.com/mandelsoft/webrequest/pkg/config"
	"github.com/mandelsoft/webrequest/pkg/control"
	"github.com/mandelsoft/webrequest/pkg/metrics"
	"github.com/mandelsoft/webrequest/pkg/pool"
	"github.com/mandelsoft/webrequest/pkg/rules"
	"github.com/mandelsoft/webrequest/pkg/server"
	"github.com/mandelsoft/webrequest/pkg/service"
	"github.com/mandelsoft/webrequest/pkg/webrequest"

	_ "github.com/mandelsoft/webrequest/pkg/healthz"
)

// Daemon is the set of wired components of the multiplexer.
type Daemon struct {
	Config   *config.Config
	Bridge   *bridge.Bridge
	Registry *webrequest.Registry
	Rules    *rules.Set
	Server   *server.Server
	Services service.Services
}

// NewDaemon wires the multiplexer components for a configuration.
// The content handler is optional.
func NewDaemon(ctx context.Context, cfg *config.Config, content *server.DirectoryHandler) (*Daemon, error) {
	lctx := logging.DefaultContext()

	d := &Daemon{
		Config:   cfg,
		Bridge:   bridge.New(),
		Services: service.New(ctx),
	}

	opts := []webrequest.Option{webrequest.WithLoggingContext(lctx)}
	if n := cfg.GetNotificationWorkers(); n > 0 {
		p := pool.NewPool(lctx, "notifications", n)
		opts = append(opts, webrequest.WithExecutor(p))
		d.Services.Add(p)
	}
	d.Registry = webrequest.NewRegistry(d.Bridge, opts...)
	metrics.ObserveRegistry(d.Registry)
	d.Rules = rules.New(d.Registry)
	if err := rules.ApplyConfig(d.Rules, cfg); err != nil {
		return nil, err
	}

	d.Server = server.NewServer(cfg.GetPort(), true, cfg.GetShutdownTimeout())
	d.Server.Handle(cfg.GetHostPath(), d.Bridge)
	control.New(d.Rules).RegisterHandler(d.Server)
	if content != nil {
		content.RegisterHandler(d.Server)
	}
	d.Services.Add(d.Server)
	return d, nil
}

func (d *Daemon) Start() error {
	return d.Services.Start()
}

// Wait waits until all services are finished and closes
// the remaining host connections.
func (d *Daemon) Wait() error {
	err := d.Services.Wait()
	d.Bridge.Close()
	return err
}
