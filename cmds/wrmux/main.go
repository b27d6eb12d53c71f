package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/spf13/pflag"

	"github.com/mandelsoft/webrequest/pkg/config"
	"github.com/mandelsoft/webrequest/pkg/server"
	"github.com/mandelsoft/webrequest/pkg/utils"
)

func Error(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}

func main() {
	var configs []string
	var port int
	var level string
	var workers int
	var content string

	flags := pflag.NewFlagSet("wrmux", pflag.ExitOnError)

	flags.StringArrayVarP(&configs, "config", "c", nil, "config file (may be repeated)")
	flags.IntVarP(&port, "port", "p", config.DEFAULT_PORT, "server port")
	flags.StringVarP(&level, "log-level", "L", config.DEFAULT_LOG_LEVEL, "log level")
	flags.IntVarP(&workers, "workers", "w", 0, "number of notification workers")
	flags.StringVarP(&content, "content", "C", "", "directory served below /content/")

	err := flags.Parse(os.Args[1:])
	if err != nil {
		Error("invalid arguments: %s", err)
	}

	cfg, err := config.Load(osfs.OsFs, configs...)
	if err != nil {
		Error("invalid configuration: %s", err)
	}
	if flags.Changed("port") {
		cfg.Server.Port = utils.Pointer(port)
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = utils.Pointer(level)
	}
	if flags.Changed("workers") {
		cfg.NotificationWorkers = utils.Pointer(workers)
	}
	if err := cfg.Validate(); err != nil {
		Error("invalid configuration: %s", err)
	}

	l, err := logging.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		Error("invalid log level %q", cfg.GetLogLevel())
	}
	lctx := logging.DefaultContext()
	lctx.AddRule(logging.NewConditionRule(l, logging.NewRealmPrefix("webrequest")))

	var handler *server.DirectoryHandler
	if content != "" {
		handler, err = server.NewDirectoryHandlerFor(content, "/content")
		if err != nil {
			Error("cannot serve %q: %s", content, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := NewDaemon(ctx, cfg, handler)
	if err != nil {
		Error("cannot setup multiplexer: %s", err)
	}
	err = d.Start()
	if err != nil {
		Error("cannot start services: %s", err)
	}
	log.Info("multiplexer running on port {{port}} (hosts connect to {{path}})", "port", cfg.GetPort(), "path", cfg.GetHostPath())
	err = d.Wait()
	if err != nil {
		Error("%s", err)
	}
}
