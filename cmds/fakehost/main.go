package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mandelsoft/logging"
	"github.com/spf13/pflag"

	"github.com/mandelsoft/webrequest/pkg/bridge"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

func Error(msg string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
	os.Exit(1)
}

func main() {
	var address string
	var rate time.Duration
	var count int
	var level string = "info"

	flags := pflag.NewFlagSet("fakehost", pflag.ExitOnError)

	flags.StringVarP(&address, "server", "s", "ws://localhost:8080/host", "multiplexer host endpoint")
	flags.DurationVarP(&rate, "rate", "r", time.Second, "delay between requests")
	flags.IntVarP(&count, "count", "n", 0, "number of requests (0 = unlimited)")
	flags.StringVarP(&level, "log-level", "L", level, "log level")

	err := flags.Parse(os.Args[1:])
	if err != nil {
		Error("invalid arguments: %s", err)
	}

	l, err := logging.ParseLevel(level)
	if err != nil {
		Error("invalid log level %q", level)
	}
	logging.DefaultContext().AddRule(logging.NewConditionRule(l, logging.NewRealmPrefix("webrequest")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	con, err := bridge.NewClient(address).Connect(ctx, func(event webrequest.EventType, hook *bridge.Hook) {
		if hook == nil {
			log.Info("hook for {{event}} removed", "event", event)
		} else {
			log.Info("hook for {{event}} installed: {{urls}}", "event", event, "urls", hook.URLs)
		}
	})
	if err != nil {
		Error("cannot connect to %s: %s", address, err)
	}

	sim := NewSimulator(con)
	for i := 0; count == 0 || i < count; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(rate):
		}

		url := ""
		if hooks := con.Hooks(); len(hooks) > 0 {
			url = SampleURL(Random(Random(hooks).URLs))
		}
		if url == "" {
			url = SampleURL(Random([]string{"https://*/*", "http://*/*", "https://*.example.com/*"}))
		}
		method := Random([]string{"GET", "GET", "GET", "POST"})
		log.Info("{{method}} {{url}} -> {{result}}", "method", method, "url", url, "result", sim.Request(ctx, method, url))
	}
	con.Close()
	if err := con.Wait(); err != nil {
		Error("connection failed: %s", err)
	}
}
