package healthz

import (
	"fmt"
	"sync"
	"time"

	"github.com/mandelsoft/logging"

	"github.com/mandelsoft/webrequest/pkg/utils"
)

var REALM = logging.DefineRealm("webrequest/healthz", "server health monitoring")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)

type check struct {
	last    time.Time
	timeout time.Duration
}

var (
	checks = map[string]*check{}
	lock   sync.Mutex
)

// Start configures a health check, which must be ticked
// at least every period. It is outdated after three periods.
func Start(key string, period time.Duration) {
	lock.Lock()
	defer lock.Unlock()

	checks[key] = &check{time.Now(), 3 * period}
}

// Tick refreshes a health check. Ticks for checks not
// configured by Start are ignored.
func Tick(key string) {
	lock.Lock()
	defer lock.Unlock()

	if c := checks[key]; c != nil {
		c.last = time.Now()
	} else {
		log.Trace("tick for unknown health check {{key}}", "key", key)
	}
}

func End(key string) {
	lock.Lock()
	defer lock.Unlock()

	delete(checks, key)
}

func IsHealthy() bool {
	ok, _ := HealthInfo()
	return ok
}

// HealthInfo reports the health state and a description of
// all configured checks.
func HealthInfo() (bool, string) {
	lock.Lock()
	defer lock.Unlock()

	ok := true
	info := ""
	now := time.Now()
	for _, key := range utils.OrderedMapKeys(checks) {
		c := checks[key]
		limit := now.Add(-c.timeout)
		state := "ok"
		if c.last.Before(limit) {
			log.Warn("outdated health check {{key}}", "key", key, "delay", limit.Sub(c.last))
			state = "outdated"
			ok = false
		}
		info = fmt.Sprintf("%s%s: %s (%s)\n", info, key, state, c.last.Format(time.RFC3339))
	}
	return ok, info
}
