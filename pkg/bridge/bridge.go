package bridge

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gobwas/ws"

	"github.com/mandelsoft/webrequest/pkg/ctxutil"
	"github.com/mandelsoft/webrequest/pkg/healthz"
	"github.com/mandelsoft/webrequest/pkg/metrics"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

const (
	DEFAULT_PING_PERIOD   = 30 * time.Second
	DEFAULT_WRITE_TIMEOUT = 10 * time.Second
)

// HostKey provides the name of the remote host connection
// a record has been received from.
var HostKey = ctxutil.NewValueKey[string]("host")

type hook struct {
	urls    []string
	digest  string
	handler webrequest.Handler
}

func (h *hook) message(event webrequest.EventType) *Message {
	return &Message{Type: MSG_HOOK, Event: event, URLs: h.urls, Digest: h.digest}
}

// Bridge is a webrequest.Host for remote hosts connected
// via websocket. All connected hosts get the same hooks,
// records received from any of them are dispatched to the
// installed handlers.
type Bridge struct {
	lock         sync.Mutex
	pingPeriod   time.Duration
	writeTimeout time.Duration
	seq          int
	hooks        map[webrequest.EventType]*hook
	connections  []*connection
}

var (
	_ webrequest.Host = (*Bridge)(nil)
	_ http.Handler    = (*Bridge)(nil)
)

// New creates a bridge. Connected hosts must send a ping message
// within the ping period to be considered healthy.
func New(pingPeriod ...time.Duration) *Bridge {
	return &Bridge{
		pingPeriod:   utils.OptionalDefaulted(DEFAULT_PING_PERIOD, pingPeriod...),
		writeTimeout: DEFAULT_WRITE_TIMEOUT,
		hooks:        map[webrequest.EventType]*hook{},
	}
}

// WithWriteTimeout sets the time a host may take to accept
// a message. Hosts exceeding it are disconnected.
func (b *Bridge) WithWriteTimeout(d time.Duration) *Bridge {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.writeTimeout = d
	return b
}

func (b *Bridge) Install(event webrequest.EventType, urls []string, digest string, h webrequest.Handler) {
	b.lock.Lock()
	defer b.lock.Unlock()

	n := &hook{urls: slices.Clone(urls), digest: digest, handler: h}
	b.hooks[event] = n
	log.Debug("installing hook for {{event}} ({{digest}})", "event", event, "digest", digest, "hosts", len(b.connections))
	b.broadcast(n.message(event))
}

func (b *Bridge) Uninstall(event webrequest.EventType) {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.hooks, event)
	log.Debug("uninstalling hook for {{event}}", "event", event, "hosts", len(b.connections))
	b.broadcast(&Message{Type: MSG_UNHOOK, Event: event})
}

func (b *Bridge) broadcast(m *Message) {
	for _, c := range b.connections {
		if err := c.send(m); err != nil {
			log.LogError(err, "cannot send {{type}} to {{host}} -> closing connection", "type", m.Type, "host", c.name)
			go c.Close()
		}
	}
}

func (b *Bridge) handler(event webrequest.EventType) webrequest.Handler {
	b.lock.Lock()
	defer b.lock.Unlock()
	if h := b.hooks[event]; h != nil {
		return h.handler
	}
	return nil
}

// Hosts lists the names of the connected hosts.
func (b *Bridge) Hosts() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return utils.TransformSlice(b.connections, func(c *connection) string { return c.name })
}

// Close closes all host connections.
func (b *Bridge) Close() error {
	b.lock.Lock()
	conns := slices.Clone(b.connections)
	b.lock.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return nil
}

// ServeHTTP accepts a host connection and serves it until
// it is closed.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.LogError(err, "cannot upgrade host connection from {{addr}}", "addr", r.RemoteAddr)
		return
	}
	c := b.connect(r.Context(), conn, r.RemoteAddr)
	c.serve()
}

func (b *Bridge) connect(ctx context.Context, conn net.Conn, addr string) *connection {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.seq++
	name := fmt.Sprintf("host-%d (%s)", b.seq, addr)
	ctx = HostKey.WithValue(ctxutil.CancelContext(context.WithoutCancel(ctx)), name)
	c := &connection{
		bridge:  b,
		conn:    conn,
		name:    name,
		key:     "bridge " + name,
		ctx:     ctx,
		timeout: b.writeTimeout,
	}
	log.Info("host {{host}} connected", "host", name)
	healthz.Start(c.key, b.pingPeriod)
	metrics.HostConnected()
	b.connections = append(b.connections, c)

	for _, e := range utils.OrderedMapKeys(b.hooks) {
		if err := c.send(b.hooks[e].message(e)); err != nil {
			log.LogError(err, "cannot replay hooks to {{host}}", "host", name)
			break
		}
	}
	return c
}

func (b *Bridge) remove(c *connection) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.connections = utils.FilterSlice(b.connections, func(e *connection) bool { return e != c })
}
