package bridge

import (
	"bufio"
	"context"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/mandelsoft/webrequest/pkg/pattern"
	"github.com/mandelsoft/webrequest/pkg/utils"
	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

// Client connects a host to a bridge.
type Client struct {
	dialer     ws.Dialer
	url        string
	pingPeriod time.Duration
}

func NewClient(url string, dialer ...ws.Dialer) *Client {
	return &Client{
		dialer:     utils.OptionalDefaulted(ws.DefaultDialer, dialer...),
		url:        url,
		pingPeriod: DEFAULT_PING_PERIOD / 3,
	}
}

// WithPingPeriod sets the period for ping messages.
// A non-positive period disables pings.
func (c *Client) WithPingPeriod(d time.Duration) *Client {
	c.pingPeriod = d
	return c
}

// HookHandler is called for every hook change. For an
// uninstalled hook it gets nil.
type HookHandler func(event webrequest.EventType, hook *Hook)

// Connect opens a host connection. The connection is closed
// when the context is canceled.
func (c *Client) Connect(ctx context.Context, h ...HookHandler) (*Connection, error) {
	conn, br, _, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return nil, err
	}
	if br != nil {
		// the bridge replays its hooks right after the handshake
		conn = &bufferedConn{Conn: conn, br: br}
	}
	done, trigger := utils.NewSyncPoint()
	con := &Connection{
		conn:    conn,
		handler: utils.Optional(h...),
		hooks:   map[webrequest.EventType]*Hook{},
		pending: map[uint64]chan *Message{},
		done:    done,
		trigger: trigger,
	}
	go con.receive()
	go func() {
		select {
		case <-ctx.Done():
			con.Close()
		case <-done.Done():
		}
	}()
	if c.pingPeriod > 0 {
		go con.keepAlive(c.pingPeriod)
	}
	return con, nil
}

// bufferedConn reads the data already buffered during the
// handshake before reading from the connection.
type bufferedConn struct {
	net.Conn
	br *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	if c.br != nil {
		if c.br.Buffered() > 0 {
			return c.br.Read(p)
		}
		ws.PutReader(c.br)
		c.br = nil
	}
	return c.Conn.Read(p)
}

// Hook is a hook installed by the bridge.
type Hook struct {
	Event    webrequest.EventType
	URLs     []string
	Digest   string
	matchers []pattern.Matcher
}

// Matches checks whether records for a URL should be
// delivered for this hook.
func (h *Hook) Matches(url string) bool {
	for _, m := range h.matchers {
		if m.Match(url) {
			return true
		}
	}
	return false
}

func newHook(m *Message) (*Hook, error) {
	h := &Hook{Event: m.Event, URLs: slices.Clone(m.URLs), Digest: m.Digest}
	for _, p := range m.URLs {
		matcher, err := pattern.Compile(p)
		if err != nil {
			return nil, err
		}
		h.matchers = append(h.matchers, matcher)
	}
	return h, nil
}

// Connection is the host side of a bridge connection.
type Connection struct {
	conn    net.Conn
	handler HookHandler

	wlock sync.Mutex

	lock    sync.Mutex
	seq     uint64
	closed  bool
	err     error
	hooks   map[webrequest.EventType]*Hook
	pending map[uint64]chan *Message

	done    utils.Sync
	trigger utils.SyncTrigger
}

func (c *Connection) send(m *Message) error {
	c.wlock.Lock()
	defer c.wlock.Unlock()
	return wsutil.WriteClientMessage(c.conn, ws.OpText, m.Data())
}

// Hook provides the hook currently installed for an event type,
// or nil.
func (c *Connection) Hook(event webrequest.EventType) *Hook {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.hooks[event]
}

func (c *Connection) Hooks() []*Hook {
	c.lock.Lock()
	defer c.lock.Unlock()
	return utils.TransformSlice(utils.OrderedMapKeys(c.hooks), func(e webrequest.EventType) *Hook { return c.hooks[e] })
}

// Ping refreshes the health state of the connection on the bridge.
func (c *Connection) Ping() error {
	return c.send(&Message{Type: MSG_PING})
}

func (c *Connection) keepAlive(period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-c.done.Done():
			return
		case <-t.C:
			if err := c.Ping(); err != nil {
				log.LogError(err, "ping failed")
			}
		}
	}
}

// Deliver sends a record to the bridge, if a hook matching the
// record URL is installed. The second result is false if there
// is no such hook. For callback events it waits for the decision.
func (c *Connection) Deliver(ctx context.Context, event webrequest.EventType, rec *webrequest.Record) (*webrequest.Decision, bool, error) {
	h := c.Hook(event)
	if h == nil || !h.Matches(rec.URL) {
		return nil, false, nil
	}
	m := &Message{Type: MSG_EVENT, Event: event, Record: rec}
	if !event.HasCallback() {
		return nil, true, c.send(m)
	}

	reply := make(chan *Message, 1)
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil, true, ErrConnectionClosed
	}
	c.seq++
	m.Seq = c.seq
	c.pending[m.Seq] = reply
	c.lock.Unlock()

	defer func() {
		c.lock.Lock()
		delete(c.pending, m.Seq)
		c.lock.Unlock()
	}()

	if err := c.send(m); err != nil {
		return nil, true, err
	}
	select {
	case <-ctx.Done():
		return nil, true, ctx.Err()
	case r, ok := <-reply:
		if !ok {
			return nil, true, ErrConnectionClosed
		}
		if r.Error != "" {
			return nil, true, &RemoteError{r.Error}
		}
		return r.Decision, true, nil
	}
}

func (c *Connection) receive() {
	for {
		data, op, err := wsutil.ReadServerData(c.conn)
		if err != nil {
			c.close(err)
			return
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}
		m, err := ParseMessage(data)
		if err != nil {
			log.LogError(err, "invalid message from bridge")
			continue
		}
		c.handle(m)
	}
}

func (c *Connection) handle(m *Message) {
	switch m.Type {
	case MSG_HOOK:
		h, err := newHook(m)
		if err != nil {
			log.LogError(err, "invalid hook for {{event}}", "event", m.Event)
			return
		}
		c.lock.Lock()
		c.hooks[m.Event] = h
		c.lock.Unlock()
		if c.handler != nil {
			c.handler(m.Event, h)
		}
	case MSG_UNHOOK:
		c.lock.Lock()
		delete(c.hooks, m.Event)
		c.lock.Unlock()
		if c.handler != nil {
			c.handler(m.Event, nil)
		}
	case MSG_DECISION, MSG_ERROR:
		c.lock.Lock()
		reply := c.pending[m.Seq]
		delete(c.pending, m.Seq)
		c.lock.Unlock()
		if reply != nil {
			reply <- m
		} else if m.Type == MSG_ERROR {
			log.Error("bridge error: {{error}}", "error", m.Error)
		}
	default:
		log.Error("unexpected message type {{type}}", "type", m.Type)
	}
}

func (c *Connection) close(err error) {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}
	c.closed = true
	if !IsErrClosed(err) {
		c.err = err
	}
	pending := c.pending
	c.pending = map[uint64]chan *Message{}
	c.lock.Unlock()

	for _, r := range pending {
		close(r)
	}
	c.conn.Close()
	c.trigger.Trigger()
}

func (c *Connection) Close() error {
	c.close(ErrConnectionClosed)
	return nil
}

// Wait waits until the connection is closed and returns
// the error causing the close.
func (c *Connection) Wait() error {
	c.done.Wait(context.Background())
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.err
}
