package bridge

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/mandelsoft/webrequest/pkg/ctxutil"
	"github.com/mandelsoft/webrequest/pkg/healthz"
	"github.com/mandelsoft/webrequest/pkg/metrics"
)

// connection is the bridge side of a host connection.
type connection struct {
	bridge  *Bridge
	conn    net.Conn
	name    string
	key     string
	ctx     context.Context
	timeout time.Duration

	wlock sync.Mutex
	once  sync.Once
}

func (c *connection) send(m *Message) error {
	c.wlock.Lock()
	defer c.wlock.Unlock()
	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return wsutil.WriteServerMessage(c.conn, ws.OpText, m.Data())
}

func (c *connection) serve() {
	defer c.Close()
	for {
		data, op, err := wsutil.ReadClientData(c.conn)
		if err != nil {
			if !IsErrClosed(err) {
				log.LogError(err, "cannot read from {{host}}", "host", c.name)
			}
			return
		}
		if op != ws.OpText && op != ws.OpBinary {
			continue
		}
		m, err := ParseMessage(data)
		if err != nil {
			log.LogError(err, "invalid message from {{host}}", "host", c.name)
			c.send(errorMessage(0, err))
			continue
		}
		switch m.Type {
		case MSG_PING:
			healthz.Tick(c.key)
		case MSG_EVENT:
			go c.handle(m)
		default:
			c.send(errorMessage(m.Seq, fmt.Errorf("unexpected message type %q", m.Type)))
		}
	}
}

func (c *connection) handle(m *Message) {
	if !m.Event.IsValid() || m.Record == nil {
		err := fmt.Errorf("invalid event message for %q", m.Event)
		if m.Event.IsValid() {
			err = fmt.Errorf("record missing for event %s", m.Event)
		}
		c.send(errorMessage(m.Seq, err))
		return
	}

	start := time.Now()
	rec := m.Record
	h := c.bridge.handler(m.Event)
	if h == nil {
		log.Debug("no hook for {{event}} from {{host}}", "event", m.Event, "host", c.name)
		if m.Event.HasCallback() {
			c.send(&Message{Type: MSG_DECISION, Seq: m.Seq, Event: m.Event, Decision: rec.Forward()})
		}
		metrics.EventDispatched(m.Event, metrics.RESULT_FORWARDED, start)
		return
	}

	d, err := h(c.ctx, rec)
	if !m.Event.HasCallback() {
		if err != nil {
			log.LogError(err, "notification {{event}} for {{url}} failed", "event", m.Event, "url", rec.URL)
			metrics.EventDispatched(m.Event, metrics.RESULT_FAILED, start)
		} else {
			metrics.EventDispatched(m.Event, metrics.RESULT_NOTIFIED, start)
		}
		return
	}

	reply := &Message{Type: MSG_DECISION, Seq: m.Seq, Event: m.Event}
	if err != nil {
		reply.Error = err.Error()
		metrics.EventDispatched(m.Event, metrics.RESULT_FAILED, start)
	} else {
		metrics.EventDispatched(m.Event, metrics.RESULT_DECIDED, start)
		if d == nil {
			d = rec.Forward()
		}
		reply.Decision = d
	}
	if err := c.send(reply); err != nil {
		log.LogError(err, "cannot send decision to {{host}}", "host", c.name)
	}
}

func (c *connection) Close() error {
	c.once.Do(func() {
		log.Info("host {{host}} disconnected", "host", c.name)
		ctxutil.Cancel(c.ctx)
		c.conn.Close()
		c.bridge.remove(c)
		healthz.End(c.key)
		metrics.HostDisconnected()
	})
	return nil
}
