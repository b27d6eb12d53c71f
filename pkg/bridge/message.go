package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gobwas/ws/wsutil"

	"github.com/mandelsoft/webrequest/pkg/webrequest"
)

type MessageType string

const (
	// MSG_HOOK announces the installed hook for an event type (mux to host).
	MSG_HOOK MessageType = "hook"
	// MSG_UNHOOK announces the removal of a hook (mux to host).
	MSG_UNHOOK MessageType = "unhook"
	// MSG_EVENT delivers a record (host to mux).
	MSG_EVENT MessageType = "event"
	// MSG_DECISION answers an event of a callback event type (mux to host).
	MSG_DECISION MessageType = "decision"
	// MSG_PING keeps the host connection healthy (host to mux).
	MSG_PING MessageType = "ping"
	// MSG_ERROR reports a protocol error.
	MSG_ERROR MessageType = "error"
)

// Message is the frame exchanged over the websocket connection.
// Records and decisions of one event are correlated by Seq.
type Message struct {
	Type     MessageType          `json:"type"`
	Seq      uint64               `json:"seq,omitempty"`
	Event    webrequest.EventType `json:"event,omitempty"`
	URLs     []string             `json:"urls,omitempty"`
	Digest   string               `json:"digest,omitempty"`
	Record   *webrequest.Record   `json:"record,omitempty"`
	Decision *webrequest.Decision `json:"decision,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func (m *Message) Data() []byte {
	data, _ := json.Marshal(m)
	return data
}

func ParseMessage(data []byte) (*Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, err
	}
	if m.Type == "" {
		return nil, errors.New("message type missing")
	}
	return &m, nil
}

func errorMessage(seq uint64, err error) *Message {
	return &Message{Type: MSG_ERROR, Seq: seq, Error: err.Error()}
}

// RemoteError is an error reported by the other side
// of a connection.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

var ErrConnectionClosed = errors.New("connection closed")

// IsErrClosed checks for a closed connection. The net package
// does not export all variants of this error.
func IsErrClosed(err error) bool {
	if err == nil {
		return false
	}
	var cerr wsutil.ClosedError
	return errors.As(err, &cerr) || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, ErrConnectionClosed) ||
		strings.Contains(err.Error(), "use of closed network connection")
}
