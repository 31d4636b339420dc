// Package hosttest provides fake amele hosts for tests: a socket host that
// serves one guest connection and a file host that prepares an inbox and
// watches for the outbox.
package hosttest

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/ggoodman/amele-go/internal/codec"
	"github.com/ggoodman/amele-go/internal/config"
	"github.com/ggoodman/amele-go/wire"
)

// CallHandler produces the raw reply for a call request. Returning nil sends
// nothing, leaving the guest blocked until its context ends.
type CallHandler func(req wire.Map) any

// Result answers every call with a matching call_result carrying result.
func Result(result wire.Map) CallHandler {
	return func(req wire.Map) any {
		return wire.Map{"type": wire.TypeCallResult, "id": req[wire.FieldID], "result": result}
	}
}

// Fail answers every call with a matching call_result carrying errVal.
func Fail(errVal any) CallHandler {
	return func(req wire.Map) any {
		return wire.Map{"type": wire.TypeCallResult, "id": req[wire.FieldID], "error": errVal}
	}
}

// EchoInputs answers every call with the call's own inputs as the result.
func EchoInputs() CallHandler {
	return func(req wire.Map) any {
		return wire.Map{"type": wire.TypeCallResult, "id": req[wire.FieldID], "result": req[wire.FieldInputs]}
	}
}

// Raw is an envelope sent as-is, without encoding.
type Raw []byte

// SocketHost listens on 127.0.0.1 and serves a single guest connection.
type SocketHost struct {
	ln       net.Listener
	envelope any
	handler  CallHandler

	mu     sync.Mutex
	conn   net.Conn
	closed bool
	calls  []wire.Map

	responded chan wire.Map
	done      chan struct{}
}

// NewSocketHost starts a host that sends envelope to the first guest that
// connects, answers its calls with handler (EchoInputs when nil) and records
// its respond message. The listener is closed when the test ends.
func NewSocketHost(t *testing.T, envelope any, handler CallHandler) *SocketHost {
	t.Helper()
	ln, err := net.Listen("tcp", net.JoinHostPort(config.Loopback, "0"))
	if err != nil {
		t.Fatalf("hosttest: listen: %v", err)
	}
	if handler == nil {
		handler = EchoInputs()
	}
	h := &SocketHost{
		ln:        ln,
		envelope:  envelope,
		handler:   handler,
		responded: make(chan wire.Map, 1),
		done:      make(chan struct{}),
	}
	go h.serve(t)
	t.Cleanup(h.close)
	return h
}

// Port is the listening port, suitable for AMELE_TCP_PORT.
func (h *SocketHost) Port() string {
	return portOf(h.ln.Addr())
}

// Config returns a socket-mode configuration pointing at this host.
func (h *SocketHost) Config() config.Config {
	return config.Config{Protocol: string(config.ModeSocket), TCPPort: h.Port()}
}

// Calls returns the call requests received so far.
func (h *SocketHost) Calls() []wire.Map {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]wire.Map, len(h.calls))
	copy(out, h.calls)
	return out
}

// WaitRespond blocks until the guest sends its respond message and returns
// the context it carried.
func (h *SocketHost) WaitRespond(ctx context.Context) (wire.Map, error) {
	select {
	case c := <-h.responded:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *SocketHost) serve(t *testing.T) {
	defer close(h.done)

	conn, err := h.ln.Accept()
	if err != nil {
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.conn = conn
	h.mu.Unlock()
	defer conn.Close()

	if raw, ok := h.envelope.(Raw); ok {
		if _, err := conn.Write(raw); err != nil {
			return
		}
	} else if err := codec.NewEncoder(conn).Encode(h.envelope); err != nil {
		t.Errorf("hosttest: send envelope: %v", err)
		return
	}

	dec := codec.NewDecoder(conn)
	enc := codec.NewEncoder(conn)
	for {
		var msg wire.Map
		if err := dec.Decode(&msg); err != nil {
			return
		}
		switch msg[wire.FieldType] {
		case wire.TypeCall:
			h.mu.Lock()
			h.calls = append(h.calls, msg)
			h.mu.Unlock()
			if reply := h.handler(msg); reply != nil {
				if err := enc.Encode(reply); err != nil {
					return
				}
			}
		case wire.TypeRespond:
			select {
			case h.responded <- wire.MapOrEmpty(msg[wire.FieldContext]):
			default:
			}
		}
	}
}

func (h *SocketHost) close() {
	h.mu.Lock()
	h.closed = true
	conn := h.conn
	h.mu.Unlock()

	_ = h.ln.Close()
	if conn != nil {
		_ = conn.Close()
	}
	<-h.done
}

func portOf(addr net.Addr) string {
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return port
}
