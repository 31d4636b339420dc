package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ggoodman/amele-go/internal/codec"
)

var (
	// ErrTransport is wrapped by every connect, read and write failure.
	ErrTransport = errors.New("transport error")
	// ErrStreamClosed indicates the stream was closed locally.
	ErrStreamClosed = errors.New("stream closed")
	// ErrStreamBroken indicates an earlier receive failed part way through a value.
	ErrStreamBroken = errors.New("stream broken")
)

// DialFunc opens a connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Dial connects to addr over TCP and wraps the connection in a Stream. A nil
// dial uses a zero net.Dialer.
func Dial(ctx context.Context, addr string, dial DialFunc) (*Stream, error) {
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	conn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrTransport, addr, err)
	}
	return NewStream(conn), nil
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// readRecorder remembers the last error returned by the underlying reader so
// that decode failures caused by the connection can be told apart from
// malformed payloads.
type readRecorder struct {
	r   io.Reader
	err error
}

func (rr *readRecorder) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil {
		rr.err = err
	}
	return n, err
}

// Stream sends and receives one encoded value at a time over a connection.
type Stream struct {
	mu     sync.Mutex
	conn   io.ReadWriteCloser
	rr     *readRecorder
	dec    *codec.Decoder
	closed bool
	broken error
}

// NewStream wraps an established connection.
func NewStream(conn io.ReadWriteCloser) *Stream {
	rr := &readRecorder{r: conn}
	return &Stream{conn: conn, rr: rr, dec: codec.NewDecoder(rr)}
}

// Send encodes v and writes it to the stream.
func (s *Stream) Send(ctx context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withContext(ctx, func() error { return s.send(v) })
}

// Recv blocks until one complete value has been read into v.
func (s *Stream) Recv(ctx context.Context, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withContext(ctx, func() error { return s.recv(v) })
}

// Exchange sends req and then receives one value into resp without releasing
// the stream in between.
func (s *Stream) Exchange(ctx context.Context, req, resp any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withContext(ctx, func() error {
		if err := s.send(req); err != nil {
			return err
		}
		return s.recv(resp)
	})
}

// Close closes the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// withContext runs op with ctx's deadline and cancellation bound to the
// connection when the connection supports deadlines. Callers hold s.mu.
func (s *Stream) withContext(ctx context.Context, op func() error) error {
	if s.closed {
		return fmt.Errorf("%w: %w", ErrTransport, ErrStreamClosed)
	}
	if s.broken != nil {
		return fmt.Errorf("%w: %w: %w", ErrTransport, ErrStreamBroken, s.broken)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	d, ok := s.conn.(deadliner)
	if !ok {
		return op()
	}
	if dl, has := ctx.Deadline(); has {
		_ = d.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = d.SetDeadline(time.Now()) })
	defer func() {
		stop()
		_ = d.SetDeadline(time.Time{})
	}()

	err := op()
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w: %w", ErrTransport, ctx.Err(), err)
	}
	return err
}

func (s *Stream) send(v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(data); err != nil {
		s.broken = err
		return fmt.Errorf("%w: write: %w", ErrTransport, err)
	}
	return nil
}

func (s *Stream) recv(v any) error {
	s.rr.err = nil
	err := s.dec.Decode(v)
	if err == nil {
		return nil
	}
	if rerr := s.rr.err; rerr != nil {
		s.broken = rerr
		if errors.Is(rerr, io.EOF) {
			return fmt.Errorf("%w: read: connection closed by host: %w", ErrTransport, rerr)
		}
		return fmt.Errorf("%w: read: %w", ErrTransport, rerr)
	}
	s.broken = err
	return err
}
