package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/amele-go/internal/codec"
)

// pipePeer is the far end of a net.Pipe speaking the codec directly.
type pipePeer struct {
	conn net.Conn
	dec  *codec.Decoder
	enc  *codec.Encoder
}

func newPipe(t *testing.T) (*Stream, *pipePeer) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })
	return NewStream(a), &pipePeer{conn: b, dec: codec.NewDecoder(b), enc: codec.NewEncoder(b)}
}

func TestStream_SendRecv(t *testing.T) {
	t.Parallel()
	s, peer := newPipe(t)
	ctx := context.Background()

	got := make(chan map[string]any, 1)
	go func() {
		var m map[string]any
		if err := peer.dec.Decode(&m); err != nil {
			t.Errorf("peer decode: %v", err)
		}
		got <- m
		_ = peer.enc.Encode(map[string]any{"reply": "ok"})
	}()

	if err := s.Send(ctx, map[string]any{"hello": "world"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m := <-got; m["hello"] != "world" {
		t.Fatalf("peer got %#v", m)
	}

	var reply map[string]any
	if err := s.Recv(ctx, &reply); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if reply["reply"] != "ok" {
		t.Fatalf("unexpected reply %#v", reply)
	}
}

func TestStream_ExchangeIsExclusive(t *testing.T) {
	t.Parallel()
	s, peer := newPipe(t)
	ctx := context.Background()

	// The peer echoes each request's n back. If two exchanges interleaved,
	// a caller would see the other caller's n.
	go func() {
		for {
			var req map[string]any
			if err := peer.dec.Decode(&req); err != nil {
				return
			}
			time.Sleep(time.Millisecond)
			if err := peer.enc.Encode(map[string]any{"n": req["n"]}); err != nil {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			var resp map[string]any
			if err := s.Exchange(ctx, map[string]any{"n": n}, &resp); err != nil {
				t.Errorf("Exchange: %v", err)
				return
			}
			if resp["n"] != n {
				t.Errorf("exchange %d got response for %v", n, resp["n"])
			}
		}(int64(i))
	}
	wg.Wait()
}

func TestStream_RecvPeerClosed(t *testing.T) {
	t.Parallel()
	s, peer := newPipe(t)
	_ = peer.conn.Close()

	var v any
	err := s.Recv(context.Background(), &v)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF cause, got %v", err)
	}

	// A broken stream refuses further use.
	if err := s.Send(context.Background(), "x"); !errors.Is(err, ErrStreamBroken) {
		t.Fatalf("expected ErrStreamBroken, got %v", err)
	}
}

func TestStream_RecvMalformed(t *testing.T) {
	t.Parallel()
	s, peer := newPipe(t)
	go func() { _, _ = peer.conn.Write([]byte{0xc1}) }()

	var v map[string]any
	err := s.Recv(context.Background(), &v)
	if !errors.Is(err, codec.ErrCodec) {
		t.Fatalf("expected ErrCodec, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("malformed payload misreported as transport failure: %v", err)
	}
}

func TestStream_DeadlineHonoured(t *testing.T) {
	t.Parallel()
	s, _ := newPipe(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	var v any
	err := s.Recv(ctx, &v)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("deadline not applied")
	}
}

func TestStream_CancelledBeforeSend(t *testing.T) {
	t.Parallel()
	s, _ := newPipe(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStream_Close(t *testing.T) {
	t.Parallel()
	s, _ := newPipe(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.Send(context.Background(), "x"); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("expected ErrStreamClosed, got %v", err)
	}
}

func TestDial(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = codec.NewEncoder(conn).Encode(map[string]any{"greeting": "hi"})
	}()

	s, err := Dial(context.Background(), ln.Addr().String(), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer s.Close()

	var m map[string]any
	if err := s.Recv(context.Background(), &m); err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if !reflect.DeepEqual(m, map[string]any{"greeting": "hi"}) {
		t.Fatalf("got %#v", m)
	}
}

func TestDial_Failure(t *testing.T) {
	t.Parallel()
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("refused")
	}
	if _, err := Dial(context.Background(), "127.0.0.1:1", dial); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
