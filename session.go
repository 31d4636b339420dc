package amele

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ggoodman/amele-go/internal/codec"
	"github.com/ggoodman/amele-go/internal/config"
	"github.com/ggoodman/amele-go/internal/logctx"
	"github.com/ggoodman/amele-go/transport"
	"github.com/ggoodman/amele-go/wire"
	"github.com/google/uuid"
)

// Mode selects how a Session reaches its host.
type Mode = config.Mode

const (
	// ModeSocket talks to the host over a TCP connection to 127.0.0.1.
	ModeSocket = config.ModeSocket
	// ModeFile reads an inbox file at Accept and writes an outbox file at Respond.
	ModeFile = config.ModeFile
)

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateReady
)

func (st sessionState) String() string {
	if st == stateReady {
		return "ready"
	}
	return "uninitialized"
}

// Session is one guest/host exchange: a single Accept, any number of
// CallFunction round trips in socket mode, and a final Respond.
//
// A Session is safe for concurrent use. Calls on the same socket are
// serialized; each holds the connection for its whole request and response.
type Session struct {
	cfg   Config
	log   *slog.Logger
	dial  transport.DialFunc
	newID func() string

	mu      sync.Mutex
	state   sessionState
	stream  *transport.Stream
	context wire.Map
}

// NewSession constructs a Session. Without WithConfig the zero Config is used,
// which selects file-pair mode with no inbox: Accept yields empty inputs.
func NewSession(opts ...Option) *Session {
	s := &Session{
		log:   slog.Default(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logctx.New(s.log)
	return s
}

// NewSessionFromEnv constructs a Session configured from the environment.
func NewSessionFromEnv(opts ...Option) (*Session, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return NewSession(append([]Option{WithConfig(cfg)}, opts...)...), nil
}

// Mode reports the transport mode selected by the configuration.
func (s *Session) Mode() Mode { return s.cfg.Mode() }

// Accept performs the session handshake and returns the host's inputs. The
// envelope's context is stored and later available from Context.
//
// In socket mode Accept connects to 127.0.0.1:AMELE_TCP_PORT and reads one
// envelope. In file-pair mode it reads AMELE_INBOX_FILE if set; without an
// inbox both inputs and context are empty. The context and inputs sub-fields
// are taken best-effort: an absent or non-mapping value becomes an empty map.
// An envelope that cannot be decoded at all fails with ErrCodec.
//
// A failed Accept leaves the session uninitialized. Accept on a ready session
// fails with ErrAlreadyInitialized.
func (s *Session) Accept(ctx context.Context) (wire.Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = s.logContext(ctx)
	if s.state == stateReady {
		return nil, ErrAlreadyInitialized
	}

	var (
		env    wire.Envelope
		stream *transport.Stream
		err    error
	)
	switch {
	case s.cfg.Mode() == ModeSocket:
		env, stream, err = s.acceptSocket(ctx)
	case s.cfg.InboxFile != "":
		env, err = s.acceptInbox(ctx)
	default:
		s.log.DebugContext(ctx, "session.accept.no_channel")
		env = wire.Envelope{Context: wire.Map{}, Inputs: wire.Map{}}
	}
	if err != nil {
		s.log.ErrorContext(ctx, "session.accept.fail", slog.String("err", err.Error()))
		return nil, err
	}

	s.stream = stream
	s.context = env.Context
	s.state = stateReady
	s.log.DebugContext(ctx, "session.accept.ok",
		slog.Int("context_keys", len(env.Context)),
		slog.Int("input_keys", len(env.Inputs)),
	)
	return env.Inputs, nil
}

func (s *Session) acceptSocket(ctx context.Context) (wire.Envelope, *transport.Stream, error) {
	if s.cfg.TCPPort == "" {
		return wire.Envelope{}, nil, &ConfigError{Var: config.EnvTCPPort}
	}
	stream, err := transport.Dial(ctx, s.cfg.Addr(), s.dial)
	if err != nil {
		return wire.Envelope{}, nil, err
	}

	var raw any
	if err := stream.Recv(ctx, &raw); err != nil {
		_ = stream.Close()
		return wire.Envelope{}, nil, fmt.Errorf("receive envelope: %w", err)
	}
	env, err := parseEnvelope(raw)
	if err != nil {
		_ = stream.Close()
		return wire.Envelope{}, nil, err
	}
	return env, stream, nil
}

func (s *Session) acceptInbox(ctx context.Context) (wire.Envelope, error) {
	data, err := transport.ReadInbox(s.cfg.InboxFile)
	if err != nil {
		return wire.Envelope{}, err
	}
	var raw any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return wire.Envelope{}, fmt.Errorf("decode envelope %s: %w", s.cfg.InboxFile, err)
	}
	s.log.DebugContext(ctx, "session.inbox.read", slog.Int("bytes", len(data)))
	return parseEnvelope(raw)
}

// parseEnvelope requires the envelope itself to be a mapping; its sub-fields
// are taken best-effort.
func parseEnvelope(raw any) (wire.Envelope, error) {
	m, err := wire.AsMap(raw)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("%w: envelope: %w", ErrCodec, err)
	}
	return wire.ParseEnvelope(m), nil
}

// Context returns a copy of the context received at Accept. It returns an
// empty map if Accept has not succeeded.
func (s *Session) Context() wire.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wire.CloneMap(s.context)
}

// CallFunction asks the host to run function with inputs and blocks until the
// host answers. It is available only in socket mode, after Accept.
//
// The reply must be a call_result carrying the same correlation id; anything
// else fails with a *ProtocolViolationError. A reply with an error field, even
// a nil one, fails with a *RemoteError. Otherwise the result mapping is
// returned, or an empty map when the reply has no result field. A result that
// is not a mapping (nil included) fails with ErrCodec.
func (s *Session) CallFunction(ctx context.Context, function string, inputs wire.Map) (wire.Map, error) {
	s.mu.Lock()
	stream := s.stream
	ctx = s.logContext(ctx)
	s.mu.Unlock()

	if mode := s.cfg.Mode(); mode != ModeSocket {
		return nil, &UnsupportedOperationError{Operation: "CallFunction", Mode: string(mode)}
	}
	if stream == nil {
		return nil, ErrNotInitialized
	}

	id := s.newID()
	ctx = logctx.WithCallData(ctx, &logctx.CallData{Function: function, ID: id})

	var raw any
	if err := stream.Exchange(ctx, wire.NewCallRequest(function, inputs, id), &raw); err != nil {
		s.log.ErrorContext(ctx, "call.exchange.fail", slog.String("err", err.Error()))
		return nil, fmt.Errorf("call %s: %w", function, err)
	}

	resp, ok := wire.Matches(raw, id)
	if !ok {
		s.log.ErrorContext(ctx, "call.protocol_violation")
		return nil, &ProtocolViolationError{ID: id, Response: raw}
	}

	if errVal, present := resp[wire.FieldError]; present {
		msg, err := wire.AsString(errVal)
		if err != nil {
			msg = unknownRemoteError
		}
		s.log.DebugContext(ctx, "call.remote_error", slog.String("message", msg))
		return nil, &RemoteError{Function: function, Message: msg}
	}

	result, present := resp[wire.FieldResult]
	if !present {
		return wire.Map{}, nil
	}
	out, err := wire.AsMap(result)
	if err != nil {
		return nil, fmt.Errorf("%w: call %s: result: %w", ErrCodec, function, err)
	}
	s.log.DebugContext(ctx, "call.ok", slog.Int("result_keys", len(out)))
	return out, nil
}

// Respond publishes the final context to the host. In socket mode it sends a
// respond message on the connection opened by Accept. In file-pair mode it
// replaces AMELE_OUTBOX_FILE with the encoded context.
//
// Respond is meant to be called once; a second call sends (or writes) again.
func (s *Session) Respond(ctx context.Context, c wire.Map) error {
	s.mu.Lock()
	stream := s.stream
	ctx = s.logContext(ctx)
	s.mu.Unlock()

	if c == nil {
		c = wire.Map{}
	}

	if s.cfg.Mode() == ModeSocket {
		if stream == nil {
			return ErrNotInitialized
		}
		if err := stream.Send(ctx, wire.NewRespondMessage(c)); err != nil {
			s.log.ErrorContext(ctx, "session.respond.fail", slog.String("err", err.Error()))
			return fmt.Errorf("respond: %w", err)
		}
		s.log.DebugContext(ctx, "session.respond.ok")
		return nil
	}

	if s.cfg.OutboxFile == "" {
		return &ConfigError{Var: config.EnvOutboxFile}
	}
	data, err := codec.Marshal(c)
	if err != nil {
		return fmt.Errorf("respond: %w", err)
	}
	if err := transport.WriteOutbox(s.cfg.OutboxFile, data); err != nil {
		s.log.ErrorContext(ctx, "session.respond.fail", slog.String("err", err.Error()))
		return err
	}
	s.log.DebugContext(ctx, "session.respond.ok", slog.Int("bytes", len(data)))
	return nil
}

// Close closes the socket connection, if any. The session stays ready, so
// calls after Close fail with ErrTransport.
func (s *Session) Close() error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.Close()
}

// logContext attaches session attributes for the logctx handler. Callers hold s.mu.
func (s *Session) logContext(ctx context.Context) context.Context {
	return logctx.WithSessionData(ctx, &logctx.SessionData{
		Mode:  string(s.cfg.Mode()),
		State: s.state.String(),
	})
}
