package amele

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/ggoodman/amele-go/internal/config"
	"github.com/ggoodman/amele-go/wire"
)

type defaultSession struct {
	once sync.Once
	s    *Session
	err  error
}

var std = &defaultSession{}

func (d *defaultSession) load() (*Session, error) {
	d.once.Do(func() {
		cfg, err := config.FromEnv()
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		if err != nil {
			log.Error("config.env.fail", slog.String("err", err.Error()))
			d.err = err
		}
		d.s = NewSession(WithConfig(cfg), WithLogger(log))
	})
	return d.s, d.err
}

// Default returns the process-wide session, configured from the environment
// on first use. Its logger writes text to stderr at AMELE_LOG_LEVEL.
//
// If the environment could not be decoded, the session carries the zero
// Config and Accept, CallFunction and Respond all report the decode error.
func Default() *Session {
	s, _ := std.load()
	return s
}

// Accept performs the handshake on the Default session and returns its inputs.
func Accept(ctx context.Context) (wire.Map, error) {
	s, err := std.load()
	if err != nil {
		return nil, err
	}
	return s.Accept(ctx)
}

// Context returns the Default session's context.
func Context() wire.Map {
	return Default().Context()
}

// CallFunction calls a host function over the Default session.
func CallFunction(ctx context.Context, function string, inputs wire.Map) (wire.Map, error) {
	s, err := std.load()
	if err != nil {
		return nil, err
	}
	return s.CallFunction(ctx, function, inputs)
}

// Respond publishes the final context over the Default session.
func Respond(ctx context.Context, c wire.Map) error {
	s, err := std.load()
	if err != nil {
		return err
	}
	return s.Respond(ctx, c)
}
