package amele

import (
	"log/slog"

	"github.com/ggoodman/amele-go/internal/config"
	"github.com/ggoodman/amele-go/transport"
)

// Option customizes a Session.
type Option func(*Session)

// WithConfig replaces the environment-derived configuration.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDialer overrides how the socket connection is opened.
func WithDialer(dial transport.DialFunc) Option {
	return func(s *Session) {
		if dial != nil {
			s.dial = dial
		}
	}
}

// WithIDGenerator overrides how call correlation tokens are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Session) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Config is the guest configuration, normally read from the environment by
// ConfigFromEnv.
type Config = config.Config

// ConfigFromEnv reads Config from COMMUNICATION_PROTOCOL, AMELE_TCP_PORT,
// AMELE_INBOX_FILE, AMELE_OUTBOX_FILE and AMELE_LOG_LEVEL.
func ConfigFromEnv() (Config, error) {
	return config.FromEnv()
}
