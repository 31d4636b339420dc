// Package config loads the guest's environment-sourced configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Mode selects the transport the guest uses to reach its host.
type Mode string

const (
	// ModeSocket exchanges messages over a TCP connection to 127.0.0.1.
	ModeSocket Mode = "tcp"
	// ModeFile reads an inbox file once and writes an outbox file once.
	ModeFile Mode = "file"
)

// Loopback is the only host the socket transport connects to.
const Loopback = "127.0.0.1"

// Environment variable names.
const (
	EnvProtocol   = "COMMUNICATION_PROTOCOL"
	EnvTCPPort    = "AMELE_TCP_PORT"
	EnvInboxFile  = "AMELE_INBOX_FILE"
	EnvOutboxFile = "AMELE_OUTBOX_FILE"
	EnvLogLevel   = "AMELE_LOG_LEVEL"
)

// Config mirrors the environment. Required-ness depends on the mode and is
// checked by the operation that needs a value.
type Config struct {
	// Protocol is "tcp" for socket mode; anything else is file mode. ENV: COMMUNICATION_PROTOCOL
	Protocol string `env:"COMMUNICATION_PROTOCOL"`
	// TCPPort on 127.0.0.1, required in socket mode. ENV: AMELE_TCP_PORT
	TCPPort string `env:"AMELE_TCP_PORT"`
	// InboxFile holds the initial envelope in file mode. ENV: AMELE_INBOX_FILE
	InboxFile string `env:"AMELE_INBOX_FILE"`
	// OutboxFile receives the final context in file mode. ENV: AMELE_OUTBOX_FILE
	OutboxFile string `env:"AMELE_OUTBOX_FILE"`
	// LogLevel is one of debug, info, warn, error. ENV: AMELE_LOG_LEVEL
	LogLevel string `env:"AMELE_LOG_LEVEL"`
}

// FromEnv decodes Config from the process environment. An environment with
// none of the variables set is valid and yields the zero Config.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// Mode reports the configured transport mode.
func (c Config) Mode() Mode {
	if c.Protocol == string(ModeSocket) {
		return ModeSocket
	}
	return ModeFile
}

// Addr is the socket address for the configured port.
func (c Config) Addr() string {
	return net.JoinHostPort(Loopback, c.TCPPort)
}

// SlogLevel maps LogLevel onto slog levels, defaulting to warn.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
