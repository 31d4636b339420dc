package amele

import (
	"errors"
	"fmt"

	"github.com/ggoodman/amele-go/internal/codec"
	"github.com/ggoodman/amele-go/transport"
)

var (
	// ErrMissingConfig indicates a required environment value is absent.
	ErrMissingConfig = errors.New("missing configuration")
	// ErrTransport indicates a connect, read or write failure on the socket.
	ErrTransport = transport.ErrTransport
	// ErrCodec indicates a payload could not be encoded or decoded.
	ErrCodec = codec.ErrCodec
	// ErrNotInitialized indicates the operation needs a connection that Accept never established.
	ErrNotInitialized = errors.New("session not initialized")
	// ErrAlreadyInitialized indicates Accept was called on a session that is already ready.
	ErrAlreadyInitialized = errors.New("session already initialized")
	// ErrUnsupportedOperation indicates the operation is not valid in the current mode.
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrProtocolViolation indicates the host sent something other than the expected reply.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrRemote indicates the host reported a failure for a call.
	ErrRemote = errors.New("remote error")
	// ErrIO indicates an inbox or outbox file operation failed.
	ErrIO = transport.ErrIO
)

// ConfigError names the environment variable that was required but unset.
type ConfigError struct {
	Var string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s is not set", e.Var)
}

func (e *ConfigError) Is(target error) bool { return target == ErrMissingConfig }

// UnsupportedOperationError names the operation and the mode that rejected it.
type UnsupportedOperationError struct {
	Operation string
	Mode      string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s is not supported in %s mode", e.Operation, e.Mode)
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupportedOperation }

// ProtocolViolationError carries the unexpected value received in place of a
// matching call_result.
type ProtocolViolationError struct {
	ID       string
	Response any
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("protocol violation: unexpected response for call %s: %#v", e.ID, e.Response)
}

func (e *ProtocolViolationError) Is(target error) bool { return target == ErrProtocolViolation }

// RemoteError is a failure reported by the host for a call.
type RemoteError struct {
	Function string
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error from %s: %s", e.Function, e.Message)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// unknownRemoteError is reported when the host's error field is not a string.
const unknownRemoteError = "Unknown error"
