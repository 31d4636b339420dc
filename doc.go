// Package amele is the guest side of the amele host protocol. A function
// running under an amele host uses it to receive its inputs, call back into
// host functions, and hand its final context back.
//
// # Transports
//
//	Socket (COMMUNICATION_PROTOCOL=tcp) : one TCP connection to 127.0.0.1:AMELE_TCP_PORT
//	File pair (anything else)           : AMELE_INBOX_FILE read once, AMELE_OUTBOX_FILE written once
//
// With neither a socket nor an inbox configured, Accept returns empty inputs
// so a function can run standalone.
//
// # Lifecycle
//
//	Accept       -> receive the envelope; store its context; return its inputs
//	CallFunction -> synchronous request/response with the host (socket mode only)
//	Respond      -> publish the final context (terminal)
//
// Payloads are MessagePack value trees; see package wire for the message
// shapes and the value helpers.
//
// # Usage
//
// The package-level functions use a process-wide session configured from the
// environment:
//
//	inputs, err := amele.Accept(ctx)
//	if err != nil { log.Fatal(err) }
//	out, err := amele.CallFunction(ctx, "lookup", wire.Map{"key": inputs["key"]})
//	if err != nil { log.Fatal(err) }
//	c := amele.Context()
//	c["value"] = out["value"]
//	if err := amele.Respond(ctx, c); err != nil { log.Fatal(err) }
//
// Tests and embedders that need several sessions construct them explicitly:
//
//	s := amele.NewSession(amele.WithConfig(cfg), amele.WithLogger(logger))
//
// # Errors
//
// Failures are classified by sentinel errors (ErrMissingConfig, ErrTransport,
// ErrCodec, ErrNotInitialized, ErrUnsupportedOperation, ErrProtocolViolation,
// ErrRemote, ErrIO, ErrAlreadyInitialized) usable with errors.Is. Cases that
// carry detail are typed: *ConfigError, *UnsupportedOperationError,
// *ProtocolViolationError and *RemoteError. Nothing is retried.
package amele
