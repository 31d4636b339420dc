// Package transport moves encoded values between a guest and its host.
//
// Two shapes are supported:
//
//	Stream    : one long-lived bidirectional connection (socket mode)
//	Inbox/Outbox files : read once at start, written once at the end (file-pair mode)
//
// A Stream carries exactly one value per Send or Recv. Exchange holds the
// stream lock across a Send and the following Recv so that concurrent
// callers never interleave request and response. Once a receive fails the
// stream is treated as broken, because the position of the next value in the
// byte stream is no longer known.
//
// Connection, read and write failures wrap ErrTransport. File failures wrap
// ErrIO. Encode and decode failures wrap codec.ErrCodec unchanged.
package transport
