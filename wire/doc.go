// Package wire provides a low-level wire protocol implementation for the
// IRC client protocol (RFC 1459/2812 with IRCv3 message-tags and
// capability lists).
//
// This package serves as a foundation for building higher-level IRC
// clients with different properties (dispatch models, reconnection
// policies, bouncers, bots). It focuses on correctness for framing,
// parsing and serialization, without imposing architectural decisions on
// clients.
//
// # Core Types
//
// Message and Cap are pure data containers without embedded logic:
//
//   - Message: one parsed protocol line (tags, source, command, params)
//   - Cap: one capability token from a CAP LS/ACK/NAK list
//   - LineFramer: a stateful splitter turning a byte stream into lines
//
// # Framing
//
// The protocol is line oriented: every unit is a CRLF-terminated line.
// LineFramer accepts arbitrary byte chunks and yields every complete
// line, keeping a trailing partial line buffered for the next chunk:
//
//	var framer wire.LineFramer
//	for line := range framer.Feed(chunk) {
//	    msg, err := wire.ParseMessage(line)
//	    ...
//	}
//
// Chunk boundaries may fall anywhere, including between the CR and the
// LF of a terminator. A bare LF is not a terminator.
//
// # Parsing
//
// ParseMessage parses a single line (terminator already stripped):
//
//	msg, err := wire.ParseMessage([]byte(":irc.example.org 005 nick EXCEPTS :are supported"))
//	if err != nil {
//	    // malformed line; skip it, the stream is still aligned
//	}
//
// Parsing one line never affects the next: a malformed line is reported
// through a *ParseError and the caller decides whether to drop or
// surface it. ShouldCloseConnection returns false for parse errors since
// CRLF framing keeps the stream aligned regardless of line content.
//
// # Serialization
//
// WriteLine appends the CRLF terminator and writes the line in a single
// Write call:
//
//	err := wire.WriteLine(conn, "CAP LS 302")
//
// Text containing CR or LF is rejected with *InvalidLineError before
// anything is written, so one call can never emit two protocol lines.
//
// # Error Handling
//
// The package defines error types that indicate connection state:
//
//   - ParseError: one inbound line was malformed, connection can be REUSED
//   - InvalidLineError: outbound text rejected client-side, connection can be REUSED
//   - ConnectionError: network/I/O failure, connection already broken
//
// Use ShouldCloseConnection to determine error handling strategy:
//
//	if err != nil {
//	    if wire.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	}
//
// # Thread Safety
//
// Message and Cap values are immutable after parsing and safe to share.
// LineFramer is not thread-safe; feed it from a single reading goroutine.
// WriteLine is safe for concurrent use only with distinct writers, or
// with external locking on a shared one.
package wire
