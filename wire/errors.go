package wire

import (
	"errors"
	"fmt"
)

// Error types for wire protocol operations.
// These errors help clients determine appropriate error handling strategy,
// particularly regarding connection management (close vs. keep reading).

// ParseError represents a malformed inbound line.
// Because framing splits the stream on CRLF before parsing, one bad line
// never desynchronizes the lines after it.
//
// Common causes:
//   - Empty line between two terminators
//   - Tags or source prefix with nothing after them
//   - Line consisting only of whitespace
//
// Connection handling: connection can be REUSED, skip the line
type ParseError struct {
	Line   []byte
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s: %q", e.Reason, e.Line)
}

// ShouldCloseConnection returns false - the CRLF framing keeps the stream aligned
func (e *ParseError) ShouldCloseConnection() bool {
	return false
}

func newParseError(line []byte, reason string) *ParseError {
	return &ParseError{Line: append([]byte(nil), line...), Reason: reason}
}

// InvalidLineError represents outbound text rejected before writing.
// The text would not survive as a single protocol line.
//
// Common causes:
//   - Embedded CR or LF (would smuggle extra lines past the caller)
//
// Connection handling: connection is still valid, nothing was written
type InvalidLineError struct {
	Message string
}

func (e *InvalidLineError) Error() string {
	return "invalid line: " + e.Message
}

// ShouldCloseConnection returns false - the line was rejected client-side
func (e *InvalidLineError) ShouldCloseConnection() bool {
	return false
}

// ConnectionError wraps underlying I/O errors from transport operations.
// Used to distinguish network issues from protocol errors.
//
// Common causes:
//   - Connection closed by the server
//   - Network timeout
//   - Connection reset
//
// Connection handling: connection is already broken, CLOSE and reconnect
type ConnectionError struct {
	Op  string // Operation that failed (read, write, dial)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean the connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
// Implemented by all wire error types.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether an error requires closing the
// connection.
//
// Returns false for:
//   - ParseError
//   - InvalidLineError
//   - nil
//
// Returns true for:
//   - ConnectionError
//   - any unrecognized error (conservative default)
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}
