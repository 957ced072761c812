package wire

import (
	"bytes"
	"iter"
)

var crlfBytes = []byte(CRLF)

// LineFramer splits a byte stream into CRLF-terminated lines.
//
// Feed it chunks as they arrive from the transport; any trailing partial
// line stays buffered until the rest of it shows up, so chunk boundaries
// may fall anywhere, including between the CR and the LF. The zero value
// is ready to use.
type LineFramer struct {
	buf []byte
}

// Feed appends chunk to the internal buffer and returns an iterator over
// every complete line now available, terminators stripped. A zero-length
// chunk is valid and yields whatever complete lines were already
// buffered.
//
// The yielded slices alias the framer's internal buffer and are valid
// only until the next Feed call; callers that retain a line must copy
// it. Stopping the iteration early keeps the unvisited lines buffered
// for the next call.
func (f *LineFramer) Feed(chunk []byte) iter.Seq[[]byte] {
	if len(f.buf) == 0 {
		// Nothing carried over: reuse the backing array instead of
		// growing it. This invalidates lines from the previous Feed,
		// which the contract already disallows retaining.
		f.buf = append(f.buf[:0], chunk...)
	} else {
		f.buf = append(f.buf, chunk...)
	}

	return func(yield func([]byte) bool) {
		for {
			i := bytes.Index(f.buf, crlfBytes)
			if i < 0 {
				return
			}
			line := f.buf[:i]
			f.buf = f.buf[i+len(crlfBytes):]
			if !yield(line) {
				return
			}
		}
	}
}

// Pending returns the number of buffered bytes still waiting for a
// terminator.
func (f *LineFramer) Pending() int {
	return len(f.buf)
}

// Reset discards any buffered partial line. Used when the transport is
// replaced: bytes from the old connection must not prefix a line from
// the new one.
func (f *LineFramer) Reset() {
	f.buf = nil
}
