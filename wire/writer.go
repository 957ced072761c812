package wire

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
)

// bufferPool recycles line-assembly buffers for unbuffered writers.
var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// ValidateLine checks that text can travel as a single protocol line.
// Embedded CR or LF would let one write smuggle extra lines past the
// caller, so both are rejected.
func ValidateLine(line string) error {
	if strings.ContainsAny(line, CRLF) {
		return &InvalidLineError{Message: "text contains CR or LF"}
	}
	return nil
}

// WriteLine writes line followed by the CRLF terminator.
//
// When w is a *bufio.Writer the pieces are written through its buffer
// and flushed. Otherwise the full line is assembled in a pooled buffer
// and handed to w in a single Write call, so a net.Conn sees one
// syscall per line and concurrent writers cannot interleave partial
// lines (given external locking per connection).
func WriteLine(w io.Writer, line string) error {
	if err := ValidateLine(line); err != nil {
		return err
	}

	if bw, ok := w.(*bufio.Writer); ok {
		return writeLineBuffered(bw, line)
	}
	return writeLineUnbuffered(w, line)
}

func writeLineBuffered(bw *bufio.Writer, line string) error {
	if _, err := bw.WriteString(line); err != nil {
		return err
	}
	if _, err := bw.WriteString(CRLF); err != nil {
		return err
	}
	return bw.Flush()
}

func writeLineUnbuffered(w io.Writer, line string) error {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer bufferPool.Put(buf)

	buf.Reset()
	buf.Grow(len(line) + len(CRLF))
	buf.WriteString(line)
	buf.WriteString(CRLF)

	_, err := w.Write(buf.Bytes())
	return err
}
