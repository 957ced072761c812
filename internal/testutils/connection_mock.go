package testutils

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// ConnectionMock is a scriptable net.Conn for tests. Reads serve lines
// queued by the test and block until data arrives or the connection is
// closed, mimicking an idle server socket. Writes are captured for
// inspection.
//
// Safe for the usual split: one goroutine reading, others writing,
// the test driving QueueLine/Close from outside.
type ConnectionMock struct {
	mu       sync.Mutex
	dataCond *sync.Cond
	readBuf  bytes.Buffer
	writeBuf bytes.Buffer
	closed   bool
}

// NewConnectionMock creates an open mock connection with nothing queued.
func NewConnectionMock() *ConnectionMock {
	m := &ConnectionMock{}
	m.dataCond = sync.NewCond(&m.mu)
	return m
}

// QueueLine makes one line, CRLF appended, available to Read.
func (m *ConnectionMock) QueueLine(line string) {
	m.QueueRaw(line + "\r\n")
}

// QueueRaw makes raw bytes available to Read without modification, for
// scripting partial lines and split terminators.
func (m *ConnectionMock) QueueRaw(data string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf.WriteString(data)
	m.dataCond.Broadcast()
}

func (m *ConnectionMock) Read(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.readBuf.Len() == 0 {
		if m.closed {
			return 0, io.EOF
		}
		m.dataCond.Wait()
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, net.ErrClosed
	}
	return m.writeBuf.Write(b)
}

// Close unblocks pending reads. Closing twice is fine.
func (m *ConnectionMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.dataCond.Broadcast()
	return nil
}

// Closed reports whether Close has been called.
func (m *ConnectionMock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Written returns everything written to the connection so far.
func (m *ConnectionMock) Written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeBuf.String()
}

// WrittenLines returns the complete CRLF-terminated lines written so
// far, terminators stripped. A trailing partial line is not included.
func (m *ConnectionMock) WrittenLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lines []string
	data := m.writeBuf.Bytes()
	for {
		i := bytes.Index(data, []byte("\r\n"))
		if i < 0 {
			return lines
		}
		lines = append(lines, string(data[:i]))
		data = data[i+2:]
	}
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6667}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }
