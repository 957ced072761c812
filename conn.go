package irc

import (
	"errors"
	"net"
	"sync"

	"github.com/pior/irc/wire"
)

// conn owns one transport connection. Writes are serialized by a mutex;
// reads happen from a single loop goroutine.
type conn struct {
	netConn net.Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(netConn net.Conn) *conn {
	return &conn{
		netConn: netConn,
		closed:  make(chan struct{}),
	}
}

func (cn *conn) close() {
	cn.closeOnce.Do(func() {
		close(cn.closed)
		cn.netConn.Close()
	})
}

func (cn *conn) isClosed() bool {
	select {
	case <-cn.closed:
		return true
	default:
		return false
	}
}

// writeLine writes one line with the terminator appended. Lines
// containing CR or LF are rejected before any bytes reach the wire.
func (cn *conn) writeLine(line string) error {
	cn.writeMu.Lock()
	defer cn.writeMu.Unlock()

	err := wire.WriteLine(cn.netConn, line)
	if err == nil {
		return nil
	}

	var invalid *wire.InvalidLineError
	if errors.As(err, &invalid) {
		return err
	}
	return &wire.ConnectionError{Op: "write", Err: err}
}

// readLines reads from the transport until it fails, calling handle for
// every complete line. The line slice is only valid during the call.
func (cn *conn) readLines(handle func(line []byte)) error {
	framer := &wire.LineFramer{}
	buf := make([]byte, 4096)

	for {
		n, err := cn.netConn.Read(buf)
		if n > 0 {
			for line := range framer.Feed(buf[:n]) {
				handle(line)
			}
		}
		if err != nil {
			return &wire.ConnectionError{Op: "read", Err: err}
		}
	}
}
