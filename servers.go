package irc

import (
	"net"
	"strconv"
)

// Server describes one endpoint in the failover list.
// The engine never mutates a Server; reconnection cycles through the
// list in order until an attempt succeeds.
type Server struct {
	// Host and Port locate the server.
	Host string
	Port int

	// TLS dials the connection through crypto/tls when set.
	TLS bool

	// Password is sent with PASS during registration when non-empty.
	Password string
}

// Addr returns the dialable "host:port" form.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// String identifies the server in logs without exposing the password.
func (s Server) String() string {
	return s.Addr()
}

// Servers supplies the ordered failover list.
// List is called at the start of every cycle, so a dynamic
// implementation may reorder or grow the list between rounds.
type Servers interface {
	List() []Server
}

type staticServers struct {
	servers []Server
}

// NewStaticServers builds a fixed failover list.
// For a single server, use: NewStaticServers(Server{Host: "irc.example.org", Port: 6697, TLS: true})
func NewStaticServers(servers ...Server) Servers {
	return &staticServers{servers: servers}
}

func (s *staticServers) List() []Server {
	return s.servers
}
