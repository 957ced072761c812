package irc

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/pior/irc/internal/coarsetime"
	"github.com/pior/irc/wire"
)

// ConnState is the lifecycle state of the client's logical connection.
type ConnState int

const (
	// StateDisconnected means no connection exists and none is being
	// attempted.
	StateDisconnected ConnState = iota

	// StateConnecting means a connection cycle is dialing servers.
	StateConnecting

	// StateConnected means a connection is established.
	StateConnected

	// StateQuitting means Quit was called. The connection may still be
	// up, but it will not be replaced once lost.
	StateQuitting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateQuitting:
		return "quitting"
	default:
		return "unknown"
	}
}

// Config holds configuration for the IRC client.
type Config struct {
	// Nick is the nickname requested at registration.
	// Required: must not be empty.
	Nick string

	// User is the username sent in the USER command.
	// If empty, the current nick is used at registration time.
	User string

	// Realname is the real name sent in the USER command.
	// If empty, the current nick is used at registration time.
	Realname string

	// SASLMechanism is authenticated once a server enables the sasl
	// capability. SASLNone skips authentication.
	SASLMechanism SASLMech

	// SASLCredentials is the identity for SASLPlain.
	// Required when SASLMechanism is SASLPlain.
	SASLCredentials *SASLCredentials

	// ConnectTimeout bounds each connection attempt.
	// Zero means 30 seconds.
	ConnectTimeout time.Duration

	// ReconnectDelay is the pause after a failed attempt or a lost
	// connection before dialing again. Zero means no pause.
	ReconnectDelay time.Duration

	// SASLTimeout bounds the wait for the server's AUTHENTICATE
	// challenge. Zero means 5 seconds.
	SASLTimeout time.Duration

	// TLSConfig is used when dialing servers with TLS enabled.
	// If nil, a default configuration is used, with the server host
	// as ServerName.
	TLSConfig *tls.Config

	// Logger receives lifecycle, dispatch and protocol logs.
	// If nil, logging is disabled.
	Logger logrus.FieldLogger

	// NewCircuitBreaker creates a circuit breaker for a server.
	// Called once per server address when it is first dialed.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) *gobreaker.CircuitBreaker[net.Conn]

	// for testing purposes only
	dial      func(ctx context.Context, server Server) (net.Conn, error)
	nextToken func() uint32
}

// clientConfig holds the connection configuration extracted from Config.
type clientConfig struct {
	saslMech       SASLMech
	saslCreds      *SASLCredentials
	saslTimeout    time.Duration
	connectTimeout time.Duration
	reconnectDelay time.Duration
	tlsConfig      *tls.Config
	newBreaker     func(serverAddr string) *gobreaker.CircuitBreaker[net.Conn]
	dial           func(ctx context.Context, server Server) (net.Conn, error) // for testing
}

// Client is an IRC client protocol engine. It maintains one logical
// connection to one server from a failover list, frames and parses the
// inbound stream, dispatches messages to registered handlers, drives
// capability negotiation and SASL before normal operation, and
// reconnects on its own when the connection is lost.
//
// All methods are safe for concurrent use.
type Client struct {
	servers Servers

	log logrus.FieldLogger

	conf clientConfig

	handlers *registry

	capsMu      sync.Mutex
	capHandlers map[string][]CapHandler

	// Connection lifecycle. connected is a gate channel: it is closed
	// while a connection is up and replaced with a fresh channel on
	// loss, so senders can wait for the next establishment.
	mu           sync.Mutex
	state        ConnState
	conn         *conn
	current      *ConnectedServer
	connected    chan struct{}
	nick         string
	user         string
	realname     string
	quitting     bool
	closed       bool
	cycleRunning bool

	breakersMu sync.RWMutex
	breakers   map[string]*gobreaker.CircuitBreaker[net.Conn]

	done     chan struct{}
	doneOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	lastActivity atomic.Int64

	stats *clientStatsCollector
}

// NewClient creates a client for the given servers. It validates the
// configuration and registers the built-in protocol handlers (PING, CAP,
// 005) and the sasl capability. Nothing is dialed until Connect.
func NewClient(servers Servers, config Config) (*Client, error) {
	if servers == nil || len(servers.List()) == 0 {
		return nil, ErrNoServers
	}
	if config.Nick == "" {
		return nil, ErrNoNick
	}
	if config.SASLMechanism == SASLPlain && config.SASLCredentials == nil {
		return nil, ErrSASLCredentials
	}

	log := config.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	connectTimeout := config.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = 30 * time.Second
	}
	saslTimeout := config.SASLTimeout
	if saslTimeout == 0 {
		saslTimeout = 5 * time.Second
	}

	handlers := newRegistry()
	if config.nextToken != nil {
		handlers.nextToken = config.nextToken
	}

	ctx, cancel := context.WithCancel(context.Background())

	client := &Client{
		servers:     servers,
		log:         log,
		handlers:    handlers,
		capHandlers: make(map[string][]CapHandler),
		conf: clientConfig{
			saslMech:       config.SASLMechanism,
			saslCreds:      config.SASLCredentials,
			saslTimeout:    saslTimeout,
			connectTimeout: connectTimeout,
			reconnectDelay: config.ReconnectDelay,
			tlsConfig:      config.TLSConfig,
			newBreaker:     config.NewCircuitBreaker,
			dial:           config.dial,
		},
		nick:      config.Nick,
		user:      config.User,
		realname:  config.Realname,
		connected: make(chan struct{}),
		breakers:  make(map[string]*gobreaker.CircuitBreaker[net.Conn]),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		stats:     newClientStatsCollector(),
	}

	client.Register(wire.CmdPing, pingHandler)
	client.Register(wire.CmdCap, capHandler)
	client.Register(wire.RplISupport, isupportHandler)
	client.RegisterCap("sasl", saslAuth)

	return client, nil
}

// Register adds a handler for a command or numeric. The wildcard "*"
// matches every message. The returned token removes the registration via
// Unregister.
func (c *Client) Register(command string, handler Handler) uint32 {
	return c.handlers.register(command, handler)
}

// Unregister removes a registration. Unknown tokens are ignored, so it
// is safe to call twice.
func (c *Client) Unregister(token uint32) {
	c.handlers.unregister(token)
}

// Connect establishes a connection, trying each server in order and
// starting over at the end of the list. It returns once a connection is
// established and the registration preamble is sent, or when ctx is
// canceled. After a lost connection the client reconnects on its own;
// Connect does not need to be called again.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.quitting {
		c.mu.Unlock()
		return ErrClientDone
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	gate := c.connected
	if !c.cycleRunning {
		c.cycleRunning = true
		c.state = StateConnecting
		c.wg.Add(1)
		go c.connectCycle(c.ctx, 0)
	}
	c.mu.Unlock()

	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClientDone
	}
}

// connectCycle dials servers round-robin until an attempt succeeds or
// the client shuts down. The server list is re-fetched at the start of
// every pass.
func (c *Client) connectCycle(ctx context.Context, initialDelay time.Duration) {
	defer c.wg.Done()

	if initialDelay > 0 && !sleepCtx(ctx, initialDelay) {
		return
	}

	for {
		for _, server := range c.servers.List() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if c.attempt(ctx, server) {
				return
			}

			if delay := c.conf.reconnectDelay; delay > 0 && !sleepCtx(ctx, delay) {
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// attempt dials one server and finishes the connection setup. It reports
// whether the connect cycle should stop.
func (c *Client) attempt(ctx context.Context, server Server) bool {
	dialCtx, cancel := context.WithTimeout(ctx, c.conf.connectTimeout)
	defer cancel()

	netConn, err := c.dial(dialCtx, server)
	if err != nil {
		c.stats.recordConnectFailure()
		c.log.WithError(err).WithField("server", server.String()).Info("connection attempt failed")
		return false
	}

	return c.establish(netConn, server)
}

func (c *Client) dial(ctx context.Context, server Server) (net.Conn, error) {
	dial := c.conf.dial
	if dial == nil {
		dial = c.dialServer
	}

	breaker := c.breakerFor(server)
	if breaker == nil {
		return dial(ctx, server)
	}
	return breaker.Execute(func() (net.Conn, error) {
		return dial(ctx, server)
	})
}

// dialServer opens the transport, wrapping it in TLS when the server
// descriptor asks for it.
func (c *Client) dialServer(ctx context.Context, server Server) (net.Conn, error) {
	var dialer net.Dialer
	netConn, err := dialer.DialContext(ctx, "tcp", server.Addr())
	if err != nil {
		return nil, err
	}
	if !server.TLS {
		return netConn, nil
	}

	tlsConf := c.conf.tlsConfig
	if tlsConf == nil {
		tlsConf = &tls.Config{}
	}
	tlsConf = tlsConf.Clone()
	if tlsConf.ServerName == "" {
		tlsConf.ServerName = server.Host
	}

	tlsConn := tls.Client(netConn, tlsConf)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		netConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// breakerFor returns the circuit breaker for a server address, creating
// it on first use.
func (c *Client) breakerFor(server Server) *gobreaker.CircuitBreaker[net.Conn] {
	if c.conf.newBreaker == nil {
		return nil
	}
	addr := server.Addr()

	// Fast path: read lock
	c.breakersMu.RLock()
	breaker, exists := c.breakers[addr]
	c.breakersMu.RUnlock()
	if exists {
		return breaker
	}

	// Slow path: write lock and create
	c.breakersMu.Lock()
	defer c.breakersMu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := c.breakers[addr]; exists {
		return breaker
	}

	breaker = c.conf.newBreaker(addr)
	c.breakers[addr] = breaker
	return breaker
}

// establish installs a freshly dialed connection, sends the
// registration preamble, starts the read loop and then releases senders
// blocked on the connected gate. The preamble always reaches the wire
// before any queued Send and before any handler runs.
func (c *Client) establish(netConn net.Conn, server Server) bool {
	cn := newConn(netConn)
	cs := newConnectedServer(server)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cn.close()
		return true
	}
	c.conn = cn
	c.current = cs
	c.cycleRunning = false
	if c.quitting {
		c.state = StateQuitting
	} else {
		c.state = StateConnected
	}
	gate := c.connected
	c.mu.Unlock()

	c.stats.recordConnect()

	log := c.log.WithFields(logrus.Fields{
		"conn_id": cs.ID,
		"server":  server.String(),
	})
	log.Info("connected")

	c.startup(cn, server, log)

	c.wg.Add(1)
	go c.readLoop(cn, log)

	close(gate)
	return true
}

// startup sends the registration preamble in the order servers expect:
// capability discovery first, then the optional password, then identity.
// The identity is read at send time, so a nick set before this
// connection registers is the one announced.
func (c *Client) startup(cn *conn, server Server, log logrus.FieldLogger) {
	nick, user, realname := c.identity()

	lines := []string{
		wire.CmdCap + " " + wire.CapLS + " " + wire.CapVersion,
	}
	if server.Password != "" {
		lines = append(lines, wire.CmdPass+" "+server.Password)
	}
	lines = append(lines,
		wire.CmdNick+" "+nick,
		wire.CmdUser+" "+user+" 0 * :"+realname,
	)

	for _, line := range lines {
		if err := cn.writeLine(line); err != nil {
			log.WithError(err).Warn("registration preamble failed")
			cn.close()
			return
		}
		c.stats.recordLineSent()
		log.Debugf(">> %s", line)
	}
}

// readLoop consumes the connection until it fails, parsing and
// dispatching every complete line.
func (c *Client) readLoop(cn *conn, log logrus.FieldLogger) {
	defer c.wg.Done()

	err := cn.readLines(func(line []byte) {
		c.lastActivity.Store(coarsetime.Now().UnixNano())
		c.stats.recordLineReceived()

		msg, perr := wire.ParseMessage(line)
		if perr != nil {
			c.stats.recordMalformedLine()
			log.WithError(perr).Warn("dropping malformed line")
			return
		}

		log.Debugf("<< %s", line)
		c.dispatch(c.ctx, msg, log)
	})

	log.WithError(err).Info("connection lost")
	c.connectionLost(cn)
}

// dispatch runs every matching handler in its own goroutine. Handler
// errors and panics are contained at this boundary and never reach the
// read loop or sibling handlers.
func (c *Client) dispatch(ctx context.Context, msg *wire.Message, log logrus.FieldLogger) {
	matched := c.handlers.matching(msg.Command)
	if len(matched) == 0 {
		return
	}
	c.stats.recordDispatches(len(matched))

	for _, handler := range matched {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.invoke(ctx, handler, msg, log)
		}()
	}
}

func (c *Client) invoke(ctx context.Context, handler Handler, msg *wire.Message, log logrus.FieldLogger) {
	defer func() {
		if r := recover(); r != nil {
			c.stats.recordHandlerError()
			log.WithField("panic", r).WithField("command", msg.Command).Error("handler panicked")
		}
	}()

	if err := handler(ctx, c, msg); err != nil {
		c.stats.recordHandlerError()
		log.WithError(err).WithField("command", msg.Command).Warn("handler failed")
	}
}

// connectionLost handles the end of a connection's read loop. Unless the
// client is quitting or closed, a reconnection cycle starts.
func (c *Client) connectionLost(cn *conn) {
	cn.close()

	c.mu.Lock()
	if c.conn != cn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.current = nil
	c.connected = make(chan struct{})

	if c.quitting || c.closed {
		c.state = StateDisconnected
		c.mu.Unlock()
		c.markDone()
		return
	}

	c.state = StateConnecting
	c.cycleRunning = true
	c.wg.Add(1)
	go c.connectCycle(c.ctx, c.conf.reconnectDelay)
	c.mu.Unlock()

	c.stats.recordReconnect()
}

func (c *Client) markDone() {
	c.doneOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// Send writes one line to the server, appending the terminator. It
// blocks until a connection is available, so it is safe to call before
// Connect completes. The text must not contain CR or LF.
//
// Once the client has terminated, Send returns ErrClientDone.
func (c *Client) Send(ctx context.Context, text string) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClientDone
		}
		cn := c.conn
		gate := c.connected
		c.mu.Unlock()

		if cn == nil {
			select {
			case <-gate:
				continue
			case <-ctx.Done():
				return ctx.Err()
			case <-c.done:
				return ErrClientDone
			}
		}

		if err := cn.writeLine(text); err != nil {
			return err
		}
		c.stats.recordLineSent()
		c.log.Debugf(">> %s", text)
		return nil
	}
}

// Quit sends QUIT and marks the client as quitting, disabling
// reconnection. Only the first call sends the command; later calls do
// nothing. Done closes once the server drops the connection.
func (c *Client) Quit(ctx context.Context, reason string) error {
	c.mu.Lock()
	if c.quitting || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.quitting = true
	c.state = StateQuitting
	c.mu.Unlock()

	line := wire.CmdQuit
	if reason != "" {
		line += " :" + reason
	}
	return c.Send(ctx, line)
}

// Close tears the client down without the QUIT exchange. The connection
// is dropped, blocked sends and waits are released with ErrClientDone or
// nil results, and every goroutine the client started is waited for.
func (c *Client) Close() {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	cn := c.conn
	c.mu.Unlock()

	if !alreadyClosed {
		if cn != nil {
			cn.close()
		}
		c.markDone()
	}
	c.wg.Wait()
}

// Done returns a channel that closes when the client has terminated:
// after a quit completes with the server dropping the connection, or
// after Close.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Nick returns the nickname currently in use.
func (c *Client) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nick
}

// SetNick records a new nickname for SASL and future registration
// preambles. It does not send a NICK command; use Send for that.
func (c *Client) SetNick(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nick = nick
}

// User returns the username sent in the USER command. When no username
// was set it follows the current nick.
func (c *Client) User() string {
	_, user, _ := c.identity()
	return user
}

// SetUser records a new username for future registration preambles.
// An empty value restores the fallback to the nick.
func (c *Client) SetUser(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
}

// Realname returns the real name sent in the USER command. When no
// real name was set it follows the current nick.
func (c *Client) Realname() string {
	_, _, realname := c.identity()
	return realname
}

// SetRealname records a new real name for future registration
// preambles. An empty value restores the fallback to the nick.
func (c *Client) SetRealname(realname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.realname = realname
}

// identity returns the nick, user and realname as one consistent
// snapshot, resolving unset values against the nick current at call
// time.
func (c *Client) identity() (nick, user, realname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nick = c.nick
	user = c.user
	if user == "" {
		user = nick
	}
	realname = c.realname
	if realname == "" {
		realname = nick
	}
	return nick, user, realname
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// State returns the connection lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentServer returns the negotiation state of the current connection,
// or nil when disconnected.
func (c *Client) CurrentServer() *ConnectedServer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// LastActivity returns the time the last line arrived from the server.
// The zero time means nothing has been received yet. The value has a
// coarse resolution.
func (c *Client) LastActivity() time.Time {
	nanos := c.lastActivity.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// pingHandler answers server keepalive probes, keeping the connection
// alive without caller involvement.
func pingHandler(ctx context.Context, client *Client, msg *wire.Message) error {
	return client.Send(ctx, wire.CmdPong+" :"+msg.Trailing())
}
