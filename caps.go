package irc

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pior/irc/wire"
)

// CapHandler runs when a capability the client asked for is enabled by
// the server. Capability negotiation stays open until every handler for
// the enabled capability has returned, so a handler can complete a
// sub-exchange (like authentication) before registration proceeds.
//
// A nil handler requests the capability without running anything when it
// is enabled.
type CapHandler func(ctx context.Context, client *Client) error

// CapStatus is the negotiation state of a requested capability.
type CapStatus int

const (
	// CapRequested means the capability was advertised by the server,
	// the client asked for it, and no ACK or NAK arrived yet.
	CapRequested CapStatus = iota

	// CapEnabled means the server acknowledged the capability.
	CapEnabled

	// CapDisabled means the server rejected the capability.
	CapDisabled
)

func (s CapStatus) String() string {
	switch s {
	case CapRequested:
		return "requested"
	case CapEnabled:
		return "enabled"
	case CapDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ConnectedServer describes one established connection. A new value is
// created for every connection, so capability and ISUPPORT state never
// leaks across reconnections.
type ConnectedServer struct {
	// ID is a unique identifier for this connection, useful to
	// correlate log entries across reconnections.
	ID string

	// Server is the address this connection was established to.
	Server Server

	mu         sync.Mutex
	caps       map[string]CapStatus
	isupport   map[string]string
	capEndSent bool

	connectedAt time.Time
}

func newConnectedServer(server Server) *ConnectedServer {
	return &ConnectedServer{
		ID:          uuid.NewString(),
		Server:      server,
		caps:        make(map[string]CapStatus),
		isupport:    make(map[string]string),
		connectedAt: time.Now(),
	}
}

// Cap returns the negotiation status of a capability the client asked
// for. The second return value is false for capabilities that were never
// requested on this connection.
func (cs *ConnectedServer) Cap(name string) (CapStatus, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	status, ok := cs.caps[name]
	return status, ok
}

// Caps returns a snapshot of all requested capabilities and their
// negotiation status.
func (cs *ConnectedServer) Caps() map[string]CapStatus {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return maps.Clone(cs.caps)
}

// ISupport returns the value of an ISUPPORT token advertised by the
// server. Keys are case-insensitive. Tokens advertised without a value
// return an empty string and true.
func (cs *ConnectedServer) ISupport(key string) (string, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	value, ok := cs.isupport[strings.ToUpper(key)]
	return value, ok
}

// ISupportAll returns a snapshot of all ISUPPORT tokens currently
// advertised by the server.
func (cs *ConnectedServer) ISupportAll() map[string]string {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return maps.Clone(cs.isupport)
}

// ConnectedAt returns the time the connection was established.
func (cs *ConnectedServer) ConnectedAt() time.Time {
	return cs.connectedAt
}

func (cs *ConnectedServer) setCapStatus(name string, status CapStatus) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.caps[name] = status
}

// requestedCaps returns the capabilities still waiting for an ACK or
// NAK, sorted for deterministic request order.
func (cs *ConnectedServer) requestedCaps() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var names []string
	for name, status := range cs.caps {
		if status == CapRequested {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// finishNegotiation reports whether negotiation just completed. It
// returns true exactly once per connection, when no capability is left
// in the requested state. The caller sends CAP END on true.
func (cs *ConnectedServer) finishNegotiation() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.capEndSent {
		return false
	}
	for _, status := range cs.caps {
		if status == CapRequested {
			return false
		}
	}
	cs.capEndSent = true
	return true
}

func (cs *ConnectedServer) setISupport(key, value string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.isupport[strings.ToUpper(key)] = value
}

func (cs *ConnectedServer) deleteISupport(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.isupport, strings.ToUpper(key))
}

// RegisterCap arranges for the named capability to be requested when a
// server advertises it, and for handler to run when the server enables
// it. Call it before Connect. Handlers registered after negotiation has
// started may not run for the current connection.
func (c *Client) RegisterCap(name string, handler CapHandler) {
	c.capsMu.Lock()
	defer c.capsMu.Unlock()

	c.capHandlers[name] = append(c.capHandlers[name], handler)
}

func (c *Client) wantsCap(name string) bool {
	c.capsMu.Lock()
	defer c.capsMu.Unlock()

	_, ok := c.capHandlers[name]
	return ok
}

// runCapHandlers runs every handler registered for the capability and
// waits for all of them.
func (c *Client) runCapHandlers(ctx context.Context, name string) error {
	c.capsMu.Lock()
	handlers := slices.Clone(c.capHandlers[name])
	c.capsMu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		g.Go(func() error {
			return handler(ctx, c)
		})
	}
	return g.Wait()
}

// capHandler drives capability negotiation for the current connection.
//
// LS pages accumulate: every advertised capability the client has a
// handler for is marked requested. The final page (no "*" marker)
// triggers one CAP REQ per requested capability. ACK and NAK resolve
// them, ACK additionally running the capability's handlers before the
// completion check. CAP END goes out exactly once, as soon as nothing is
// left unresolved. When the client wants none of the advertised
// capabilities, that is immediately after the final LS page.
func capHandler(ctx context.Context, client *Client, msg *wire.Message) error {
	cs := client.CurrentServer()
	if cs == nil || len(msg.Params) < 2 {
		return nil
	}

	capList := msg.Param(len(msg.Params) - 1)

	switch msg.Param(1) {
	case wire.CapLS:
		for _, capability := range wire.ParseCapList(capList) {
			if client.wantsCap(capability.Name) {
				cs.setCapStatus(capability.Name, CapRequested)
			}
		}
		if len(msg.Params) >= 4 && msg.Param(2) == wire.MoreMarker {
			return nil // more LS pages coming
		}
		for _, name := range cs.requestedCaps() {
			if err := client.Send(ctx, wire.CmdCap+" "+wire.CapReq+" :"+name); err != nil {
				return err
			}
		}

	case wire.CapAck:
		var handlerErr error
		for _, name := range strings.Fields(capList) {
			cs.setCapStatus(name, CapEnabled)
			if err := client.runCapHandlers(ctx, name); err != nil && handlerErr == nil {
				handlerErr = err
			}
		}
		if err := sendCapEndIfDone(ctx, client, cs); err != nil {
			return err
		}
		return handlerErr

	case wire.CapNak:
		for _, name := range strings.Fields(capList) {
			cs.setCapStatus(name, CapDisabled)
		}
	}

	return sendCapEndIfDone(ctx, client, cs)
}

func sendCapEndIfDone(ctx context.Context, client *Client, cs *ConnectedServer) error {
	if !cs.finishNegotiation() {
		return nil
	}
	return client.Send(ctx, wire.CmdCap+" "+wire.CapEnd)
}

// isupportHandler records the ISUPPORT tokens from 005 replies. Tokens
// are "NAME", "NAME=value" or "-NAME", the last form removing a token
// advertised earlier. The leading nick parameter and the trailing
// human-readable text are not tokens.
func isupportHandler(ctx context.Context, client *Client, msg *wire.Message) error {
	cs := client.CurrentServer()
	if cs == nil || len(msg.Params) < 3 {
		return nil
	}

	for _, token := range msg.Params[1 : len(msg.Params)-1] {
		if name, negated := strings.CutPrefix(token, "-"); negated {
			cs.deleteISupport(name)
			continue
		}
		name, value, _ := strings.Cut(token, "=")
		cs.setISupport(name, value)
	}
	return nil
}
