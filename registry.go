package irc

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/pior/irc/wire"
)

// Handler processes one inbound message. Handlers run concurrently with
// each other and with the read loop, and must not block on the client's
// own Send path without a deadline.
//
// A returned error is logged and counted. It does not stop dispatch and
// does not close the connection.
type Handler func(ctx context.Context, client *Client, msg *wire.Message) error

// registry maps command names to handlers. Commands are stored uppercase.
// Each registration gets a random token so the same handler can be
// registered several times and removed individually.
type registry struct {
	mu       sync.Mutex
	handlers map[string]map[uint32]Handler
	tokens   map[uint32]string

	nextToken func() uint32 // for testing purposes only
}

func newRegistry() *registry {
	return &registry{
		handlers:  make(map[string]map[uint32]Handler),
		tokens:    make(map[uint32]string),
		nextToken: rand.Uint32,
	}
}

func (r *registry) register(command string, handler Handler) uint32 {
	command = strings.ToUpper(command)

	r.mu.Lock()
	defer r.mu.Unlock()

	var token uint32
	for {
		token = r.nextToken()
		if token == 0 {
			continue
		}
		if _, taken := r.tokens[token]; !taken {
			break
		}
	}

	byToken := r.handlers[command]
	if byToken == nil {
		byToken = make(map[uint32]Handler)
		r.handlers[command] = byToken
	}
	byToken[token] = handler
	r.tokens[token] = command

	return token
}

func (r *registry) unregister(token uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	command, ok := r.tokens[token]
	if !ok {
		return
	}
	delete(r.tokens, token)

	byToken := r.handlers[command]
	delete(byToken, token)
	if len(byToken) == 0 {
		delete(r.handlers, command)
	}
}

// matching returns the handlers registered for command, plus the ones
// registered for the wildcard. The returned slice is a snapshot.
func (r *registry) matching(command string) []Handler {
	command = strings.ToUpper(command)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.handlers[command])
	if command != wire.Wildcard {
		n += len(r.handlers[wire.Wildcard])
	}
	if n == 0 {
		return nil
	}

	matched := make([]Handler, 0, n)
	for _, handler := range r.handlers[command] {
		matched = append(matched, handler)
	}
	if command != wire.Wildcard {
		for _, handler := range r.handlers[wire.Wildcard] {
			matched = append(matched, handler)
		}
	}
	return matched
}
