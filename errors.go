package irc

import "errors"

var (
	// ErrNoServers is returned by NewClient when the failover list is
	// empty.
	ErrNoServers = errors.New("irc: no servers configured")

	// ErrNoNick is returned by NewClient when Config.Nick is empty.
	ErrNoNick = errors.New("irc: no nick configured")

	// ErrSASLCredentials is returned by NewClient when the configured
	// SASL mechanism needs credentials and none were provided.
	ErrSASLCredentials = errors.New("irc: SASL mechanism requires credentials")

	// ErrClientDone is returned by Send and Connect once the client is
	// terminally disconnected, after Quit completes or Close is called.
	ErrClientDone = errors.New("irc: client is done")
)
