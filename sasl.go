package irc

import (
	"context"
	"encoding/base64"

	"github.com/pior/irc/wire"
)

// SASLMech identifies a SASL mechanism negotiated through the sasl
// capability.
type SASLMech string

const (
	// SASLNone disables authentication. The sasl capability is still
	// requested when the server advertises it, but nothing is
	// authenticated once it is enabled.
	SASLNone SASLMech = ""

	// SASLPlain authenticates with a login and password (RFC 4616).
	// Requires Config.SASLCredentials.
	SASLPlain SASLMech = "PLAIN"

	// SASLExternal authenticates with credentials carried by the
	// transport itself, typically a TLS client certificate.
	SASLExternal SASLMech = "EXTERNAL"
)

// SASLCredentials holds the identity used by SASLPlain.
type SASLCredentials struct {
	Login    string
	Password string
}

// saslAuth is the capability handler for sasl. It runs the AUTHENTICATE
// exchange after the server enables the capability and before CAP END,
// so registration completes already authenticated.
//
// A missing or unexpected challenge gives up quietly. The server then
// decides whether an unauthenticated registration is acceptable.
func saslAuth(ctx context.Context, client *Client) error {
	mech := client.conf.saslMech
	if mech == SASLNone {
		return nil
	}

	log := client.log.WithField("mechanism", string(mech))

	if err := client.Send(ctx, wire.CmdAuthenticate+" "+string(mech)); err != nil {
		return err
	}

	challenge := client.WaitFor(ctx, client.conf.saslTimeout, wire.CmdAuthenticate)
	if challenge == nil {
		log.Warn("no AUTHENTICATE challenge from server, giving up")
		return nil
	}
	if challenge.Param(0) != "+" {
		log.WithField("challenge", challenge.Param(0)).Debug("unexpected AUTHENTICATE challenge")
		return nil
	}

	switch mech {
	case SASLPlain:
		creds := client.conf.saslCreds
		identity := client.Nick() + "\x00" + creds.Login + "\x00" + creds.Password
		payload := base64.StdEncoding.EncodeToString([]byte(identity))
		return client.Send(ctx, wire.CmdAuthenticate+" "+payload)
	default:
		return client.Send(ctx, wire.CmdAuthenticate+" +")
	}
}
