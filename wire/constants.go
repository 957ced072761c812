package wire

// CRLF terminates every inbound and outbound protocol line.
const CRLF = "\r\n"

// MaxLineLength is the traditional RFC 1459 ceiling for one line,
// terminator included. The framer and parser tolerate longer lines
// (servers routinely exceed 512 once message-tags are in play); the
// constant exists for callers that want to validate before sending.
const MaxLineLength = 512

// Wildcard matches every command when used as a handler filter.
const Wildcard = "*"

// Commands the engine sends or inspects itself. Anything else flows
// through dispatch untyped.
const (
	// CmdCap carries capability negotiation (subcommand in the second
	// parameter, capability list in the trailing parameter).
	CmdCap = "CAP"

	// CmdAuthenticate carries the SASL exchange in both directions.
	CmdAuthenticate = "AUTHENTICATE"

	// CmdPing is answered automatically with CmdPong.
	CmdPing = "PING"
	CmdPong = "PONG"

	// Session registration commands, sent once per connection in the
	// order PASS, NICK, USER.
	CmdPass = "PASS"
	CmdNick = "NICK"
	CmdUser = "USER"

	// CmdQuit ends the session; the server answers by closing the
	// transport.
	CmdQuit = "QUIT"
)

// CAP subcommands, found in the second parameter of a CAP line.
const (
	// CapLS lists the capabilities the server supports. A "*" in the
	// third parameter marks a paginated reply with more pages coming.
	CapLS = "LS"

	// CapReq asks the server to enable the capability in the trailing
	// parameter.
	CapReq = "REQ"

	// CapAck confirms and CapNak refuses a requested capability.
	CapAck = "ACK"
	CapNak = "NAK"

	// CapEnd closes negotiation so registration can complete.
	CapEnd = "END"
)

// CapVersion is the capability negotiation version requested at startup
// ("CAP LS 302" per IRCv3.2).
const CapVersion = "302"

// Numeric replies the engine inspects.
const (
	// RplWelcome (001) confirms registration completed.
	RplWelcome = "001"

	// RplISupport (005) advertises server feature tokens.
	RplISupport = "005"
)

// MoreMarker flags a paginated CAP LS reply ("CAP * LS * :...").
const MoreMarker = "*"
