package wire

import (
	"strings"
)

// Message represents one parsed protocol line.
//
// Tags and Source keep their raw wire form with the leading "@" and ":"
// markers stripped. Command is normalized to upper case so that exact
// dispatch matches are well defined regardless of server casing. Params
// holds the middle parameters in order, with the trailing parameter (if
// any) last and its ":" marker removed.
//
// Messages are immutable once parsed; do not modify Params.
type Message struct {
	Tags    string
	Source  string
	Command string
	Params  []string
}

// Param returns the i-th parameter, or "" when absent, sparing call
// sites the bounds check.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Trailing returns the last parameter, or "" when there are none.
func (m *Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// SourceName returns the nick or server portion of the source, the part
// before any "!user@host" suffix.
func (m *Message) SourceName() string {
	name, _, _ := strings.Cut(m.Source, "!")
	return name
}

// String renders the message in wire form, without the terminator. The
// trailing parameter gets a ":" marker when it is empty, contains a
// space, or starts with ":", so the rendering parses back to the same
// message.
func (m *Message) String() string {
	var b strings.Builder
	if m.Tags != "" {
		b.WriteByte('@')
		b.WriteString(m.Tags)
		b.WriteByte(' ')
	}
	if m.Source != "" {
		b.WriteByte(':')
		b.WriteString(m.Source)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, p := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 && (p == "" || strings.ContainsRune(p, ' ') || strings.HasPrefix(p, ":")) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

// ParseMessage parses a single line into a Message. The line must not
// include the CRLF terminator (the framer strips it).
//
// The grammar is the usual client-protocol line:
//
//	['@' tags ' '] [':' source ' '] command [' ' param]* [' :' trailing]
//
// Empty lines, lines with a prefix but no command, and lines of pure
// whitespace return a *ParseError. Parsing never panics on any input.
func ParseMessage(line []byte) (*Message, error) {
	if len(line) == 0 {
		return nil, newParseError(line, "empty line")
	}

	msg := &Message{}
	rest := string(line)

	if after, ok := strings.CutPrefix(rest, "@"); ok {
		tags, remain, found := strings.Cut(after, " ")
		if !found {
			return nil, newParseError(line, "tags without a command")
		}
		if tags == "" {
			return nil, newParseError(line, "empty tags")
		}
		msg.Tags = tags
		rest = remain
	}

	rest = strings.TrimLeft(rest, " ")
	if after, ok := strings.CutPrefix(rest, ":"); ok {
		source, remain, found := strings.Cut(after, " ")
		if !found {
			return nil, newParseError(line, "source without a command")
		}
		if source == "" {
			return nil, newParseError(line, "empty source")
		}
		msg.Source = source
		rest = remain
	}

	rest = strings.TrimLeft(rest, " ")
	if strings.HasPrefix(rest, ":") {
		// A second ":" here would be a trailing parameter with no
		// command in front of it.
		return nil, newParseError(line, "missing command")
	}

	// Everything after the first " :" is one trailing parameter, spaces
	// included. Only the first occurrence counts.
	var trailing string
	var hasTrailing bool
	if before, after, found := strings.Cut(rest, " :"); found {
		rest = before
		trailing = after
		hasTrailing = true
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, newParseError(line, "missing command")
	}

	msg.Command = strings.ToUpper(fields[0])
	msg.Params = fields[1:]
	if hasTrailing {
		msg.Params = append(msg.Params, trailing)
	}
	return msg, nil
}
