package wire

import (
	"bytes"
	"strings"
	"testing"
)

// FuzzParseMessage fuzzes the line parser to find crashes and panics.
// This tests robustness against malformed, malicious, or unexpected input.
// Run with: go test -fuzz='^FuzzParseMessage$' -fuzztime=60s ./wire
func FuzzParseMessage(f *testing.F) {
	// Seed corpus with valid lines covering the grammar
	f.Add([]byte("PING :tok"))                                           // Trailing param
	f.Add([]byte("CAP LS 302"))                                          // Middle params
	f.Add([]byte(":irc.example.org 001 bob :Welcome to IRC"))            // Source + numeric
	f.Add([]byte(":nick!user@host PRIVMSG #chan :hello world"))          // Full source
	f.Add([]byte("@time=2024-01-01T00:00:00Z :n!u@h PRIVMSG #c :hi"))    // Tags
	f.Add([]byte(":server CAP * LS * :sasl multi-prefix"))               // Paginated CAP LS
	f.Add([]byte(":server CAP * ACK :sasl"))                             // CAP ACK
	f.Add([]byte("AUTHENTICATE +"))                                      // SASL continuation
	f.Add([]byte(":server 005 bob EXCEPTS PREFIX=(ov)@+ :are supported")) // ISUPPORT

	// Seed corpus with edge cases
	f.Add([]byte(""))                     // Empty line
	f.Add([]byte("   "))                  // Whitespace only
	f.Add([]byte("@"))                    // Bare tags marker
	f.Add([]byte(":"))                    // Bare source marker
	f.Add([]byte("@tags"))                // Tags without command
	f.Add([]byte(":source"))              // Source without command
	f.Add([]byte("PING :"))               // Empty trailing
	f.Add([]byte("CMD  a   b"))           // Repeated spaces
	f.Add([]byte("PRIVMSG #c :a :b"))     // Colon inside trailing
	f.Add([]byte("@a=b;c=d :s X"))        // Multiple tags
	f.Add([]byte(strings.Repeat("A", 8192))) // Oversized line

	f.Fuzz(func(t *testing.T, line []byte) {
		msg, err := ParseMessage(line)

		// Exactly one of message and error, never both.
		if (msg == nil) == (err == nil) {
			t.Fatalf("ParseMessage(%q) = (%v, %v)", line, msg, err)
		}

		if err != nil {
			parseErr, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("error = %T, want *ParseError", err)
			}
			if parseErr.Reason == "" {
				t.Error("ParseError has empty reason")
			}
			return
		}

		// A parsed command is never empty and carries no spaces.
		if msg.Command == "" {
			t.Errorf("parsed empty command from %q", line)
		}
		if strings.ContainsRune(msg.Command, ' ') {
			t.Errorf("command %q contains a space", msg.Command)
		}

		// Middle parameters never contain spaces; only the trailing
		// parameter may.
		for i, p := range msg.Params[:max(len(msg.Params)-1, 0)] {
			if strings.ContainsRune(p, ' ') {
				t.Errorf("middle param %d = %q contains a space", i, p)
			}
		}

		// The rendering must parse back to an identical message.
		again, err := ParseMessage([]byte(msg.String()))
		if err != nil {
			t.Fatalf("rendering %q of %q does not parse: %v", msg.String(), line, err)
		}
		if again.Command != msg.Command || len(again.Params) != len(msg.Params) {
			t.Errorf("round trip of %q changed the message: %q -> %q", line, msg, again)
		}
	})
}

// FuzzLineFramer fuzzes the framer with arbitrary chunk splits.
// Run with: go test -fuzz='^FuzzLineFramer$' -fuzztime=60s ./wire
func FuzzLineFramer(f *testing.F) {
	f.Add([]byte("PING :a\r\nPONG :b\r\n"), 3)    // Split mid-line
	f.Add([]byte("PING :a\r\nPONG :b\r\n"), 8)    // Split before CR
	f.Add([]byte("PING :a\r\nPONG :b\r\n"), 9)    // Split between CR and LF
	f.Add([]byte("\r\n\r\n"), 1)                  // Empty lines
	f.Add([]byte("no terminator"), 5)             // Partial only
	f.Add([]byte("a\nb\r\nc"), 2)                 // Bare LF inside a line
	f.Add([]byte(""), 0)                          // Empty stream

	f.Fuzz(func(t *testing.T, stream []byte, cut int) {
		n := len(stream) + 1
		cut = ((cut % n) + n) % n

		var framer LineFramer
		var lines [][]byte
		collect := func(chunk []byte) {
			for line := range framer.Feed(chunk) {
				lines = append(lines, append([]byte(nil), line...))
			}
		}
		collect(stream[:cut])
		collect(stream[cut:])

		// No yielded line contains a terminator.
		for _, line := range lines {
			if bytes.Contains(line, crlfBytes) {
				t.Errorf("line %q contains a terminator", line)
			}
		}

		// Reassembling the lines plus the pending tail reproduces the
		// stream: nothing lost, nothing duplicated, order kept.
		var rebuilt bytes.Buffer
		for _, line := range lines {
			rebuilt.Write(line)
			rebuilt.WriteString(CRLF)
		}
		pending := stream[len(stream)-framer.Pending():]
		rebuilt.Write(pending)

		if !bytes.Equal(rebuilt.Bytes(), stream) {
			t.Errorf("rebuilt stream = %q, want %q", rebuilt.Bytes(), stream)
		}
	})
}
