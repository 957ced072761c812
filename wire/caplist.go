package wire

import "strings"

// Cap is one capability token from a CAP LS/ACK/NAK list.
type Cap struct {
	// Name is the capability name as advertised ("sasl", "multi-prefix").
	Name string

	// Value carries the portion after "=", if any. CAP LS 302 servers
	// use it for capability arguments ("sasl=PLAIN,EXTERNAL").
	Value string
}

// String renders the token back to its wire form.
func (c Cap) String() string {
	if c.Value == "" {
		return c.Name
	}
	return c.Name + "=" + c.Value
}

// ParseCapList splits a space-separated capability list into ordered
// name/value pairs. Tokens without "=" yield an empty Value; empty input
// yields an empty list.
func ParseCapList(list string) []Cap {
	fields := strings.Fields(list)
	caps := make([]Cap, 0, len(fields))
	for _, field := range fields {
		name, value, _ := strings.Cut(field, "=")
		caps = append(caps, Cap{Name: name, Value: value})
	}
	return caps
}
