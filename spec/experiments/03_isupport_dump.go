// Experiment: ISUPPORT (005) token dump
//
// Purpose: See how many 005 lines a production network sends, the
// token shapes (bare, KEY=value, escaped values) and whether any
// network actually uses the -TOKEN negation form
//
// Test cases:
// 1. Count of 005 lines after 001
// 2. Tokens per line (the 13-token convention)
// 3. Bare tokens (EXCEPTS) vs valued tokens (CHANLIMIT=#:250)
// 4. The trailing "are supported by this server" parameter is not a token

package main

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

func main() {
	conn, err := net.Dial("tcp", "irc.libera.chat:6667")
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	send := func(line string) {
		writer.WriteString(line + "\r\n")
		writer.Flush()
	}

	fmt.Println("=== Registering ===")
	send("NICK isupportprobe")
	send("USER isupportprobe 0 * :isupport probe")

	tokens := map[string]string{}
	lines := 0
	negations := 0

	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "PING") {
			send("PONG" + strings.TrimPrefix(line, "PING"))
			continue
		}

		parts := strings.Split(line, " ")
		if len(parts) < 4 || parts[1] != "005" {
			// 005 lines stop at 251 (LUSERS) on every network tested
			if len(parts) >= 2 && parts[1] == "251" {
				break
			}
			continue
		}

		lines++
		fmt.Printf("<< %s\n", line)

		// parts[2] is our nick, the trailing "are supported by this
		// server" text starts at the first ":" param.
		for _, token := range parts[3:] {
			if strings.HasPrefix(token, ":") {
				break
			}
			if strings.HasPrefix(token, "-") {
				negations++
				delete(tokens, strings.TrimPrefix(token, "-"))
				continue
			}
			key, value, _ := strings.Cut(token, "=")
			tokens[key] = value
		}
	}

	fmt.Printf("\n=== %d lines, %d unique tokens, %d negations ===\n", lines, len(tokens), negations)
	for key, value := range tokens {
		if value != "" {
			fmt.Printf("  %s=%s\n", key, value)
		} else {
			fmt.Printf("  %s\n", key)
		}
	}

	send("QUIT :done")
	fmt.Println("\n=== Done ===")
}
