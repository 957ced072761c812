// Experiment: SASL PLAIN exchange
//
// Purpose: Observe the full AUTHENTICATE choreography on a live
// network, including the empty challenge and the numeric outcomes
//
// Test cases:
// 1. CAP REQ :sasl gets ACKed
// 2. AUTHENTICATE PLAIN answered with "AUTHENTICATE +"
// 3. Payload is base64(authzid NUL authcid NUL password)
// 4. Success path: 900 (logged in) then 903 (SASL successful)
// 5. Failure path: 904 (SASL failed) with bogus credentials
//
// Set IRC_SASL_LOGIN / IRC_SASL_PASSWORD to test the success path;
// without them the probe sends bogus credentials to observe 904.

package main

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"strings"
)

func main() {
	login := os.Getenv("IRC_SASL_LOGIN")
	password := os.Getenv("IRC_SASL_PASSWORD")
	if login == "" {
		login = "saslprobe"
		password = "wrong-password"
		fmt.Println("(no IRC_SASL_LOGIN set, expecting 904)")
	}

	conn, err := net.Dial("tcp", "irc.libera.chat:6667")
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	send := func(line string) {
		fmt.Printf(">> %s\n", line)
		writer.WriteString(line + "\r\n")
		writer.Flush()
	}

	fmt.Println("=== Step 1: request the sasl capability ===")
	send("CAP LS 302")
	send("NICK saslprobe")
	send("USER saslprobe 0 * :sasl probe")
	send("CAP REQ :sasl")

	fmt.Println("\n=== Step 2: run the exchange ===")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			panic(err)
		}
		line = strings.TrimRight(line, "\r\n")
		fmt.Printf("<< %s\n", line)

		switch {
		case strings.HasPrefix(line, "PING"):
			send("PONG" + strings.TrimPrefix(line, "PING"))

		case strings.Contains(line, "CAP") && strings.Contains(line, "ACK") && strings.Contains(line, "sasl"):
			send("AUTHENTICATE PLAIN")

		case line == "AUTHENTICATE +":
			// authzid NUL authcid NUL password, authzid = nick
			payload := "saslprobe\x00" + login + "\x00" + password
			send("AUTHENTICATE " + base64.StdEncoding.EncodeToString([]byte(payload)))

		case strings.Contains(line, " 900 "):
			fmt.Println("\n=== logged in (900) ===")

		case strings.Contains(line, " 903 "):
			fmt.Println("\n=== SASL successful (903) ===")
			send("CAP END")

		case strings.Contains(line, " 904 "):
			fmt.Println("\n=== SASL failed (904) ===")
			send("CAP END")

		case strings.Contains(line, " 001 "):
			fmt.Println("\n=== registered ===")
			send("QUIT :done")

		case strings.Contains(line, "ERROR"):
			fmt.Println("\n=== Done ===")
			return
		}
	}
}
