// Experiment: CAP LS 302 inventory
//
// Purpose: Observe how a production network answers "CAP LS 302",
// whether it paginates the reply and what the page marker looks like
// on the wire
//
// Test cases:
// 1. CAP LS 302 before NICK/USER (negotiation holds registration)
// 2. Pagination marker: "CAP * LS * :..." means more pages follow
// 3. Final page: "CAP * LS :..." (no marker)
// 4. Key=value capabilities (sasl=PLAIN,EXTERNAL)
// 5. CAP END releases registration, server sends 001

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
		fmt.Printf(">> %s\n", line)
		writer.WriteString(line + "\r\n")
		writer.Flush()
	}

	fmt.Println("=== Step 1: CAP LS 302 before registration ===")
	send("CAP LS 302")
	send("NICK capprobe")
	send("USER capprobe 0 * :cap probe")

	fmt.Println("\n=== Step 2: collect LS pages ===")
	var caps []string
	pages := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			panic(err)
		}
		line = strings.TrimRight(line, "\r\n")
		fmt.Printf("<< %s\n", line)

		if strings.HasPrefix(line, "PING") {
			send("PONG" + strings.TrimPrefix(line, "PING"))
			continue
		}

		parts := strings.SplitN(line, " ", 5)
		if len(parts) >= 4 && parts[1] == "CAP" && parts[3] == "LS" {
			pages++
			// ":server CAP * LS * :caps..." has the marker in the
			// fifth field, ":server CAP * LS :caps..." does not.
			rest := strings.Join(parts[4:], " ")
			more := strings.HasPrefix(rest, "* :")
			payload := strings.TrimPrefix(strings.TrimPrefix(rest, "* "), ":")
			caps = append(caps, strings.Fields(payload)...)
			if !more {
				break
			}
		}
	}

	fmt.Printf("\n=== Step 3: %d page(s), %d capabilities ===\n", pages, len(caps))
	for _, c := range caps {
		fmt.Printf("  %s\n", c)
	}

	fmt.Println("\n=== Step 4: CAP END releases registration ===")
	send("CAP END")

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("no 001 before deadline: %v\n", err)
			break
		}
		line = strings.TrimRight(line, "\r\n")
		fmt.Printf("<< %s\n", line)
		if strings.Contains(line, " 001 ") {
			fmt.Println("\n=== Registered ===")
			break
		}
	}

	send("QUIT :done")
	fmt.Println("\n=== Done ===")
}
