// Command irc-probe connects to a server once, completes registration
// and reports what the server offered: capabilities, ISUPPORT tokens
// and traffic counters. Useful to compare networks and debug
// negotiation.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/pior/irc"
	"github.com/pior/irc/wire"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "irc-probe: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("irc-probe", flag.ContinueOnError)

	var (
		serverAddr string
		useTLS     bool
		nick       string
		timeout    time.Duration
		verbose    bool
	)
	fs.StringVarP(&serverAddr, "server", "s", "irc.libera.chat:6697", "Server host:port")
	fs.BoolVar(&useTLS, "tls", true, "Dial with TLS")
	fs.StringVarP(&nick, "nick", "n", "irc-probe", "Nick to register with")
	fs.DurationVarP(&timeout, "timeout", "w", 30*time.Second, "Overall probe timeout")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Log the protocol exchange")

	if err := fs.Parse(args); err != nil {
		return err
	}

	host, portStr, err := net.SplitHostPort(serverAddr)
	if err != nil {
		return fmt.Errorf("server %q: %w", serverAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("server %q: invalid port: %w", serverAddr, err)
	}

	var logger logrus.FieldLogger
	if verbose {
		log := logrus.New()
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.DebugLevel)
		logger = log
	}

	client, err := irc.NewClient(
		irc.NewStaticServers(irc.Server{Host: host, Port: port, TLS: useTLS}),
		irc.Config{
			Nick:           nick,
			ConnectTimeout: timeout,
			Logger:         logger,
		},
	)
	if err != nil {
		return err
	}
	defer client.Close()

	// Ask for everything the server advertises so the report shows the
	// full ACK/NAK picture.
	for _, name := range commonCaps {
		client.RegisterCap(name, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	connected := time.Since(start)

	if msg := client.WaitFor(ctx, timeout, wire.RplWelcome); msg == nil {
		return fmt.Errorf("no welcome from %s within %v", serverAddr, timeout)
	}
	registered := time.Since(start)

	report(client, connected, registered)

	quitCtx, quitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer quitCancel()
	if err := client.Quit(quitCtx, ""); err != nil {
		return err
	}
	select {
	case <-client.Done():
	case <-quitCtx.Done():
	}
	return nil
}

// commonCaps is the IRCv3 surface worth probing on public networks.
var commonCaps = []string{
	"account-notify",
	"account-tag",
	"away-notify",
	"batch",
	"cap-notify",
	"chghost",
	"echo-message",
	"extended-join",
	"invite-notify",
	"labeled-response",
	"message-tags",
	"multi-prefix",
	"server-time",
	"setname",
	"userhost-in-names",
}

func report(client *irc.Client, connected, registered time.Duration) {
	server := client.CurrentServer()

	fmt.Printf("Server: %s\n", server.Server)
	fmt.Printf("Connected in %v, registered in %v\n", connected.Round(time.Millisecond), registered.Round(time.Millisecond))
	fmt.Println()

	fmt.Println("Capabilities:")
	caps := server.Caps()
	names := make([]string, 0, len(caps))
	for name := range caps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-20s %s\n", name, caps[name])
	}
	if len(names) == 0 {
		fmt.Println("  (none requested)")
	}
	fmt.Println()

	fmt.Println("ISUPPORT:")
	isupport := server.ISupportAll()
	tokens := make([]string, 0, len(isupport))
	for token := range isupport {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		if value := isupport[token]; value != "" {
			fmt.Printf("  %s=%s\n", token, value)
		} else {
			fmt.Printf("  %s\n", token)
		}
	}
	fmt.Println()

	stats := client.Stats()
	fmt.Printf("Traffic: %d lines received, %d sent, %d malformed\n",
		stats.LinesReceived, stats.LinesSent, stats.MalformedLines)
}
