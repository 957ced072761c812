// Command irc-cli is an interactive IRC client for protocol debugging.
// It connects, negotiates capabilities, prints every inbound line and
// sends stdin lines verbatim.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/pior/irc"
	"github.com/pior/irc/wire"
)

// Env carries credentials that should not appear in shell history.
type Env struct {
	ServerPassword string `env:"IRC_SERVER_PASSWORD"`
	SASLLogin      string `env:"IRC_SASL_LOGIN"`
	SASLPassword   string `env:"IRC_SASL_PASSWORD"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "irc-cli: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("irc-cli", flag.ContinueOnError)

	var (
		serverAddrs []string
		useTLS      bool
		nick        string
		user        string
		realname    string
		saslLogin   string
		timeout     time.Duration
		verbose     int
	)
	fs.StringArrayVarP(&serverAddrs, "server", "s", []string{"irc.libera.chat:6697"}, "Server host:port (repeatable for failover)")
	fs.BoolVar(&useTLS, "tls", true, "Dial with TLS")
	fs.StringVarP(&nick, "nick", "n", "", "Nick to register with")
	fs.StringVar(&user, "user", "", "Username (defaults to nick)")
	fs.StringVar(&realname, "realname", "", "Realname (defaults to nick)")
	fs.StringVar(&saslLogin, "sasl-login", "", "SASL PLAIN login (prompts for the password)")
	fs.DurationVarP(&timeout, "timeout", "w", 30*time.Second, "Connection timeout")
	fs.CountVarP(&verbose, "verbose", "v", "Increase log verbosity (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if nick == "" {
		return fmt.Errorf("a nick is required (-n)")
	}

	var env Env
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("environment: %w", err)
	}
	if env.SASLLogin != "" && saslLogin == "" {
		saslLogin = env.SASLLogin
	}

	servers, err := parseServers(serverAddrs, useTLS, env.ServerPassword)
	if err != nil {
		return err
	}

	config := irc.Config{
		Nick:           nick,
		User:           user,
		Realname:       realname,
		ConnectTimeout: timeout,
		ReconnectDelay: 5 * time.Second,
		Logger:         newLogger(verbose),

		NewCircuitBreaker: irc.NewCircuitBreakerConfig(1, time.Minute, 30*time.Second),
	}

	if saslLogin != "" {
		password := env.SASLPassword
		if password == "" {
			password, err = promptPassword(fmt.Sprintf("SASL password for %s: ", saslLogin))
			if err != nil {
				return err
			}
		}
		config.SASLMechanism = irc.SASLPlain
		config.SASLCredentials = &irc.SASLCredentials{Login: saslLogin, Password: password}
	}

	client, err := irc.NewClient(servers, config)
	if err != nil {
		return err
	}
	defer client.Close()

	client.Register(wire.Wildcard, func(ctx context.Context, client *irc.Client, msg *wire.Message) error {
		fmt.Println(msg.String())
		return nil
	})

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	fmt.Fprintf(os.Stderr, "connected to %s\n", client.CurrentServer().Server)

	go func() {
		<-ctx.Done()
		shutdown(client, "interrupted")
	}()

	return inputLoop(ctx, client)
}

// inputLoop sends stdin lines to the server until EOF or /quit.
func inputLoop(ctx context.Context, client *irc.Client) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if line == "/quit" || strings.HasPrefix(line, "/quit ") {
			shutdown(client, strings.TrimSpace(strings.TrimPrefix(line, "/quit")))
			return nil
		}

		if err := client.Send(ctx, line); err != nil {
			if errors.Is(err, irc.ErrClientDone) || ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
		}
	}

	shutdown(client, "")
	return scanner.Err()
}

// shutdown quits politely and gives the server a moment to close the
// transport before the process exits.
func shutdown(client *irc.Client, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Quit(ctx, reason); err != nil {
		return
	}
	select {
	case <-client.Done():
	case <-ctx.Done():
	}
}

func parseServers(addrs []string, useTLS bool, password string) (irc.Servers, error) {
	list := make([]irc.Server, 0, len(addrs))
	for _, addr := range addrs {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("server %q: invalid port: %w", addr, err)
		}
		list = append(list, irc.Server{
			Host:     host,
			Port:     port,
			TLS:      useTLS,
			Password: password,
		})
	}
	return irc.NewStaticServers(list...), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

func newLogger(verbose int) logrus.FieldLogger {
	if verbose == 0 {
		return nil
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if verbose > 1 {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
