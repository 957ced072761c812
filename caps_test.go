package irc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/irc/internal/testutils"
)

func TestCapNegotiationRequestsOnlyHandledCaps(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl multi-prefix")

	client := connectTestClient(t, Config{}, mock)

	// Only sasl has a registered capability handler, so only sasl is
	// requested.
	requireLine(t, mock, "CAP REQ :sasl")
	assert.Zero(t, countLines(mock, "CAP REQ :multi-prefix"))

	cs := client.CurrentServer()
	require.NotNil(t, cs)
	status, ok := cs.Cap("sasl")
	require.True(t, ok)
	assert.Equal(t, CapRequested, status)
	_, ok = cs.Cap("multi-prefix")
	assert.False(t, ok, "unhandled capabilities are never tracked")

	mock.QueueLine(":server CAP * ACK :sasl")
	requireLine(t, mock, "CAP END")

	status, _ = cs.Cap("sasl")
	assert.Equal(t, CapEnabled, status)
	assert.Equal(t, 1, countLines(mock, "CAP END"))
}

func TestCapNegotiationNoWantedCapsEndsImmediately(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :multi-prefix account-tag")

	client := connectTestClient(t, Config{}, mock)

	requireLine(t, mock, "CAP END")
	assert.Equal(t, 1, countLines(mock, "CAP END"))
	for _, line := range mock.WrittenLines() {
		assert.NotContains(t, line, "CAP REQ", "nothing should be requested")
	}

	cs := client.CurrentServer()
	require.NotNil(t, cs)
	assert.Empty(t, cs.Caps())
}

func TestCapNegotiationPaginatedLS(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS * :sasl=PLAIN,EXTERNAL multi-prefix")
	mock.QueueLine(":server CAP * LS :account-tag away-notify")

	client := newTestClient(t, Config{}, mock)
	client.RegisterCap("account-tag", nil)

	ctx, cancel := testContext(t)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	// Requests go out only after the final page, for caps from both
	// pages, in sorted order. Three preamble lines, then the requests.
	lines := requireLineCount(t, mock, 5)
	var reqs []string
	for _, line := range lines {
		if strings.HasPrefix(line, "CAP REQ ") {
			reqs = append(reqs, line)
		}
	}
	assert.Equal(t, []string{"CAP REQ :account-tag", "CAP REQ :sasl"}, reqs)

	mock.QueueLine(":server CAP * ACK :sasl account-tag")
	requireLine(t, mock, "CAP END")
	assert.Equal(t, 1, countLines(mock, "CAP END"))

	cs := client.CurrentServer()
	require.NotNil(t, cs)
	status, _ := cs.Cap("account-tag")
	assert.Equal(t, CapEnabled, status, "a nil capability handler still negotiates")
}

func TestCapNegotiationNak(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl")

	client := connectTestClient(t, Config{}, mock)

	requireLine(t, mock, "CAP REQ :sasl")
	mock.QueueLine(":server CAP * NAK :sasl")
	requireLine(t, mock, "CAP END")

	cs := client.CurrentServer()
	require.NotNil(t, cs)
	status, _ := cs.Cap("sasl")
	assert.Equal(t, CapDisabled, status)

	// A duplicate NAK updates nothing and never re-sends CAP END.
	mock.QueueLine(":server CAP * NAK :sasl")
	mock.QueueLine("PING :fence")
	requireLine(t, mock, "PONG :fence")
	assert.Equal(t, 1, countLines(mock, "CAP END"))
}

func TestCapHandlerRunsBeforeCapEnd(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :echo-message")

	client := newTestClient(t, Config{}, mock)
	client.RegisterCap("echo-message", func(ctx context.Context, c *Client) error {
		return c.Send(ctx, "NOTE :capability enabled")
	})

	ctx, cancel := testContext(t)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	requireLine(t, mock, "CAP REQ :echo-message")
	mock.QueueLine(":server CAP * ACK :echo-message")
	requireLine(t, mock, "CAP END")

	lines := mock.WrittenLines()
	noteAt, endAt := -1, -1
	for i, line := range lines {
		switch line {
		case "NOTE :capability enabled":
			noteAt = i
		case "CAP END":
			endAt = i
		}
	}
	require.NotEqual(t, -1, noteAt)
	require.NotEqual(t, -1, endAt)
	assert.Less(t, noteAt, endAt, "capability handlers complete before CAP END")
}

func TestCapHandlerErrorStillEndsNegotiation(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :broken-cap")

	client := newTestClient(t, Config{}, mock)
	client.RegisterCap("broken-cap", func(ctx context.Context, c *Client) error {
		return errors.New("handler failure")
	})

	ctx, cancel := testContext(t)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	requireLine(t, mock, "CAP REQ :broken-cap")
	mock.QueueLine(":server CAP * ACK :broken-cap")

	// Registration must not hang on a failing capability handler.
	requireLine(t, mock, "CAP END")

	require.Eventually(t, func() bool {
		return client.Stats().HandlerErrors >= 1
	}, 2*time.Second, 2*time.Millisecond)
}

func TestConnectedServerStateResetsAcrossReconnects(t *testing.T) {
	mock1 := testutils.NewConnectionMock()
	mock1.QueueLine(":server CAP * LS :sasl")
	mock2 := testutils.NewConnectionMock()

	client := connectTestClient(t, Config{ReconnectDelay: 5 * time.Millisecond}, mock1, mock2)

	requireLine(t, mock1, "CAP REQ :sasl")
	cs1 := client.CurrentServer()
	require.NotNil(t, cs1)
	_, ok := cs1.Cap("sasl")
	require.True(t, ok)

	mock1.Close()

	require.Eventually(t, func() bool {
		cs := client.CurrentServer()
		return cs != nil && cs.ID != cs1.ID
	}, 2*time.Second, 2*time.Millisecond)

	cs2 := client.CurrentServer()
	_, ok = cs2.Cap("sasl")
	assert.False(t, ok, "capability state must not leak across connections")
	assert.NotEqual(t, cs1.ID, cs2.ID)
}

// =============================================================================
// ISUPPORT Tests
// =============================================================================

func TestISupportTracking(t *testing.T) {
	mock := testutils.NewConnectionMock()
	client := connectTestClient(t, Config{}, mock)

	mock.QueueLine(":server 005 tester NETWORK=Libera.Chat CHANLIMIT=#:250 UTF8ONLY :are supported by this server")

	require.Eventually(t, func() bool {
		cs := client.CurrentServer()
		if cs == nil {
			return false
		}
		_, ok := cs.ISupport("NETWORK")
		return ok
	}, 2*time.Second, 2*time.Millisecond)

	cs := client.CurrentServer()
	require.NotNil(t, cs)

	value, ok := cs.ISupport("NETWORK")
	require.True(t, ok)
	assert.Equal(t, "Libera.Chat", value)

	value, ok = cs.ISupport("network")
	require.True(t, ok, "lookups are case-insensitive")
	assert.Equal(t, "Libera.Chat", value)

	value, ok = cs.ISupport("UTF8ONLY")
	require.True(t, ok)
	assert.Empty(t, value, "tokens without a value are present with an empty value")

	value, ok = cs.ISupport("CHANLIMIT")
	require.True(t, ok)
	assert.Equal(t, "#:250", value)

	_, ok = cs.ISupport("CASEMAPPING")
	assert.False(t, ok)
}

func TestISupportNegation(t *testing.T) {
	mock := testutils.NewConnectionMock()
	client := connectTestClient(t, Config{}, mock)

	mock.QueueLine(":server 005 tester EXCEPTS INVEX :are supported by this server")
	mock.QueueLine(":server 005 tester -EXCEPTS :are supported by this server")

	require.Eventually(t, func() bool {
		cs := client.CurrentServer()
		if cs == nil {
			return false
		}
		_, invex := cs.ISupport("INVEX")
		_, excepts := cs.ISupport("EXCEPTS")
		return invex && !excepts
	}, 2*time.Second, 2*time.Millisecond, "-TOKEN must remove a previously advertised token")

	all := client.CurrentServer().ISupportAll()
	assert.Contains(t, all, "INVEX")
	assert.NotContains(t, all, "EXCEPTS")
}
