package irc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/irc/internal/testutils"
)

func TestSASLPlainExchange(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl")

	client := connectTestClient(t, Config{
		Nick:            "bob",
		SASLMechanism:   SASLPlain,
		SASLCredentials: &SASLCredentials{Login: "bob", Password: "hunter2"},
	}, mock)

	requireLine(t, mock, "CAP REQ :sasl")
	mock.QueueLine(":server CAP * ACK :sasl")

	requireLine(t, mock, "AUTHENTICATE PLAIN")
	mock.QueueLine("AUTHENTICATE +")

	// base64("bob\x00bob\x00hunter2")
	requireLine(t, mock, "AUTHENTICATE Ym9iAGJvYgBodW50ZXIy")
	requireLine(t, mock, "CAP END")

	lines := mock.WrittenLines()
	payloadAt, endAt := -1, -1
	for i, line := range lines {
		switch line {
		case "AUTHENTICATE Ym9iAGJvYgBodW50ZXIy":
			payloadAt = i
		case "CAP END":
			endAt = i
		}
	}
	require.NotEqual(t, -1, payloadAt)
	require.NotEqual(t, -1, endAt)
	assert.Less(t, payloadAt, endAt, "authentication completes before CAP END")

	status, _ := client.CurrentServer().Cap("sasl")
	assert.Equal(t, CapEnabled, status)
}

func TestSASLExternalExchange(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl")

	connectTestClient(t, Config{
		Nick:          "bob",
		SASLMechanism: SASLExternal,
	}, mock)

	requireLine(t, mock, "CAP REQ :sasl")
	mock.QueueLine(":server CAP * ACK :sasl")

	requireLine(t, mock, "AUTHENTICATE EXTERNAL")
	mock.QueueLine("AUTHENTICATE +")

	// EXTERNAL answers the challenge with an empty response.
	requireLine(t, mock, "AUTHENTICATE +")
	requireLine(t, mock, "CAP END")
}

func TestSASLNoneSkipsAuthentication(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl")

	client := connectTestClient(t, Config{}, mock)

	requireLine(t, mock, "CAP REQ :sasl")
	mock.QueueLine(":server CAP * ACK :sasl")
	requireLine(t, mock, "CAP END")

	for _, line := range mock.WrittenLines() {
		assert.NotContains(t, line, "AUTHENTICATE")
	}

	status, _ := client.CurrentServer().Cap("sasl")
	assert.Equal(t, CapEnabled, status, "the capability is still negotiated")
}

func TestSASLChallengeTimeoutStillCompletesNegotiation(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl")

	client := connectTestClient(t, Config{
		Nick:            "bob",
		SASLMechanism:   SASLPlain,
		SASLCredentials: &SASLCredentials{Login: "bob", Password: "hunter2"},
		SASLTimeout:     50 * time.Millisecond,
	}, mock)

	requireLine(t, mock, "AUTHENTICATE PLAIN")

	// No challenge ever arrives. Registration must still proceed.
	requireLine(t, mock, "CAP END")
	assert.Zero(t, countLines(mock, "AUTHENTICATE Ym9iAGJvYgBodW50ZXIy"))
	assert.Equal(t, uint64(1), client.Stats().WaitTimeouts)
}

func TestSASLUnexpectedChallengeGivesUp(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl")

	connectTestClient(t, Config{
		Nick:            "bob",
		SASLMechanism:   SASLPlain,
		SASLCredentials: &SASLCredentials{Login: "bob", Password: "hunter2"},
	}, mock)

	requireLine(t, mock, "AUTHENTICATE PLAIN")
	mock.QueueLine("AUTHENTICATE here-is-garbage")

	requireLine(t, mock, "CAP END")
	assert.Zero(t, countLines(mock, "AUTHENTICATE Ym9iAGJvYgBodW50ZXIy"),
		"no payload for a challenge other than +")
}

func TestSASLUsesCurrentNick(t *testing.T) {
	mock := testutils.NewConnectionMock()
	mock.QueueLine(":server CAP * LS :sasl")

	client := newTestClient(t, Config{
		Nick:            "bob",
		SASLMechanism:   SASLPlain,
		SASLCredentials: &SASLCredentials{Login: "bob", Password: "hunter2"},
	}, mock)

	// The authzid follows nick changes made before authentication.
	client.SetNick("bob2")

	ctx, cancel := testContext(t)
	defer cancel()
	require.NoError(t, client.Connect(ctx))

	requireLine(t, mock, "AUTHENTICATE PLAIN")
	mock.QueueLine("AUTHENTICATE +")

	// base64("bob2\x00bob\x00hunter2")
	requireLine(t, mock, "AUTHENTICATE Ym9iMgBib2IAaHVudGVyMg==")
}
