package irc

import (
	"context"
	"sync"
	"time"

	"github.com/pior/irc/wire"
)

// WaitFor blocks until a message matching one of the given commands is
// dispatched, then returns it. It returns nil when the timeout expires,
// when ctx is canceled, or when the client terminates. A timeout of zero
// or less means no timeout.
//
// The temporary registrations are removed before WaitFor returns, so a
// timed-out call leaves no trace in the registry.
func (c *Client) WaitFor(ctx context.Context, timeout time.Duration, commands ...string) *wire.Message {
	if len(commands) == 0 {
		return nil
	}

	result := make(chan *wire.Message, 1)
	var once sync.Once

	handler := func(ctx context.Context, client *Client, msg *wire.Message) error {
		once.Do(func() {
			result <- msg
		})
		return nil
	}

	tokens := make([]uint32, 0, len(commands))
	for _, command := range commands {
		tokens = append(tokens, c.handlers.register(command, handler))
	}
	defer func() {
		for _, token := range tokens {
			c.handlers.unregister(token)
		}
	}()

	var timerCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerCh = timer.C
	}

	select {
	case msg := <-result:
		return msg
	case <-timerCh:
		c.stats.recordWaitTimeout()
		return nil
	case <-ctx.Done():
		return nil
	case <-c.done:
		return nil
	}
}
