package irc

import (
	"net"
	"time"

	"github.com/sony/gobreaker/v2"
)

// NewCircuitBreakerConfig returns a function that creates circuit breakers
// for servers, suitable for Config.NewCircuitBreaker.
// This is a helper for common use cases.
// The breaker trips when at least 3 dials were attempted in the window
// and 60% of them failed, which keeps a dead server out of the failover
// rotation until the timeout elapses.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[net.Conn] {
	return func(serverAddr string) *gobreaker.CircuitBreaker[net.Conn] {
		settings := gobreaker.Settings{
			Name:        serverAddr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[net.Conn](settings)
	}
}
