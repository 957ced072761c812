package irc

import (
	"sync/atomic"
)

// ClientStats contains statistics about the protocol engine.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose these as:
//   - Counters: LinesReceived, LinesSent, MalformedLines, Dispatches,
//     HandlerErrors, WaitTimeouts
//   - Counters: Connects, ConnectFailures, Reconnects (with server label)
type ClientStats struct {
	LinesReceived   uint64 // Complete lines framed from the transport
	LinesSent       uint64 // Lines written to the transport
	MalformedLines  uint64 // Inbound lines dropped by the parser
	Dispatches      uint64 // Handler invocations scheduled
	HandlerErrors   uint64 // Handler invocations that returned an error or panicked
	WaitTimeouts    uint64 // WaitFor calls that expired without a match
	Connects        uint64 // Successful connection establishments
	ConnectFailures uint64 // Connection attempts that failed
	Reconnects      uint64 // Reconnection cycles triggered by transport loss
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - the client updates its own stats.
type clientStatsCollector struct {
	stats *ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{
		stats: &ClientStats{},
	}
}

func (c *clientStatsCollector) recordLineReceived() {
	atomic.AddUint64(&c.stats.LinesReceived, 1)
}

func (c *clientStatsCollector) recordLineSent() {
	atomic.AddUint64(&c.stats.LinesSent, 1)
}

func (c *clientStatsCollector) recordMalformedLine() {
	atomic.AddUint64(&c.stats.MalformedLines, 1)
}

func (c *clientStatsCollector) recordDispatches(n int) {
	atomic.AddUint64(&c.stats.Dispatches, uint64(n))
}

func (c *clientStatsCollector) recordHandlerError() {
	atomic.AddUint64(&c.stats.HandlerErrors, 1)
}

func (c *clientStatsCollector) recordWaitTimeout() {
	atomic.AddUint64(&c.stats.WaitTimeouts, 1)
}

func (c *clientStatsCollector) recordConnect() {
	atomic.AddUint64(&c.stats.Connects, 1)
}

func (c *clientStatsCollector) recordConnectFailure() {
	atomic.AddUint64(&c.stats.ConnectFailures, 1)
}

func (c *clientStatsCollector) recordReconnect() {
	atomic.AddUint64(&c.stats.Reconnects, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		LinesReceived:   atomic.LoadUint64(&c.stats.LinesReceived),
		LinesSent:       atomic.LoadUint64(&c.stats.LinesSent),
		MalformedLines:  atomic.LoadUint64(&c.stats.MalformedLines),
		Dispatches:      atomic.LoadUint64(&c.stats.Dispatches),
		HandlerErrors:   atomic.LoadUint64(&c.stats.HandlerErrors),
		WaitTimeouts:    atomic.LoadUint64(&c.stats.WaitTimeouts),
		Connects:        atomic.LoadUint64(&c.stats.Connects),
		ConnectFailures: atomic.LoadUint64(&c.stats.ConnectFailures),
		Reconnects:      atomic.LoadUint64(&c.stats.Reconnects),
	}
}
