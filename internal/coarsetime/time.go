// Package coarsetime provides cheap timestamps for hot paths that only
// need coarse accuracy, such as per-line activity tracking in a read
// loop. A background goroutine refreshes the cached time at a fixed
// interval, so reading it costs an atomic load instead of a full
// time.Now() call.
package coarsetime

import (
	"sync/atomic"
	"time"
)

// Resolution is the refresh interval of the cached time. Timestamps read
// through Now are stale by at most this much.
const Resolution = 50 * time.Millisecond

var now atomic.Value

func init() {
	now.Store(time.Now())
	go refresh(time.NewTicker(Resolution))
}

// refresh runs for the lifetime of the process. It is a named function
// so test leak detectors can ignore it by name.
func refresh(ticker *time.Ticker) {
	for range ticker.C {
		now.Store(time.Now())
	}
}

// Now returns the cached wall-clock time.
func Now() time.Time {
	return now.Load().(time.Time)
}

// Since returns the time elapsed since t, measured against the cached
// clock. The result can be slightly negative when t was taken with
// time.Now() inside the current refresh window; callers that only feed
// it cached timestamps never see that.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
