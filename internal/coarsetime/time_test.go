package coarsetime

import (
	"testing"
	"time"
)

func TestNow(t *testing.T) {
	got := Now()
	if got.IsZero() {
		t.Fatal("Now() returned the zero time")
	}

	// The cached clock trails the real one by at most one refresh
	// interval, plus slack for a busy test machine.
	drift := time.Since(got)
	if drift < 0 || drift > 10*Resolution {
		t.Errorf("Now() drifts from time.Now() by %v", drift)
	}
}

func TestSince(t *testing.T) {
	start := Now()
	time.Sleep(2 * Resolution)
	if elapsed := Since(start); elapsed <= 0 {
		t.Errorf("Since() = %v after sleeping, want > 0", elapsed)
	}
}

func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
