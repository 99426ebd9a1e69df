// Package clock supplies the monotonic time source and elapsed-time
// formatting shared by every other dashboard component.
package clock

import (
	"fmt"
	"time"
)

// Clock is a millisecond-precision time source. Real reads the wall clock;
// tests substitute a fake one. The zero value (and a nil *Clock) reports 0.
type Clock struct {
	now func() int64
}

// Real returns a Clock backed by time.Now, reporting milliseconds since the
// Unix epoch so it is directly comparable to event timestamps delivered by
// the event bus.
func Real() *Clock {
	base := time.Now()
	return &Clock{now: func() int64 {
		// time.Since uses the monotonic reading, so a wall-clock step
		// after construction cannot make NowMS go backwards.
		return base.UnixMilli() + time.Since(base).Milliseconds()
	}}
}

// Fake returns a Clock whose NowMS calls fn, for deterministic tests.
func Fake(fn func() int64) *Clock {
	return &Clock{now: fn}
}

// NowMS returns the current time in milliseconds: since the Unix epoch for
// Real, whatever the function returns for Fake. For Real it is monotonic:
// callers never observe it going backwards.
func (c *Clock) NowMS() int64 {
	if c == nil || c.now == nil {
		return 0
	}
	return c.now()
}

// FormatElapsedMS renders a millisecond duration as a one-decimal seconds
// string, e.g. 12345 -> "12.3s".
func FormatElapsedMS(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000.0)
}
