// Package netstats keeps rolling bytes-received and artifact-count
// statistics and formats them as human-readable speeds, the way a build
// tool reports download progress.
package netstats

import (
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats tracks total and windowed download volume. An internal ticker
// rotates the window so InstantBps reflects only recent traffic; Stop
// must be called once, on the shutdown-of-stats event, to release it.
type Stats struct {
	bytesTotal    atomic.Int64
	artifactCount atomic.Int64

	windowStartMS atomic.Int64
	bytesWindow   atomic.Int64

	startMS int64

	stop   chan struct{}
	closed atomic.Bool
}

// windowPeriod is how often the rolling window resets; short enough that
// "instantaneous" speed tracks recent throughput rather than the whole
// build's average.
const windowPeriod = 2 * time.Second

// New starts a Stats keeper anchored at nowMS.
func New(nowMS int64) *Stats {
	s := &Stats{startMS: nowMS, stop: make(chan struct{})}
	s.windowStartMS.Store(nowMS)
	go s.rotateLoop()
	return s
}

func (s *Stats) rotateLoop() {
	t := time.NewTicker(windowPeriod)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-t.C:
			s.windowStartMS.Store(now.UnixMilli())
			s.bytesWindow.Store(0)
		}
	}
}

// Stop releases the internal rotation timer. Safe to call more than once.
func (s *Stats) Stop() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stop)
	}
}

// OnBytesReceived records n freshly downloaded bytes.
func (s *Stats) OnBytesReceived(n int64) {
	s.bytesTotal.Add(n)
	s.bytesWindow.Add(n)
}

// OnArtifact records one artifact having been fully downloaded.
func (s *Stats) OnArtifact() {
	s.artifactCount.Add(1)
}

// TotalBytes returns the cumulative bytes downloaded.
func (s *Stats) TotalBytes() int64 { return s.bytesTotal.Load() }

// ArtifactCount returns the number of artifacts downloaded so far.
func (s *Stats) ArtifactCount() int64 { return s.artifactCount.Load() }

// AverageBps returns the average speed since construction, in bytes/sec.
func (s *Stats) AverageBps(nowMS int64) float64 {
	elapsed := float64(nowMS-s.startMS) / 1000
	if elapsed <= 0 {
		return 0
	}
	return float64(s.bytesTotal.Load()) / elapsed
}

// InstantBps returns the speed over the current rolling window, in
// bytes/sec.
func (s *Stats) InstantBps(nowMS int64) float64 {
	elapsed := float64(nowMS-s.windowStartMS.Load()) / 1000
	if elapsed <= 0 {
		return 0
	}
	return float64(s.bytesWindow.Load()) / elapsed
}

// FormatBytes renders a byte count with a human-readable unit, e.g.
// "4.2 MB".
func FormatBytes(n int64) string {
	return humanize.Bytes(uint64(n))
}

// FormatSpeed renders a bytes/sec rate as a human-readable "X/s" string,
// e.g. "1.3 MB/s".
func FormatSpeed(bps float64) string {
	if bps < 0 {
		bps = 0
	}
	return humanize.Bytes(uint64(bps)) + "/s"
}
