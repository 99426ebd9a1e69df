// Package render is the frame driver (§4.L): a periodic tick that clears
// the previous frame, composes and writes the next one, and stands down
// permanently the first time it notices a foreign write to the shared
// terminal.
package render

import (
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orcaman/writerseeker"

	"github.com/distr1/dashboard/internal/term"
	"github.com/distr1/dashboard/internal/trace"
)

// Composer produces the frame's lines for the given point in time.
type Composer func(nowMS int64) []string

// LogDrainer drains and formats the deferred log queue, reporting whether
// a warning or error line was among the drained batch.
type LogDrainer func() (lines []string, sawWarning, sawError bool)

// Driver owns last_num_lines_printed and the single goroutine permitted
// to tick — spec §5 requires exactly one scheduled worker own both.
type Driver struct {
	writer    *term.Writer
	interval  time.Duration
	compose   Composer
	drainLogs LogDrainer
	onLatch   func(sawWarning, sawError bool)
	log       *log.Logger

	tickMu       sync.Mutex // serializes ticks: the scheduled loop, RenderNow and Close's final render
	lastNumLines int        // mutated only by tick, under tickMu

	stopCh  chan struct{}
	doneCh  chan struct{}
	dirty   atomic.Bool
	failed  atomic.Bool
	started atomic.Bool
	closeMu sync.Mutex
}

// New constructs a Driver. onLatch, if non-nil, is invoked after every
// drain with whether a warning/error line was seen, so the caller can
// latch any_warnings_printed/any_errors_printed before the next compose.
func New(writer *term.Writer, interval time.Duration, compose Composer, drainLogs LogDrainer, onLatch func(bool, bool), logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.Default()
	}
	return &Driver{
		writer:    writer,
		interval:  interval,
		compose:   compose,
		drainLogs: drainLogs,
		onLatch:   onLatch,
		log:       logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the dedicated render goroutine. Calling Start twice is a
// no-op.
func (d *Driver) Start() {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	go d.loop()
}

func (d *Driver) loop() {
	defer close(d.doneCh)
	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-d.stopCh:
			return
		case <-t.C:
			if !d.tick() {
				return
			}
		}
	}
}

// tick runs one render pass. It returns false when the scheduler should
// stop permanently (dirty stream, or a render exception).
func (d *Driver) tick() (keepGoing bool) {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			d.log.Printf("dashboard: render panic, suppressing future ticks: %v", r)
			d.failed.Store(true)
			keepGoing = false
		}
	}()

	ev := trace.Event("render-tick", 0)
	defer ev.Done()

	nowMS := time.Now().UnixMilli()
	clear := term.ClearLines(d.lastNumLines)
	lines := d.compose(nowMS)
	logLines, sawWarning, sawError := d.drainLogs()
	d.lastNumLines = len(lines)

	if d.onLatch != nil {
		d.onLatch(sawWarning, sawError)
	}

	if d.writer.IsDirtyStdout() || d.writer.IsDirtyStderr() {
		d.dirty.Store(true)
		return false
	}

	if clear == "" && len(lines) == 0 && len(logLines) == 0 {
		return true
	}

	var buf writerseeker.WriterSeeker
	buf.Write([]byte(clear))
	for _, l := range logLines {
		buf.Write([]byte(l))
		buf.Write([]byte("\n"))
	}
	for _, l := range lines {
		buf.Write([]byte(l))
		buf.Write([]byte("\n"))
	}
	out, err := io.ReadAll(buf.Reader())
	if err != nil {
		panic(err) // surfaces through the recover above, per §7's render-exception path
	}
	if err := d.writer.WriteFrame(string(out)); err != nil {
		d.log.Printf("dashboard: write frame: %v", err)
	}
	return true
}

// IsDirty reports whether a foreign write to the terminal was detected and
// the scheduler has stood down.
func (d *Driver) IsDirty() bool { return d.dirty.Load() }

// Failed reports whether a render exception suppressed future ticks.
func (d *Driver) Failed() bool { return d.failed.Load() }

// RenderNow runs one tick synchronously, outside the scheduled cadence.
// Used to force a render (e.g. on TestRunFinished, §4.I) and for the
// final render performed by Close.
func (d *Driver) RenderNow() {
	d.tick()
}

// Close cancels the scheduler (the in-flight tick, if any, completes) and
// performs exactly one final render reflecting the build's end state.
// Idempotent.
func (d *Driver) Close() {
	d.closeMu.Lock()
	defer d.closeMu.Unlock()
	select {
	case <-d.stopCh:
		return // already closed
	default:
		close(d.stopCh)
	}
	if d.started.Load() {
		<-d.doneCh
	}
	d.RenderNow()
}
