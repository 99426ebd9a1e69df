// Package logqueue is the unbounded multi-producer-single-consumer queue
// of deferred console log lines (warnings, errors, plain info) the
// renderer drains once per tick. No lock-free MPSC queue appears anywhere
// in the retrieved corpus, so this is a plain mutex-guarded slice — the
// drain path is the only contended one and it runs at most once per tick.
package logqueue

import (
	"strings"
	"sync"

	"github.com/distr1/dashboard/internal/term"
)

// Level is the severity of a deferred console line.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

// Event is one deferred log line.
type Event struct {
	Level        Level
	Message      string
	ANSIPrebaked bool // message already contains ANSI color codes
}

// Queue is the MPSC log-event queue.
type Queue struct {
	mu    sync.Mutex
	items []Event
}

// New returns an empty Queue.
func New() *Queue { return &Queue{} }

// Push enqueues ev. Safe to call from any producer goroutine.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, ev)
}

// DrainAll removes and returns every currently queued event, in arrival
// order. Only the renderer calls this.
func (q *Queue) DrainAll() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// RenderResult is the outcome of rendering a drained batch: the formatted
// lines to print above the frame, and whether any warning/error was among
// them (used to latch the warning/error thread-line caps, §4.L).
type RenderResult struct {
	Lines        []string
	SawWarning   bool
	SawError     bool
}

// Render formats a batch of drained events into printable lines. A
// message already containing ANSI is emitted as-is; otherwise WARN is
// wrapped in the warning color and ERROR in the error color. Messages are
// split on embedded newlines so the returned line count exactly matches
// what will be printed — an undercount here would corrupt the next
// frame's clear sequence.
func Render(events []Event) RenderResult {
	var res RenderResult
	for _, ev := range events {
		for _, part := range strings.Split(ev.Message, "\n") {
			line := part
			if !ev.ANSIPrebaked {
				switch ev.Level {
				case Warn:
					line = term.AsWarning(part)
				case Error:
					line = term.AsError(part)
				}
			}
			res.Lines = append(res.Lines, line)
		}
		switch ev.Level {
		case Warn:
			res.SawWarning = true
		case Error:
			res.SawError = true
		}
	}
	return res
}
