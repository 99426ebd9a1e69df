package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/distr1/dashboard/internal/term"
)

func noLogs() ([]string, bool, bool) { return nil, false, false }

func TestEmptyTickWritesNothing(t *testing.T) {
	var out, errBuf bytes.Buffer
	w := term.New(&out, &errBuf, ^uintptr(0), ^uintptr(0))
	d := New(w, time.Hour, func(int64) []string { return nil }, noLogs, nil, nil)
	d.RenderNow()
	if errBuf.Len() != 0 {
		t.Fatalf("expected no output for an empty frame, got %q", errBuf.String())
	}
	if d.lastNumLines != 0 {
		t.Fatalf("lastNumLines = %d, want 0", d.lastNumLines)
	}
}

func TestClearSequenceMatchesPriorLineCount(t *testing.T) {
	var out, errBuf bytes.Buffer
	w := term.New(&out, &errBuf, ^uintptr(0), ^uintptr(0))
	calls := 0
	compose := func(int64) []string {
		calls++
		if calls == 1 {
			return []string{"a", "b"}
		}
		return []string{"c"}
	}
	d := New(w, time.Hour, compose, noLogs, nil, nil)
	d.RenderNow()
	if d.lastNumLines != 2 {
		t.Fatalf("lastNumLines = %d, want 2", d.lastNumLines)
	}
	errBuf.Reset()
	d.RenderNow()
	if !strings.Contains(errBuf.String(), term.ClearLines(2)) {
		t.Fatalf("second tick should clear exactly 2 prior lines: %q", errBuf.String())
	}
	if d.lastNumLines != 1 {
		t.Fatalf("lastNumLines = %d, want 1", d.lastNumLines)
	}
}

func TestDirtyStreamStopsRenderingPermanently(t *testing.T) {
	var out, errBuf bytes.Buffer
	w := term.New(&out, &errBuf, ^uintptr(0), ^uintptr(0))
	d := New(w, time.Hour, func(int64) []string { return []string{"x"} }, noLogs, nil, nil)
	d.RenderNow()
	// A foreign write dirties stderr.
	w.Stderr().Write([]byte("some other process\n"))
	errBuf.Reset()
	keepGoing := d.tick()
	if keepGoing {
		t.Fatalf("tick should report stop after detecting a dirty stream")
	}
	if !d.IsDirty() {
		t.Fatalf("expected IsDirty() to be true")
	}
}

func TestOnLatchReceivesWarningAndErrorFlags(t *testing.T) {
	var out, errBuf bytes.Buffer
	w := term.New(&out, &errBuf, ^uintptr(0), ^uintptr(0))
	var gotW, gotE bool
	drain := func() ([]string, bool, bool) { return []string{"oops"}, true, true }
	d := New(w, time.Hour, func(int64) []string { return nil }, drain, func(w, e bool) { gotW, gotE = w, e }, nil)
	d.RenderNow()
	if !gotW || !gotE {
		t.Fatalf("onLatch did not receive warning/error flags: w=%v e=%v", gotW, gotE)
	}
}

func TestCloseIsIdempotentAndRendersOnce(t *testing.T) {
	var out, errBuf bytes.Buffer
	w := term.New(&out, &errBuf, ^uintptr(0), ^uintptr(0))
	renders := 0
	d := New(w, time.Millisecond, func(int64) []string { renders++; return []string{"x"} }, noLogs, nil, nil)
	d.Start()
	d.Close()
	afterFirst := renders
	d.Close() // must not panic or render again via Start's loop
	if renders != afterFirst {
		t.Fatalf("second Close rendered again: %d renders, want %d", renders, afterFirst)
	}
}
