package testreport

import (
	"strings"
	"testing"

	"github.com/distr1/dashboard/internal/activity"
	"github.com/distr1/dashboard/internal/counters"
	"github.com/distr1/dashboard/internal/logqueue"
)

func newAgg() (*Aggregator, *counters.Counters, *logqueue.Queue) {
	c := counters.New()
	q := logqueue.New()
	return New(c, activity.New(0), activity.New(0), q), c, q
}

func TestDuplicateTestRunStartedPanics(t *testing.T) {
	a, _, _ := newAgg()
	a.OnTestRunStarted(0)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate TestRunStarted")
		}
	}()
	a.OnTestRunStarted(1)
}

func TestSummaryFinishedFoldsCountersAndEnqueuesFailureLog(t *testing.T) {
	a, c, q := newAgg()
	a.OnTestSummaryStarted(1, 0, "//pkg:test")
	a.OnTestSummaryFinished(1, Fail, "X", "y", "boom")

	if c.TestFail.Load() != 1 {
		t.Fatalf("TestFail = %d, want 1", c.TestFail.Load())
	}
	events := q.DrainAll()
	if len(events) != 1 {
		t.Fatalf("got %d log events, want 1", len(events))
	}
	if events[0].Message != "FAILURE X y: boom" {
		t.Fatalf("message = %q, want %q", events[0].Message, "FAILURE X y: boom")
	}
}

func TestRunFinishedWritesReportAndForcesRender(t *testing.T) {
	a, _, _ := newAgg()
	a.OnTestRunStarted(0)
	a.AppendResult(Pass, "X", "y")
	a.OnTestStatusMessageStarted(1, 0, "setting up")
	a.OnTestStatusMessageFinished(1, "setting up")

	rendered := false
	var written string
	err := a.OnTestRunFinished(1000, func() { rendered = true }, func(s string) error {
		written = s
		return nil
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !rendered {
		t.Fatalf("expected forced render before writing the report")
	}
	if !strings.Contains(written, "PASS X y") {
		t.Fatalf("report missing result line: %q", written)
	}
	if !strings.Contains(written, "setting up") {
		t.Fatalf("report missing status message: %q", written)
	}
}

func TestDuplicateTestRunFinishedPanics(t *testing.T) {
	a, _, _ := newAgg()
	a.OnTestRunStarted(0)
	noop := func(string) error { return nil }
	if err := a.OnTestRunFinished(0, nil, noop, ""); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate TestRunFinished")
		}
	}()
	a.OnTestRunFinished(0, nil, noop, "")
}
