// Package testreport accumulates per-test results and the formatted
// report fragments written to stdout when the whole run finishes.
package testreport

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/distr1/dashboard/internal/activity"
	"github.com/distr1/dashboard/internal/clock"
	"github.com/distr1/dashboard/internal/counters"
	"github.com/distr1/dashboard/internal/logqueue"
)

// Aggregator is the test-run aggregator (§4.I). Its report and
// status-message builders are guarded by one mutex; the start/finish
// latches are atomics, and the counters and activity maps it writes to
// synchronize themselves.
type Aggregator struct {
	counters       *counters.Counters
	testSummary    *activity.Map // worker -> current test summary
	testStatusMsg  *activity.Map // worker -> current test-status message
	logQueue       *logqueue.Queue

	started  atomic.Bool
	finished atomic.Bool

	mu             sync.Mutex
	report         strings.Builder
	statusMessages strings.Builder
}

// New constructs an Aggregator wired to the shared counters, activity
// maps, and log queue it folds test events into.
func New(c *counters.Counters, testSummary, testStatusMsg *activity.Map, q *logqueue.Queue) *Aggregator {
	return &Aggregator{counters: c, testSummary: testSummary, testStatusMsg: testStatusMsg, logQueue: q}
}

// OnTestRunStarted records the run start and appends the report header.
// A duplicate start is a fatal contract violation: the producer is buggy,
// and masking it would hide a real bug in the event-bus client.
func (a *Aggregator) OnTestRunStarted(nowMS int64) {
	if !a.started.CompareAndSwap(false, true) {
		panic("dashboard: duplicate TestRunStarted — producer contract violation")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(&a.report, "TEST RUN STARTED at %s\n", clock.FormatElapsedMS(nowMS))
	fmt.Fprintln(&a.report, strings.Repeat("-", 40))
}

// OnTestSummaryStarted records that workerID is now running testName.
func (a *Aggregator) OnTestSummaryStarted(workerID int, nowMS int64, testName string) {
	a.testSummary.Start(workerID, activity.Leaf{
		StartedMS: nowMS,
		Label:     testName,
		Short:     shortToken(testName),
	})
}

// TestResultType mirrors dashboard.TestResultType without importing the
// root package (avoiding an import cycle): Pass, Fail, Skip.
type TestResultType int

const (
	Pass TestResultType = iota
	Fail
	Skip
)

// OnTestSummaryFinished folds the outcome into the pass/fail/skip tallies,
// clears the worker's test-summary slot, and — on FAILURE — enqueues a
// synthesized error log line above the status block.
func (a *Aggregator) OnTestSummaryFinished(workerID int, typ TestResultType, testCase, name, message string) {
	a.testSummary.Finish(workerID)
	switch typ {
	case Pass:
		a.counters.TestPass.Add(1)
	case Fail:
		a.counters.TestFail.Add(1)
		a.logQueue.Push(logqueue.Event{
			Level:   logqueue.Error,
			Message: fmt.Sprintf("FAILURE %s %s: %s", testCase, name, message),
		})
	case Skip:
		a.counters.TestSkip.Add(1)
	}
}

// OnTestStatusMessageStarted records workerID's current status message.
func (a *Aggregator) OnTestStatusMessageStarted(workerID int, nowMS int64, message string) {
	a.testStatusMsg.Start(workerID, activity.Leaf{
		StartedMS: nowMS,
		Label:     message,
		Short:     shortToken(message),
	})
}

// OnTestStatusMessageFinished clears the worker's status-message slot and
// appends the message to the guarded status-message buffer.
func (a *Aggregator) OnTestStatusMessageFinished(workerID int, message string) {
	a.testStatusMsg.Finish(workerID)
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintln(&a.statusMessages, message)
}

// AppendResult formats one finished test result into the report. Called
// by the dispatcher as individual TestSummaryFinished events arrive, so
// the report grows incrementally rather than all at once on
// TestRunFinished.
func (a *Aggregator) AppendResult(typ TestResultType, testCase, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var label string
	switch typ {
	case Pass:
		label = "PASS"
	case Fail:
		label = "FAIL"
	case Skip:
		label = "SKIP"
	}
	fmt.Fprintf(&a.report, "%s %s %s\n", label, testCase, name)
}

// OnTestRunFinished CAS-stores the finish (a duplicate is likewise a fatal
// contract violation), appends a run-complete summary including every
// collected status message, forces one frame render via renderNow so the
// caller sees the final counts reflected on screen, then writes the
// accumulated report to stdout as a single block and — if logPath is
// non-empty — persists it atomically alongside.
func (a *Aggregator) OnTestRunFinished(nowMS int64, renderNow func(), writeReport func(string) error, logPath string) error {
	if !a.finished.CompareAndSwap(false, true) {
		panic("dashboard: duplicate TestRunFinished — producer contract violation")
	}

	a.mu.Lock()
	fmt.Fprintln(&a.report, strings.Repeat("-", 40))
	fmt.Fprintf(&a.report, "TEST RUN FINISHED at %s\n", clock.FormatElapsedMS(nowMS))
	if a.statusMessages.Len() > 0 {
		fmt.Fprintln(&a.report, "Status messages:")
		a.report.WriteString(a.statusMessages.String())
	}
	block := a.report.String()
	a.mu.Unlock()

	if renderNow != nil {
		renderNow()
	}

	if err := writeReport(block); err != nil {
		return err
	}
	if logPath != "" {
		if err := renameio.WriteFile(logPath, []byte(block), 0644); err != nil {
			return xerrors.Errorf("persist test log: %w", err)
		}
	}
	return nil
}

// shortToken derives a compact overflow-line token from a full label,
// e.g. the last path segment of a test/target name.
func shortToken(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 && i+1 < len(s) {
		s = s[i+1:]
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 && i+1 < len(s) {
		s = s[i+1:]
	}
	if len(s) > 16 {
		s = s[:16]
	}
	return s
}
