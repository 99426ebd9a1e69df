package dashboard

import (
	"strings"

	"golang.org/x/xerrors"

	"github.com/distr1/dashboard/internal/activity"
	"github.com/distr1/dashboard/internal/counters"
	"github.com/distr1/dashboard/internal/logqueue"
	"github.com/distr1/dashboard/internal/testreport"
)

// Dispatch routes ev to whichever component owns its field (§4.M). It is
// the engine's single subscription surface; any Kind it doesn't
// recognize is ignored, and it never calls into rendering directly
// except for the forced render on TestRunFinished.
func (e *Engine) Dispatch(ev Event) {
	e.active.Store(true)

	switch ev.Kind {
	case KindParseStarted:
		e.parseStarted.Store(true)
		e.parse.OnStart(ev.Key, ev.TimestampMS)
	case KindParseFinished:
		e.parse.OnFinish(ev.Key, ev.TimestampMS)
		e.processingComplete.Store(true)

	case KindActionGraphStarted:
		e.actionGraph.OnStart(ev.Key, ev.TimestampMS)
	case KindActionGraphFinished:
		e.actionGraph.OnFinish(ev.Key, ev.TimestampMS)

	case KindProjectGenStarted:
		e.projectGenStarted.Store(true)
		e.projectGen.OnStart(ev.Key, ev.TimestampMS)
	case KindProjectGenFinished:
		e.projectGen.OnFinish(ev.Key, ev.TimestampMS)

	case KindBuildStarted:
		e.ruleCount.Store(int64(ev.RuleCount))
		e.jobsArg.Store(int64(ev.Jobs))
		if ev.HTTPPort > 0 {
			e.httpPort.Store(int64(ev.HTTPPort))
		}
		e.buildIDMu.Lock()
		e.buildID = ev.BuildID
		e.buildIDMu.Unlock()
		e.build.OnStart(ev.Key, ev.TimestampMS)
		e.buildInFlight.Store(true)
		e.buildRunning.Store(true)
	case KindBuildFinished:
		e.build.OnFinish(ev.Key, ev.TimestampMS)
		e.buildInFlight.Store(false)
		e.buildRunning.Store(false)

	case KindRuleStarted:
		e.buildWorkers.Start(ev.WorkerID, activity.Leaf{
			StartedMS: ev.TimestampMS,
			Label:     ev.RuleName,
			Short:     shortToken(ev.RuleName),
		})
	case KindRuleFinished:
		e.buildWorkers.Finish(ev.WorkerID)
		if ev.RuleStatus == RuleSuccess {
			e.counters.OnRuleFinishedSuccess(counters.CacheType(ev.CacheType))
		} else {
			e.counters.OnRuleFinishedOther()
		}

	case KindStepStarted:
		e.buildWorkers.Start(ev.WorkerID, activity.Leaf{
			StartedMS: ev.TimestampMS,
			Label:     ev.StepName,
			Short:     shortToken(ev.StepName),
		})
	case KindStepFinished:
		e.buildWorkers.Finish(ev.WorkerID)

	case KindCompressionStarted:
		e.buildWorkers.Start(ev.WorkerID, activity.Leaf{
			StartedMS: ev.TimestampMS,
			Label:     "compressing " + ev.RuleName,
			Short:     shortToken(ev.RuleName),
		})
	case KindCompressionFinished:
		e.buildWorkers.Finish(ev.WorkerID)

	case KindInstallStarted:
		e.installActive.Store(true)
		e.install.OnStart(ev.Key, ev.TimestampMS)
	case KindInstallFinished:
		e.install.OnFinish(ev.Key, ev.TimestampMS)
		e.installActive.Store(false)

	case KindHTTPUploadScheduled:
		e.counters.HTTPUploadsScheduled.Add(1)
		e.uploadsActive.Store(true)
	case KindHTTPUploadStarted:
		e.counters.HTTPUploadsStarted.Add(1)
	case KindHTTPUploadDone:
		e.counters.HTTPUploadsDone.Add(1)
		e.net.OnArtifact()
	case KindHTTPUploadFailed:
		e.counters.HTTPUploadsFailed.Add(1)

	case KindTestRunStarted:
		e.testingActive.Store(true)
		e.tests.OnTestRunStarted(ev.TimestampMS)
	case KindTestRunFinished:
		err := e.tests.OnTestRunFinished(ev.TimestampMS, e.driver.RenderNow, e.writeTestReport, e.cfg.TestLogPath)
		if err != nil {
			e.log.Printf("dashboard: %v", xerrors.Errorf("persisting test report: %w", err))
		}
		e.testingActive.Store(false)
	case KindTestSummaryStarted:
		e.testingActive.Store(true)
		e.tests.OnTestSummaryStarted(ev.WorkerID, ev.TimestampMS, ev.TestName)
	case KindTestSummaryFinished:
		typ := testreport.TestResultType(ev.TestType)
		e.tests.OnTestSummaryFinished(ev.WorkerID, typ, ev.TestCase, ev.TestName, ev.TestMessage)
		e.tests.AppendResult(typ, ev.TestCase, ev.TestName)
	case KindTestStatusMessageStarted:
		e.tests.OnTestStatusMessageStarted(ev.WorkerID, ev.TimestampMS, ev.Message)
	case KindTestStatusMessageFinished:
		e.tests.OnTestStatusMessageFinished(ev.WorkerID, ev.Message)

	case KindBytesReceived:
		e.net.OnBytesReceived(ev.Bytes)

	case KindConsoleLog:
		e.logs.Push(logqueue.Event{
			Level:        logqueue.Level(ev.LogLevel),
			Message:      ev.Message,
			ANSIPrebaked: ev.MessageIsPrebaked,
		})

	case KindDistBuildStatus:
		e.distMu.Lock()
		e.dist = distSnapshot{
			active:  true,
			state:   ev.DistState,
			etaMS:   ev.DistETAMS,
			message: ev.DistMessage,
			logBook: ev.DistLogBook,
		}
		e.distMu.Unlock()

	default:
		// unrecognized kind; ignored per §6.
	}
}

// shortToken derives a compact overflow-line token from a full label
// (the last path/target segment), mirroring the same rule the test
// aggregator applies to test names so build and test overflow lines look
// consistent.
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
