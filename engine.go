// Package dashboard is the live terminal dashboard engine for a parallel
// build/test orchestrator: ingest a stream of typed Events from many
// worker threads, fold them into a small aggregate state model, and
// periodically render the current state as a self-clearing multi-line
// ANSI frame.
//
// Construct an Engine, call Start, feed it Events via Dispatch from any
// number of goroutines, and call Close exactly once when the build ends.
package dashboard

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/distr1/dashboard/internal/activity"
	"github.com/distr1/dashboard/internal/counters"
	"github.com/distr1/dashboard/internal/eventpair"
	"github.com/distr1/dashboard/internal/frame"
	"github.com/distr1/dashboard/internal/logqueue"
	"github.com/distr1/dashboard/internal/netstats"
	"github.com/distr1/dashboard/internal/progress"
	"github.com/distr1/dashboard/internal/render"
	"github.com/distr1/dashboard/internal/term"
	"github.com/distr1/dashboard/internal/testreport"
)

// Engine is the assembled dashboard: every component from §4 wired
// together and driven by a single render.Driver.
type Engine struct {
	cfg Config
	log *log.Logger

	writer *term.Writer
	driver *render.Driver

	parse       *eventpair.Tracker
	actionGraph *eventpair.Tracker
	projectGen  *eventpair.Tracker
	build       *eventpair.Tracker
	install     *eventpair.Tracker

	buildWorkers       *activity.Map
	testSummaryWorkers *activity.Map
	testStatusWorkers  *activity.Map

	counters *counters.Counters
	net      *netstats.Stats
	logs     *logqueue.Queue
	tests    *testreport.Aggregator

	estimator progress.Estimator

	active              atomic.Bool
	parseStarted        atomic.Bool
	projectGenStarted   atomic.Bool
	processingComplete  atomic.Bool
	buildInFlight       atomic.Bool
	buildRunning        atomic.Bool
	testingActive       atomic.Bool
	installActive       atomic.Bool
	uploadsActive       atomic.Bool

	anyWarnings atomic.Bool
	anyErrors   atomic.Bool

	ruleCount atomic.Int64
	jobsArg   atomic.Int64
	httpPort  atomic.Int64

	buildIDMu sync.RWMutex
	buildID   string

	distMu sync.Mutex
	dist   distSnapshot
}

// distSnapshot is the latest DistBuildStatus; the latest always replaces
// the prior one (§3).
type distSnapshot struct {
	active  bool
	state   DistBuildState
	etaMS   int64
	message string
	logBook []LogBookEntry
}

// NewEngine constructs an Engine. stdout/stderr are the streams the
// dashboard shares with foreign writers; fdStdout/fdStderr are their
// underlying file descriptors (pass -1 when not backed by a real fd, e.g.
// in tests). estimator may be nil, in which case phases render without
// percentages. logger may be nil, in which case log.Default() is used.
func NewEngine(cfg Config, stdout, stderr io.Writer, fdStdout, fdStderr uintptr, estimator progress.Estimator, logger *log.Logger) *Engine {
	cfg = cfg.WithDefaults()
	if estimator == nil {
		estimator = progress.None{}
	}
	if logger == nil {
		logger = log.Default()
	}

	hint := runtime.NumCPU()
	e := &Engine{
		cfg:                cfg,
		log:                logger,
		writer:             term.New(stdout, stderr, fdStdout, fdStderr),
		parse:              eventpair.New(),
		actionGraph:        eventpair.New(),
		projectGen:         eventpair.New(),
		build:              eventpair.New(),
		install:            eventpair.New(),
		buildWorkers:       activity.New(hint),
		testSummaryWorkers: activity.New(hint),
		testStatusWorkers:  activity.New(hint),
		counters:           counters.New(),
		logs:               logqueue.New(),
		estimator:          estimator,
	}
	e.net = netstats.New(time.Now().UnixMilli())
	e.tests = testreport.New(e.counters, e.testSummaryWorkers, e.testStatusWorkers, e.logs)
	e.driver = render.New(e.writer, cfg.RenderInterval, e.compose, e.drainLogs, e.onLatch, logger)
	return e
}

// Start launches the render scheduler.
func (e *Engine) Start() { e.driver.Start() }

// Close stops the network-stats timer and the render scheduler, and
// performs exactly one final render reflecting the build's end state.
// Idempotent.
func (e *Engine) Close() {
	e.net.Stop()
	e.driver.Close()
}

// IsDirty reports whether a foreign write to the shared terminal was
// detected and rendering has permanently stood down.
func (e *Engine) IsDirty() bool { return e.driver.IsDirty() }

// RenderNow forces one render pass outside the scheduled cadence.
func (e *Engine) RenderNow() { e.driver.RenderNow() }

func (e *Engine) writeTestReport(s string) error {
	return e.writer.WriteReport(s)
}

func (e *Engine) compose(nowMS int64) []string {
	return frame.Compose(e.buildInput(nowMS))
}

func (e *Engine) drainLogs() ([]string, bool, bool) {
	events := e.logs.DrainAll()
	if events == nil {
		return nil, false, false
	}
	res := logqueue.Render(events)
	return res.Lines, res.SawWarning, res.SawError
}

func (e *Engine) onLatch(sawWarning, sawError bool) {
	if sawWarning {
		e.anyWarnings.Store(true)
	}
	if sawError {
		e.anyErrors.Store(true)
	}
}

func elapsedOf(t *eventpair.Tracker, nowMS int64) frame.PhaseElapsed {
	res := eventpair.Elapsed(t.Snapshot(), nowMS)
	return frame.PhaseElapsed{
		CompletedMS:      res.CompletedMS,
		CurrentlyRunning: res.CurrentlyRunning,
		RunningMS:        res.RunningMS,
	}
}

func percentOf(frac float64, ok bool) frame.Percent {
	if !ok {
		return frame.Percent{}
	}
	return frame.Percent{Value: frac * 100, Valid: true}
}

// buildElapsed computes the build phase's elapsed time minus the portion
// of [build_start, build_end] that parse+action-graph work overlapped
// (§4.K "offset_ms"), so a build that waited on parsing doesn't also
// claim that wait as its own elapsed time.
func (e *Engine) buildElapsed(nowMS int64) frame.PhaseElapsed {
	buildPairs := e.build.Snapshot()
	raw := eventpair.Elapsed(buildPairs, nowMS)
	total := raw.CompletedMS
	if raw.CurrentlyRunning {
		total += raw.RunningMS
	}
	if len(buildPairs) == 0 {
		return frame.PhaseElapsed{}
	}

	var start, end int64
	for i, p := range buildPairs {
		s := p.Start
		en := nowMS
		if p.End != nil {
			en = *p.End
		}
		if i == 0 || s < start {
			start = s
		}
		if i == 0 || en > end {
			end = en
		}
	}

	processing := append(e.parse.Snapshot(), e.actionGraph.Snapshot()...)
	overlap := eventpair.Elapsed(eventpair.Between(processing, start, end), nowMS).CompletedMS

	elapsed := total - overlap
	if elapsed < 0 {
		elapsed = 0
	}
	return frame.PhaseElapsed{CompletedMS: elapsed}
}

func mergeActivity(base, overlay map[int]activity.Leaf) map[int]activity.Leaf {
	out := make(map[int]activity.Leaf, len(base)+len(overlay))
	for id, leaf := range base {
		out[id] = leaf
	}
	for id, leaf := range overlay {
		out[id] = leaf
	}
	return out
}

func (e *Engine) buildInput(nowMS int64) frame.Input {
	dist := func() distSnapshot {
		e.distMu.Lock()
		defer e.distMu.Unlock()
		return e.dist
	}()

	anyW, anyE := e.anyWarnings.Load(), e.anyErrors.Load()

	var distInput frame.DistBuild
	if dist.active {
		book := make([]frame.LogBookEntry, len(dist.logBook))
		for i, entry := range dist.logBook {
			book[i] = frame.LogBookEntry{
				TimestampMS:   entry.TimestampMS,
				TimestampText: time.UnixMilli(entry.TimestampMS).In(e.cfg.Location).Format("[2006-01-02 15:04:05.000]"),
				Name:          entry.Name,
			}
		}
		distInput = frame.DistBuild{
			Active:  true,
			State:   int(dist.state),
			ETAMS:   dist.etaMS,
			Message: dist.message,
			LogBook: book,
		}
	}

	buildElapsed := e.buildElapsed(nowMS)
	buildPercent := percentOf(e.estimator.BuildProgress())
	if dist.active {
		buildPercent = percentOf(progress.DistBuildProgress(buildElapsed.CompletedMS, dist.etaMS))
	}

	var traceURL string
	if port := e.httpPort.Load(); port > 0 {
		e.buildIDMu.RLock()
		id := e.buildID
		e.buildIDMu.RUnlock()
		if id != "" {
			traceURL = fmt.Sprintf("Details: http://localhost:%d/trace/%s", port, id)
		}
	}

	parsePercent := percentOf(e.estimator.ParseProgress())
	projectGenPercent := percentOf(e.estimator.ProjectGenProgress())

	processingPairs := append(e.parse.Snapshot(), e.actionGraph.Snapshot()...)
	processingElapsed := func() frame.PhaseElapsed {
		res := eventpair.Elapsed(processingPairs, nowMS)
		return frame.PhaseElapsed{CompletedMS: res.CompletedMS, CurrentlyRunning: res.CurrentlyRunning, RunningMS: res.RunningMS}
	}()

	return frame.Input{
		NowMS:  nowMS,
		Width:  e.writer.Width(),
		Active: e.active.Load(),

		ParseStarted: e.parseStarted.Load(),
		ParseElapsed: elapsedOf(e.parse, nowMS),
		ParsePercent: parsePercent,

		ProcessingElapsed: processingElapsed,
		ProcessingPercent: parsePercent,

		ProjectGenStarted: e.projectGenStarted.Load(),
		ProjectGenElapsed: elapsedOf(e.projectGen, nowMS),
		ProjectGenPercent: projectGenPercent,

		ProcessingComplete: e.processingComplete.Load(),

		NetSpeedText:  netSpeedText(e.net, nowMS),
		NetTotalText:  netTotalText(e.net),
		NetArtifacts:  e.net.ArtifactCount(),
		BuildInFlight: e.buildInFlight.Load(),

		DistBuild: distInput,

		BuildElapsed:  buildElapsed,
		BuildPercent:  buildPercent,
		BuildJobsArg:  int(e.jobsArg.Load()),
		BuildTraceURL: traceURL,
		BuildWorkers:  e.buildWorkers.Snapshot(),
		BuildRunning:  e.buildRunning.Load(),

		RuleCount:      int(e.ruleCount.Load()),
		RulesCompleted: int(e.counters.RulesCompleted.Load()),
		RulesUpdated:   int(e.counters.RulesUpdated.Load()),
		CacheMiss:      e.counters.CacheMiss.Load(),
		CacheError:     e.counters.CacheError.Load(),

		TestingActive: e.testingActive.Load(),
		TestPass:      e.counters.TestPass.Load(),
		TestFail:      e.counters.TestFail.Load(),
		TestSkip:      e.counters.TestSkip.Load(),
		TestWorkers:   mergeActivity(mergeActivity(e.buildWorkers.Snapshot(), e.testSummaryWorkers.Snapshot()), e.testStatusWorkers.Snapshot()),

		InstallActive:  e.installActive.Load(),
		InstallElapsed: elapsedOf(e.install, nowMS),

		HTTPUploadScheduled: e.counters.HTTPUploadsScheduled.Load(),
		HTTPUploadStarted:   e.counters.HTTPUploadsStarted.Load(),
		HTTPUploadDone:      e.counters.HTTPUploadsDone.Load(),
		HTTPUploadFailed:    e.counters.HTTPUploadsFailed.Load(),
		HTTPUploadsActive:   e.uploadsActive.Load(),

		MaxThreadLines:          e.cfg.threadLineLimit(anyW, anyE),
		AlwaysSortThreadsByTime: e.cfg.AlwaysSortThreadsByTime,
	}
}

func netSpeedText(n *netstats.Stats, nowMS int64) string {
	return netstats.FormatSpeed(n.InstantBps(nowMS))
}

func netTotalText(n *netstats.Stats) string {
	return netstats.FormatBytes(n.TotalBytes())
}
