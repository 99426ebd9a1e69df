// Package frame composes the ordered list of lines for one tick. The
// ordering is fixed; each block is elided when its gating condition is
// false (§4.K).
package frame

import (
	"fmt"
	"strconv"

	"github.com/distr1/dashboard/internal/activity"
	"github.com/distr1/dashboard/internal/clock"
	"github.com/distr1/dashboard/internal/term"
	"github.com/distr1/dashboard/internal/threadstate"
)

// PhaseElapsed is the subset of eventpair.ElapsedResult the composer
// needs, kept dependency-free here so frame doesn't have to import
// eventpair just to re-export its result type.
type PhaseElapsed struct {
	CompletedMS      int64
	CurrentlyRunning bool
	RunningMS        int64
}

func (p PhaseElapsed) totalMS() int64 {
	if p.CurrentlyRunning {
		return p.CompletedMS + p.RunningMS
	}
	return p.CompletedMS
}

// Percent is an optional percentage annotation, e.g. for "[42.0%]".
type Percent struct {
	Value float64
	Valid bool
}

func (p Percent) String() string {
	if !p.Valid {
		return ""
	}
	return fmt.Sprintf(" [%.1f%%]", p.Value)
}

// DistBuild is the latest distributed-build snapshot, or the zero value
// when the build is not distributed.
type DistBuild struct {
	Active  bool
	State   int // mirrors dashboard.DistBuildState, kept opaque here
	ETAMS   int64
	Message string
	LogBook []LogBookEntry
}

// LogBookEntry mirrors dashboard.LogBookEntry.
type LogBookEntry struct {
	TimestampMS   int64
	TimestampText string // pre-formatted "[yyyy-MM-dd HH:mm:ss.SSS]", locale/timezone applied by the caller
	Name          string
}

// Input bundles every value the composer needs, already extracted from
// the owning components by the engine so this package stays free of the
// import graph those components pull in.
type Input struct {
	NowMS int64
	Width int

	// Active is false until the engine has dispatched at least one event.
	// An empty build renders nothing at all (§8 scenario 1) rather than a
	// placeholder parsing line.
	Active bool

	ParseStarted  bool
	ParseElapsed  PhaseElapsed
	ParsePercent  Percent

	ProcessingElapsed PhaseElapsed
	ProcessingPercent Percent

	ProjectGenStarted bool
	ProjectGenElapsed PhaseElapsed
	ProjectGenPercent Percent

	// ProcessingComplete gates everything from the network-stats line
	// onward: it is true once a numeric parse time has actually been
	// returned (i.e. parsing is no longer in flight).
	ProcessingComplete bool

	NetSpeedText  string
	NetTotalText  string
	NetArtifacts  int64
	BuildInFlight bool

	DistBuild DistBuild

	BuildElapsed  PhaseElapsed
	BuildPercent  Percent
	BuildJobsArg  int
	BuildTraceURL string
	BuildWorkers  map[int]activity.Leaf
	BuildRunning  bool

	RuleCount      int
	RulesCompleted int
	RulesUpdated   int
	CacheMiss      int64
	CacheError     int64

	TestingActive bool
	TestPass      int64
	TestFail      int64
	TestSkip      int64
	TestWorkers   map[int]activity.Leaf // merged step + test-summary + status-message slots

	InstallActive bool
	InstallElapsed PhaseElapsed

	HTTPUploadScheduled int64
	HTTPUploadStarted   int64
	HTTPUploadDone      int64
	HTTPUploadFailed    int64
	HTTPUploadsActive   bool

	MaxThreadLines       int
	AlwaysSortThreadsByTime bool
}

// Compose produces the ordered line list for one tick.
func Compose(in Input) []string {
	if !in.Active {
		return nil
	}
	var lines []string

	if in.DistBuild.Active {
		lines = append(lines, term.AsWarning("Distributed build debug info:"))
		for _, e := range in.DistBuild.LogBook {
			lines = append(lines, fmt.Sprintf("%s %s", e.TimestampText, e.Name))
		}
	}

	if !in.ParseStarted {
		lines = append(lines, parseLine(in))
	} else {
		lines = append(lines, processingLine(in))
	}

	if in.ProjectGenStarted {
		lines = append(lines, projectGenLine(in))
	}

	if !in.ProcessingComplete {
		return lines
	}

	lines = append(lines, networkLine(in))

	if in.DistBuild.Active {
		lines = append(lines, distBuildStatusLine(in))
	}

	lines = append(lines, buildingLine(in))
	if in.BuildRunning {
		lines = append(lines, threadstate.Render(in.BuildWorkers, in.NowMS, in.MaxThreadLines, in.AlwaysSortThreadsByTime, in.Width)...)
	}

	lines = append(lines, testingLine(in))
	if in.TestingActive {
		lines = append(lines, threadstate.Render(in.TestWorkers, in.NowMS, in.MaxThreadLines, in.AlwaysSortThreadsByTime, in.Width)...)
	}

	if in.InstallActive {
		lines = append(lines, installingLine(in))
	}

	if in.HTTPUploadsActive {
		lines = append(lines, httpUploadLine(in))
	}

	return lines
}

func marker(running bool) string {
	if running {
		return "[+]"
	}
	return "[-]"
}

func parseLine(in Input) string {
	return fmt.Sprintf("%s PARSING BUCK FILES...%s%s", marker(true), clock.FormatElapsedMS(in.ParseElapsed.totalMS()), in.ParsePercent)
}

func processingLine(in Input) string {
	return fmt.Sprintf("[±] PROCESSING BUCK FILES...%s%s", clock.FormatElapsedMS(in.ProcessingElapsed.totalMS()), in.ProcessingPercent)
}

func projectGenLine(in Input) string {
	return fmt.Sprintf("[±] GENERATING PROJECT...%s%s", clock.FormatElapsedMS(in.ProjectGenElapsed.totalMS()), in.ProjectGenPercent)
}

func networkLine(in Input) string {
	return fmt.Sprintf("%s DOWNLOADING... (%s, TOTAL: %s, %d Artifacts)",
		marker(in.BuildInFlight), in.NetSpeedText, in.NetTotalText, in.NetArtifacts)
}

func distBuildStatusLine(in Input) string {
	msg := in.DistBuild.Message
	if msg == "" {
		msg = "in progress"
	}
	return fmt.Sprintf("[±] DIST BUILD: %s (eta %s)", msg, clock.FormatElapsedMS(in.DistBuild.ETAMS))
}

func buildingLine(in Input) string {
	jobs := jobsSummary(in)
	suffix := jobs
	if in.BuildTraceURL != "" {
		suffix = jobs + ", " + in.BuildTraceURL
	}
	return fmt.Sprintf("[±] BUILDING...%s%s (%s)", clock.FormatElapsedMS(in.BuildElapsed.totalMS()), in.BuildPercent, suffix)
}

// jobsSummary formats "N/M JOBS, K UPDATED, X [p%] CACHE MISS[, Y [q%] CACHE
// ERRORS]". p is cache_miss/ruleCount (not completed rules) so the
// percentage improves monotonically rather than being biased by
// short-circuiting cache hits; q is cache_error/rules_updated.
func jobsSummary(in Input) string {
	s := fmt.Sprintf("%d/%d JOBS, %d UPDATED", in.RulesCompleted, in.RuleCount, in.RulesUpdated)
	if in.RuleCount > 0 {
		p := 100 * float64(in.CacheMiss) / float64(in.RuleCount)
		s += fmt.Sprintf(", %d [%s%%] CACHE MISS", in.CacheMiss, strconv.FormatFloat(p, 'f', 1, 64))
		if in.RulesUpdated > 0 && in.CacheError > 0 {
			q := 100 * float64(in.CacheError) / float64(in.RulesUpdated)
			s += fmt.Sprintf(", %d [%s%%] CACHE ERRORS", in.CacheError, strconv.FormatFloat(q, 'f', 1, 64))
		}
	}
	return s
}

func testingLine(in Input) string {
	return fmt.Sprintf("[±] TESTING...(%d PASS/%d SKIP/%d FAIL)", in.TestPass, in.TestSkip, in.TestFail)
}

func installingLine(in Input) string {
	return fmt.Sprintf("[±] INSTALLING...%s", clock.FormatElapsedMS(in.InstallElapsed.totalMS()))
}

func httpUploadLine(in Input) string {
	return fmt.Sprintf("[±] UPLOADING... (%d COMPLETE/%d FAILED/%d UPLOADING/%d PENDING)",
		in.HTTPUploadDone, in.HTTPUploadFailed, in.HTTPUploadStarted, in.HTTPUploadScheduled)
}
