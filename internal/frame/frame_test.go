package frame

import (
	"strings"
	"testing"
)

func TestEmptyBuildComposesNothing(t *testing.T) {
	if lines := Compose(Input{NowMS: 0}); lines != nil {
		t.Fatalf("inactive composer should emit nothing, got %v", lines)
	}
}

func TestActiveBeforeParseShowsPlaceholder(t *testing.T) {
	lines := Compose(Input{NowMS: 0, Active: true})
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (parsing placeholder): %v", len(lines), lines)
	}
}

func TestParseThenBuildScenario(t *testing.T) {
	in := Input{
		NowMS:              2500,
		Active:             true,
		ParseStarted:       true,
		ProcessingElapsed:  PhaseElapsed{CompletedMS: 1000},
		ProcessingComplete: true,
		NetSpeedText:       "0 B/s",
		NetTotalText:       "0 B",
		BuildElapsed:       PhaseElapsed{CompletedMS: 1000},
		BuildJobsArg:       1,
		RuleCount:          10,
		RulesCompleted:     10,
		RulesUpdated:       0,
		CacheMiss:          0,
		MaxThreadLines:     10,
	}
	lines := Compose(in)
	var processing, building string
	for _, l := range lines {
		if strings.Contains(l, "PROCESSING") {
			processing = l
		}
		if strings.Contains(l, "BUILDING") {
			building = l
		}
	}
	if !strings.Contains(processing, "1.0s") {
		t.Fatalf("processing line = %q, want elapsed 1.0s", processing)
	}
	want := "10/10 JOBS, 0 UPDATED, 0 [0.0%] CACHE MISS"
	if !strings.Contains(building, want) {
		t.Fatalf("building line = %q, want to contain %q", building, want)
	}
	if !strings.Contains(building, "1.0s") {
		t.Fatalf("building line = %q, want elapsed 1.0s", building)
	}
}

func TestCachePercentagesScenario(t *testing.T) {
	s := jobsSummary(Input{
		RuleCount:      4,
		RulesCompleted: 4,
		RulesUpdated:   3,
		CacheMiss:      1,
		CacheError:     1,
	})
	want := "4/4 JOBS, 3 UPDATED, 1 [25.0%] CACHE MISS, 1 [33.3%] CACHE ERRORS"
	if s != want {
		t.Fatalf("jobsSummary = %q, want %q", s, want)
	}
}

func TestDistBuildDebugBlockOnlyWhenActive(t *testing.T) {
	lines := Compose(Input{Active: true, DistBuild: DistBuild{Active: false}})
	for _, l := range lines {
		if strings.Contains(l, "Distributed build debug info") {
			t.Fatalf("debug block should be elided when not distributed")
		}
	}
	lines = Compose(Input{
		Active:    true,
		DistBuild: DistBuild{Active: true, LogBook: []LogBookEntry{{TimestampText: "[2026-01-01 00:00:00.000]", Name: "queued"}}},
	})
	if !strings.Contains(lines[0], "Distributed build debug info") {
		t.Fatalf("expected debug header first, got %v", lines)
	}
	if !strings.Contains(lines[1], "queued") {
		t.Fatalf("expected log book entry line, got %v", lines)
	}
}
