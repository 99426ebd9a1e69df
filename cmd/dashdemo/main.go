// Command dashdemo drives a dashboard.Engine with a synthetic event
// stream, standing in for a real event bus so the dashboard can be
// exercised end to end without a build engine attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/distr1/dashboard"
	"github.com/distr1/dashboard/internal/oninterrupt"
	internaltrace "github.com/distr1/dashboard/internal/trace"
)

var (
	workers        = flag.Int("workers", 8, "number of synthetic build workers")
	rules          = flag.Int("rules", 60, "number of synthetic rules to build")
	tests          = flag.Int("tests", 20, "number of synthetic tests to run")
	renderInterval = flag.Duration("render_interval", 150*time.Millisecond, "frame driver tick period")
	testLogPath    = flag.String("test_log_path", "", "path to persist the final test report at, if non-empty")
	ctracefile     = flag.String("ctracefile", "", "path to store a chrome trace event file at (load in chrome://tracing)")
)

func funcmain() error {
	flag.Parse()

	if *ctracefile != "" {
		f, err := os.Create(*ctracefile)
		if err != nil {
			return xerrors.Errorf("creating trace file: %w", err)
		}
		internaltrace.Sink(f)
	}

	cfg := dashboard.Config{
		RenderInterval: *renderInterval,
		TestLogPath:    *testLogPath,
	}.WithDefaults()

	engine := dashboard.NewEngine(cfg, os.Stdout, os.Stderr, os.Stdout.Fd(), os.Stderr.Fd(), nil, log.Default())
	oninterrupt.Register(engine.Close)
	engine.Start()
	defer engine.Close()

	ctx, canc := dashboard.InterruptibleContext()
	defer canc()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runBuild(ctx, engine) })
	if err := g.Wait(); err != nil {
		return xerrors.Errorf("synthetic build: %w", err)
	}
	return nil
}

// runBuild dispatches a synthetic parse -> build -> test sequence across
// *workers goroutines, mirroring the shape of events a real event bus
// would deliver for a mid-size build.
func runBuild(ctx context.Context, engine *dashboard.Engine) error {
	start := time.Now().UnixMilli()
	now := func() int64 { return time.Now().UnixMilli() - start }

	engine.Dispatch(dashboard.Event{TimestampMS: now(), Key: "parse", Kind: dashboard.KindParseStarted})
	if err := sleep(ctx, 300*time.Millisecond); err != nil {
		return err
	}
	engine.Dispatch(dashboard.Event{TimestampMS: now(), Key: "parse", Kind: dashboard.KindParseFinished})

	engine.Dispatch(dashboard.Event{
		TimestampMS: now(),
		Key:         "build",
		Kind:        dashboard.KindBuildStarted,
		RuleCount:   *rules,
		Jobs:        *workers,
		BuildID:     "demo-build",
	})

	g, ctx := errgroup.WithContext(ctx)
	ruleCh := make(chan int)
	g.Go(func() error {
		defer close(ruleCh)
		for i := 0; i < *rules; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ruleCh <- i:
			}
		}
		return nil
	})
	for w := 0; w < *workers; w++ {
		workerID := w
		g.Go(func() error { return buildWorker(ctx, engine, workerID, ruleCh, now) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	engine.Dispatch(dashboard.Event{TimestampMS: now(), Key: "build", Kind: dashboard.KindBuildFinished})

	return runTests(ctx, engine, now)
}

func buildWorker(ctx context.Context, engine *dashboard.Engine, workerID int, ruleCh <-chan int, now func() int64) error {
	for i := range ruleCh {
		name := fmt.Sprintf("//pkg%d:rule%d", workerID, i)
		engine.Dispatch(dashboard.Event{
			TimestampMS: now(),
			WorkerID:    workerID,
			Kind:        dashboard.KindRuleStarted,
			RuleName:    name,
		})
		if err := sleep(ctx, time.Duration(20+rand.Intn(80))*time.Millisecond); err != nil {
			return err
		}
		engine.Dispatch(dashboard.Event{
			TimestampMS: now(),
			WorkerID:    workerID,
			Kind:        dashboard.KindRuleFinished,
			RuleName:    name,
			RuleStatus:  dashboard.RuleSuccess,
			CacheType:   cacheOutcome(i),
		})
	}
	return nil
}

func cacheOutcome(i int) dashboard.CacheResultType {
	switch i % 4 {
	case 0:
		return dashboard.CacheHit
	case 1:
		return dashboard.CacheMiss
	case 2:
		return dashboard.CacheLocalKeyUnchangedHit
	default:
		return dashboard.CacheError
	}
}

func runTests(ctx context.Context, engine *dashboard.Engine, now func() int64) error {
	engine.Dispatch(dashboard.Event{TimestampMS: now(), Kind: dashboard.KindTestRunStarted})

	g, ctx := errgroup.WithContext(ctx)
	testCh := make(chan int)
	g.Go(func() error {
		defer close(testCh)
		for i := 0; i < *tests; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case testCh <- i:
			}
		}
		return nil
	})
	for w := 0; w < *workers; w++ {
		workerID := w
		g.Go(func() error { return testWorker(ctx, engine, workerID, testCh, now) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	engine.Dispatch(dashboard.Event{TimestampMS: now(), Kind: dashboard.KindTestRunFinished})
	return nil
}

func testWorker(ctx context.Context, engine *dashboard.Engine, workerID int, testCh <-chan int, now func() int64) error {
	for i := range testCh {
		name := fmt.Sprintf("//pkg%d:test%d", workerID, i)
		engine.Dispatch(dashboard.Event{
			TimestampMS: now(),
			WorkerID:    workerID,
			Kind:        dashboard.KindTestSummaryStarted,
			TestName:    name,
		})
		if err := sleep(ctx, time.Duration(10+rand.Intn(40))*time.Millisecond); err != nil {
			return err
		}
		typ := dashboard.TestPass
		if i%11 == 0 {
			typ = dashboard.TestFail
		}
		engine.Dispatch(dashboard.Event{
			TimestampMS: now(),
			WorkerID:    workerID,
			Kind:        dashboard.KindTestSummaryFinished,
			TestName:    name,
			TestType:    typ,
			TestCase:    name,
			TestMessage: "ok",
		})
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
