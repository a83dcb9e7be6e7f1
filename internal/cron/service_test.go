package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/portal/pkg/logger"
	"github.com/angelmondragon/portal/pkg/memstore"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type countingRecorder struct {
	success map[string]int
	failure map[string]int
	timed   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{success: map[string]int{}, failure: map[string]int{}}
}

func (c *countingRecorder) ObserveJobDuration(string, time.Duration) { c.timed++ }
func (c *countingRecorder) IncJobSuccess(job string)                  { c.success[job]++ }
func (c *countingRecorder) IncJobFailure(job string)                  { c.failure[job]++ }

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	recorder := newCountingRecorder()
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(success, failure),
		Metrics:  recorder,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	service.runCycle(context.Background())

	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
	if recorder.success["success"] != 1 || recorder.failure["fail"] != 1 || recorder.timed != 2 {
		t.Fatalf("unexpected metrics: %+v", recorder)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "tick"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); err != nil {
		t.Fatalf("expected nil on cancel, got %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected no runs before the first tick, got %d", job.runs)
	}
}

func TestNewServiceRequiresLogger(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func TestSweepJobEvictsExpiredEntries(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memstore.New().WithClock(func() time.Time { return now })
	ctx := context.Background()
	if err := store.Set(ctx, store.SessionKey("old"), "{}", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, store.SessionKey("fresh"), "{}", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(2 * time.Minute)

	job, err := NewSweepJob(store)
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := store.Len(); got != 1 {
		t.Fatalf("expected 1 live entry, got %d", got)
	}
}
