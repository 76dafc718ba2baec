package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gprs_formatter/internal/config"
	"gprs_formatter/internal/events"
	"gprs_formatter/internal/metrics"
	"gprs_formatter/internal/store"
)

func testSetup(t *testing.T, fn RunFunc) (*Runner, *events.Bus, string) {
	t.Helper()
	cfg := config.Config{WorkerCount: 1, QueueSize: 4, JobTimeoutSec: 5}
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	src := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(src, []byte("phone\n790123456\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bus := events.NewBus()
	return NewRunner(cfg, st, metrics.New(), bus, fn), bus, src
}

func TestEnqueueCoalescesDuplicateTriggers(t *testing.T) {
	runner, _, src := testSetup(t, func(ctx context.Context, run *store.Run) error { return nil })
	ctx := context.Background()

	r1, err := runner.Enqueue(ctx, src)
	if err != nil {
		t.Fatalf("enqueue1: %v", err)
	}
	r2, err := runner.Enqueue(ctx, src)
	if err != nil {
		t.Fatalf("enqueue2: %v", err)
	}
	if r1.RunID != r2.RunID {
		t.Fatalf("expected coalesced run, got %s vs %s", r1.RunID, r2.RunID)
	}
}

func TestEnqueueMissingFile(t *testing.T) {
	runner, _, _ := testSetup(t, func(ctx context.Context, run *store.Run) error { return nil })
	if _, err := runner.Enqueue(context.Background(), "does-not-exist.csv"); err == nil {
		t.Fatal("expected stat error")
	}
}

func TestWorkerExecutesRun(t *testing.T) {
	runner, bus, src := testSetup(t, func(ctx context.Context, run *store.Run) error {
		run.Counts.MainRows = 3
		return nil
	})
	sub := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)
	defer runner.Stop()

	run, err := runner.Enqueue(ctx, src)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case ev := <-sub:
		if ev.RunID != run.RunID || ev.Status != store.StatusSucceeded {
			t.Fatalf("event = %+v", ev)
		}
		if ev.MainRows != 3 {
			t.Fatalf("main rows = %d", ev.MainRows)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run never completed")
	}
}

func TestWorkerRecordsFailure(t *testing.T) {
	boom := errors.New("transform blew up")
	runner, bus, src := testSetup(t, func(ctx context.Context, run *store.Run) error { return boom })
	sub := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner.Start(ctx)
	defer runner.Stop()

	run, err := runner.Enqueue(ctx, src)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case ev := <-sub:
		if ev.Status != store.StatusFailed || ev.Err != boom.Error() {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run never completed")
	}

	got, err := runner.store.GetRun(context.Background(), run.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != store.StatusFailed || got.LastError == nil || *got.LastError != boom.Error() {
		t.Fatalf("stored run = %+v", got)
	}
}
