package jobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"gprs_formatter/internal/config"
	"gprs_formatter/internal/events"
	"gprs_formatter/internal/metrics"
	"gprs_formatter/internal/store"
)

// RunFunc executes one pipeline run and fills in the run's counts and
// detected encoding before returning.
type RunFunc func(ctx context.Context, run *store.Run) error

// Runner drains a bounded queue of pipeline runs with a fixed worker
// pool. Triggers are at-least-once (watcher, backfill, HTTP), so runs
// are deduplicated by export identity before they reach the queue.
type Runner struct {
	cfg     config.Config
	store   *store.Store
	metrics *metrics.Metrics
	bus     *events.Bus
	fn      RunFunc
	queue   chan *store.Run
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func NewRunner(cfg config.Config, st *store.Store, m *metrics.Metrics, bus *events.Bus, fn RunFunc) *Runner {
	return &Runner{
		cfg:     cfg,
		store:   st,
		metrics: m,
		bus:     bus,
		fn:      fn,
		queue:   make(chan *store.Run, cfg.QueueSize),
	}
}

// Start spins up the worker pool.
func (r *Runner) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	for i := 0; i < r.cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
}

// Stop cancels workers and waits for in-flight runs.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Enqueue registers a run for an export file and queues it. A repeat
// trigger for the same snapshot coalesces onto the already-recorded run.
func (r *Runner) Enqueue(ctx context.Context, sourcePath string) (*store.Run, error) {
	key, err := exportIdentity(sourcePath)
	if err != nil {
		return nil, err
	}
	run := &store.Run{
		RunID:          uuid.NewString(),
		SourceFile:     sourcePath,
		Status:         store.StatusQueued,
		IdempotencyKey: key,
		CreatedAt:      config.Now(),
	}
	recorded, err := r.store.InsertRunIdempotent(ctx, run)
	if err == store.ErrConflict {
		log.Printf("run for %s already recorded (run_id=%s status=%s)", sourcePath, recorded.RunID, recorded.Status)
		return recorded, nil
	}
	if err != nil {
		return nil, err
	}
	select {
	case r.queue <- run:
		return run, nil
	default:
		return nil, fmt.Errorf("run queue full, dropping %s", sourcePath)
	}
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case run := <-r.queue:
			r.execute(ctx, run)
		}
	}
}

func (r *Runner) execute(ctx context.Context, run *store.Run) {
	start := time.Now()
	_ = r.store.MarkRunStarted(ctx, run.RunID, config.Now())

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.JobTimeoutSec)*time.Second)
	err := r.fn(runCtx, run)
	cancel()

	run.Status = store.StatusSucceeded
	ev := events.RunCompleted{
		RunID:        run.RunID,
		SourceFile:   run.SourceFile,
		MainRows:     run.Counts.MainRows,
		FeedbackRows: run.Counts.FeedbackRows,
	}
	if err != nil {
		run.Status = store.StatusFailed
		msg := err.Error()
		run.LastError = &msg
		ev.Err = msg
	}
	ev.Status = run.Status
	_ = r.store.MarkRunFinished(ctx, run, config.Now())
	r.metrics.RecordRun(err)
	r.bus.Publish(ev)
	log.Printf("run=%s source=%s duration_ms=%d status=%s", run.RunID, run.SourceFile,
		time.Since(start).Milliseconds(), run.Status)
}

// exportIdentity keys a run on the export file's path, size, and
// modification time, so re-delivered triggers for the same snapshot
// dedupe while a rewritten file runs again.
func exportIdentity(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat export: %w", err)
	}
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d", path, info.Size(), info.ModTime().UnixNano()))
	return hex.EncodeToString(h[:]), nil
}
