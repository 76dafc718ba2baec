package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInsertRunIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	r1 := &Run{RunID: "run-1", SourceFile: "a.csv", Status: StatusQueued, IdempotencyKey: "k1", CreatedAt: now}
	if _, err := st.InsertRunIdempotent(ctx, r1); err != nil {
		t.Fatalf("insert: %v", err)
	}

	r2 := &Run{RunID: "run-2", SourceFile: "a.csv", Status: StatusQueued, IdempotencyKey: "k1", CreatedAt: now}
	existing, err := st.InsertRunIdempotent(ctx, r2)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if existing.RunID != "run-1" {
		t.Fatalf("conflict returned %q", existing.RunID)
	}
}

func TestRunLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	r := &Run{RunID: "run-1", SourceFile: "a.csv", Status: StatusQueued, IdempotencyKey: "k1", CreatedAt: now}
	if _, err := st.InsertRunIdempotent(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := st.MarkRunStarted(ctx, r.RunID, now); err != nil {
		t.Fatal(err)
	}

	r.Status = StatusSucceeded
	r.Encoding = "utf-8"
	r.Counts = RunCounts{InputRows: 10, MainRows: 8, FeedbackRows: 2, SwappedCoords: 1}
	if err := st.MarkRunFinished(ctx, r, now); err != nil {
		t.Fatal(err)
	}

	got, err := st.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("run not found")
	}
	if got.Status != StatusSucceeded || got.Encoding != "utf-8" {
		t.Fatalf("run = %+v", got)
	}
	if got.Counts.InputRows != 10 || got.Counts.FeedbackRows != 2 || got.Counts.SwappedCoords != 1 {
		t.Fatalf("counts = %+v", got.Counts)
	}
	if got.StartedAt == nil || got.FinishedAt == nil {
		t.Fatal("timestamps not recorded")
	}
}

func TestGetRunMissing(t *testing.T) {
	st := openTestStore(t)
	got, err := st.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestSaveAndLatestReport(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	t0 := time.Now().UTC().Truncate(time.Second)

	if err := st.SaveReport(ctx, "run-1", []byte(`{"v":1}`), t0); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveReport(ctx, "run-2", []byte(`{"v":2}`), t0.Add(time.Second)); err != nil {
		t.Fatal(err)
	}

	runID, payload, err := st.LatestReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if runID != "run-2" || string(payload) != `{"v":2}` {
		t.Fatalf("latest = %s %s", runID, payload)
	}

	// Re-saving for the same run replaces the payload.
	if err := st.SaveReport(ctx, "run-2", []byte(`{"v":3}`), t0.Add(2*time.Second)); err != nil {
		t.Fatal(err)
	}
	_, payload, err = st.LatestReport(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"v":3}` {
		t.Fatalf("payload = %s", payload)
	}
}

func TestLatestReportEmpty(t *testing.T) {
	st := openTestStore(t)
	runID, payload, err := st.LatestReport(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if runID != "" || payload != nil {
		t.Fatalf("expected empty, got %s %s", runID, payload)
	}
}

func TestHealth(t *testing.T) {
	st := openTestStore(t)
	if err := st.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
