// Package pipeline orchestrates one end-to-end run: ingest an export,
// transform and route its records, assemble the report, and persist the
// results. Every stage is synchronous and owns its data; field-level
// failures degrade in place while structural failures abort the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gprs_formatter/internal/config"
	"gprs_formatter/internal/ingest"
	"gprs_formatter/internal/metrics"
	"gprs_formatter/internal/report"
	"gprs_formatter/internal/store"
	"gprs_formatter/internal/ticket"
)

type Pipeline struct {
	cfg     config.Config
	store   *store.Store
	metrics *metrics.Metrics
}

func New(cfg config.Config, st *store.Store, m *metrics.Metrics) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, metrics: m}
}

// Execute runs the full pipeline for one export snapshot, filling the
// run's counts and encoding as it goes.
func (p *Pipeline) Execute(ctx context.Context, run *store.Run) error {
	ds, err := ingest.Load(run.SourceFile)
	if err != nil {
		return err
	}
	run.Encoding = ds.Encoding

	records, stats, err := ticket.Transform(ds)
	if err != nil {
		return fmt.Errorf("transform %s: %w", filepath.Base(run.SourceFile), err)
	}
	streams := ticket.Route(ds, records)
	model := report.Assemble(streams, config.Now(), p.cfg.StaleAfterDays, p.cfg.FreshLagDays)

	run.Counts = store.RunCounts{
		InputRows:     stats.InputRows,
		MainRows:      len(model.Main),
		FeedbackRows:  len(model.Feedback),
		SwappedCoords: stats.SwappedCoords,
		DummyCoords:   stats.DummyCoords,
		MissingCoords: stats.MissingCoords,
		UnparsedDates: model.Pivots.Temporal.Unparsed,
	}
	p.metrics.AddFieldCounts(stats.SwappedCoords, stats.DummyCoords, stats.MissingCoords,
		model.Pivots.Temporal.Unparsed)

	payload, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := p.store.SaveReport(ctx, run.RunID, payload, config.Now()); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	if err := p.writeReportFiles(run.RunID, payload); err != nil {
		return err
	}

	log.Printf("pipeline: source=%s encoding=%s input=%d main=%d feedback=%d swapped=%d dummy=%d no_location=%d unparsed_dates=%d",
		filepath.Base(run.SourceFile), run.Encoding, stats.InputRows, len(model.Main), len(model.Feedback),
		stats.SwappedCoords, stats.DummyCoords, stats.MissingCoords, model.Pivots.Temporal.Unparsed)
	return nil
}

// writeReportFiles drops the report JSON into the work directory: one
// file per run plus latest.json for the rendering collaborator.
func (p *Pipeline) writeReportFiles(runID string, payload []byte) error {
	if err := os.MkdirAll(p.cfg.WorkDir, 0o755); err != nil {
		return err
	}
	runPath := filepath.Join(p.cfg.WorkDir, "report_"+runID+".json")
	if err := os.WriteFile(runPath, payload, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	latest := filepath.Join(p.cfg.WorkDir, "latest.json")
	if err := os.WriteFile(latest, payload, 0o644); err != nil {
		return fmt.Errorf("write latest report: %w", err)
	}
	return nil
}
