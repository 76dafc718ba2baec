package watch

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"gprs_formatter/internal/config"
	"gprs_formatter/internal/ingest"
	"gprs_formatter/internal/jobs"
)

// Watcher monitors the exports directory for new CSV drops and enqueues
// pipeline runs.
type Watcher struct {
	cfg    config.Config
	runner *jobs.Runner
}

func New(cfg config.Config, runner *jobs.Runner) *Watcher {
	return &Watcher{cfg: cfg, runner: runner}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isExport(evt.Name) {
					if _, err := w.runner.Enqueue(ctx, evt.Name); err != nil {
						log.Printf("enqueue %s: %v", evt.Name, err)
					}
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.ExportsDir)
}

// Backfill enqueues a run for the newest export already on disk, so a
// restart never strands a delivered file.
func (w *Watcher) Backfill(ctx context.Context) error {
	latest, err := ingest.LatestExport(w.cfg.ExportsDir)
	if errors.Is(err, ingest.ErrNoExports) {
		log.Printf("backfill: %v", err)
		return nil
	}
	if err != nil {
		return err
	}
	_, err = w.runner.Enqueue(ctx, latest)
	return err
}

func isExport(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
