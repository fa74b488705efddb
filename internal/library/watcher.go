package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Watcher periodically imports every path marked watch for changes
type Watcher struct {
	cron     *cron.Cron
	schedule string
	importer *Importer
	repo     Repository
	logger   *zap.Logger
	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher firing on a cron schedule such as "@every 1m"
func NewWatcher(importer *Importer, repo Repository, schedule string, logger *zap.Logger) *Watcher {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &Watcher{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		schedule: schedule,
		importer: importer,
		repo:     repo,
		logger:   logger,
	}
}

// Start schedules the scan and starts the cron scheduler
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	if _, err := w.cron.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid watch schedule %q: %w", w.schedule, err)
	}

	w.logger.Info("Starting folder watcher", zap.String("schedule", w.schedule))
	w.cron.Start()
	w.cancel = cancel
	w.running = true
	return nil
}

// Stop stops the scheduler and waits for a running scan to finish
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.logger.Info("Stopping folder watcher")
	w.cancel()
	<-w.cron.Stop().Done()
	w.running = false
}

// RunOnce imports all watched paths and returns the combined summary
func (w *Watcher) RunOnce(ctx context.Context) Summary {
	var total Summary

	paths, err := w.repo.ListWatchedPaths(ctx)
	if err != nil {
		w.logger.Error("Failed to list watched paths", zap.Error(err))
		return total
	}

	libs := make(map[string]*Library)
	for _, p := range paths {
		lib, ok := libs[p.LibraryID]
		if !ok {
			lib, err = w.repo.GetLibrary(ctx, p.LibraryID)
			if err != nil {
				w.logger.Error("Failed to load library", zap.String("library_id", p.LibraryID), zap.Error(err))
				continue
			}
			libs[p.LibraryID] = lib
		}

		sum, err := w.importer.ImportPath(ctx, lib, p)
		total.add(sum)
		if err != nil {
			w.logger.Error("Failed to import watched path",
				zap.String("library_id", p.LibraryID),
				zap.String("path", p.Path),
				zap.Error(err))
		}
	}
	return total
}
