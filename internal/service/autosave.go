package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"inkfinite/internal/logger"
)

// ─────────────────────────────────────────────────────────────
// Autosave — scheduled safety-net flush
// ─────────────────────────────────────────────────────────────
//
// The debounced sink already persists edits moments after they happen;
// the autosaver exists for the failure path, retrying buffered patches
// that a flush left behind.

// DefaultAutosaveSpec is the cron schedule used when the config has none.
const DefaultAutosaveSpec = "@every 30s"

const autosaveTask = "autosave"

// Flusher is the slice of the sink the autosaver drives.
type Flusher interface {
	FlushRetry(ctx context.Context) error
}

// Autosave periodically forces a retried flush on a cron schedule. Cron
// runs each tick on its own goroutine; the guard makes a tick a no-op
// while the previous flush is still retrying.
type Autosave struct {
	flusher Flusher
	spec    string
	log     *zap.SugaredLogger
	guard   runGuard

	sched *cron.Cron
}

// NewAutosave creates an Autosave with the given cron spec ("@every 30s").
// An empty spec falls back to the default.
func NewAutosave(flusher Flusher, spec string) *Autosave {
	if spec == "" {
		spec = DefaultAutosaveSpec
	}
	return &Autosave{
		flusher: flusher,
		spec:    spec,
		log:     logger.For(logger.ComponentAutosave),
	}
}

// Start schedules the periodic flush. It fails on an invalid cron spec.
func (a *Autosave) Start() error {
	if a.sched != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(a.spec, a.tick)
	if err != nil {
		return fmt.Errorf("schedule autosave %q: %w", a.spec, err)
	}
	c.Start()
	a.sched = c
	a.log.Debugf("autosave scheduled %s", a.spec)
	return nil
}

func (a *Autosave) tick() {
	if !a.guard.TryLock(autosaveTask) {
		a.log.Debugf("autosave tick skipped, previous flush still running")
		return
	}
	defer a.guard.Unlock(autosaveTask)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := a.flusher.FlushRetry(ctx); err != nil {
		a.log.Warnf("autosave flush failed: %v", err)
	}
}

// Stop cancels the schedule. A tick already running is not interrupted;
// WaitRunning bounds the wait for it.
func (a *Autosave) Stop() {
	if a.sched == nil {
		return
	}
	a.sched.Stop()
	a.sched = nil
}

// WaitRunning blocks until an in-flight flush finishes or ctx is cancelled.
// Used for graceful shutdown.
func (a *Autosave) WaitRunning(ctx context.Context) {
	a.guard.WaitAll(ctx)
}
