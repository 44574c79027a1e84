// Package runner schedules verification runs and enforces that only one run
// writes the directory at a time.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tomatolover555/windrose-ai/internal/discovery"
	"github.com/tomatolover555/windrose-ai/internal/engine"
	"github.com/tomatolover555/windrose-ai/internal/snapshot"
)

var ErrRunInProgress = errors.New("run already in progress")

const stopPollInterval = 20 * time.Millisecond

// Collector supplies the candidates of a run. *discovery.Aggregator
// satisfies it.
type Collector interface {
	Collect(ctx context.Context) ([]discovery.Candidate, map[string]discovery.FeedStats)
}

// Settler is told which domains a run probed. *submission.Queue satisfies it.
type Settler interface {
	Settle(probed []string)
}

type Runner struct {
	engine    *engine.Engine
	manager   *snapshot.Manager
	collector Collector
	settlers  []Settler
	guard     snapshot.RunGuard
	stopped   atomic.Bool

	mu        sync.RWMutex
	last      *engine.Report
	feedStats map[string]discovery.FeedStats

	// base is the parent context of runs started by Trigger.
	base context.Context
}

func New(eng *engine.Engine, manager *snapshot.Manager, collector Collector) *Runner {
	return &Runner{
		engine:    eng,
		manager:   manager,
		collector: collector,
		base:      context.Background(),
	}
}

// AddSettler registers s to hear about the domains of every finished run.
func (r *Runner) AddSettler(s Settler) {
	r.settlers = append(r.settlers, s)
}

// RunOnce performs a full cycle: collect, probe, merge, commit.
func (r *Runner) RunOnce(ctx context.Context) (engine.Report, error) {
	if !r.guard.TryAcquire() {
		return engine.Report{}, ErrRunInProgress
	}
	defer r.guard.Release()

	return r.run(ctx)
}

// Trigger starts a run in the background. It returns false if one is
// already active.
func (r *Runner) Trigger() bool {
	if !r.guard.TryAcquire() {
		return false
	}

	r.mu.RLock()
	ctx := r.base
	r.mu.RUnlock()

	go func() {
		defer r.guard.Release()
		if _, err := r.run(ctx); err != nil {
			log.Errorf("Triggered run failed: %v", err)
		}
	}()
	return true
}

// run requires the guard to be held.
func (r *Runner) run(ctx context.Context) (engine.Report, error) {
	candidates, stats := r.collector.Collect(ctx)
	prev := r.manager.Current()

	next, report := r.engine.Run(ctx, prev, candidates)
	for _, s := range r.settlers {
		s.Settle(report.ProbedDomains)
	}

	r.mu.Lock()
	r.last = &report
	r.feedStats = stats
	r.mu.Unlock()

	if err := r.manager.Commit(next); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) Running() bool { return r.guard.Running() && !r.stopped.Load() }

// Stop waits for the active run, if any, to commit and then keeps the guard
// so no further run starts. Call it before closing the storage behind the
// snapshot manager.
func (r *Runner) Stop(ctx context.Context) error {
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for !r.guard.TryAcquire() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for active run: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	r.stopped.Store(true)
	return nil
}

// LastReport returns the report of the most recent run, if any.
func (r *Runner) LastReport() (engine.Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return engine.Report{}, false
	}
	return *r.last, true
}

func (r *Runner) FeedStats() map[string]discovery.FeedStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]discovery.FeedStats, len(r.feedStats))
	for k, v := range r.feedStats {
		out[k] = v
	}
	return out
}

// Loop runs immediately and then every interval until ctx is done.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	r.mu.Lock()
	r.base = ctx
	r.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("Run loop stopped")
			return
		case <-ticker.C:
			r.runLogged(ctx)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	report, err := r.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress) && r.stopped.Load():
		log.Debug("Skipping scheduled run: runner stopped")
	case errors.Is(err, ErrRunInProgress):
		log.Warn("Skipping scheduled run: previous run still active")
	case err != nil:
		log.Errorf("Run %s failed to commit: %v", report.RunID, err)
	}
}
