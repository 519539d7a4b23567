// Package scheduler runs named jobs on wall-clock schedules. Each run holds a
// lease so a job executes on at most one node at a time.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/danishnav/team-catalog/internal/lock"
	"github.com/danishnav/team-catalog/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Job struct {
	Name     string
	Schedule Schedule
	// Lease bounds both the lock and the run.
	Lease time.Duration
	Run   func(ctx context.Context) error
}

type Runner struct {
	locker  lock.Locker
	warmup  time.Duration
	started time.Time
	clock   func() time.Time
	log     *zap.Logger
}

func NewRunner(locker lock.Locker, warmup time.Duration, log *zap.Logger) *Runner {
	return &Runner{
		locker:  locker,
		warmup:  warmup,
		started: time.Now(),
		clock:   time.Now,
		log:     log,
	}
}

// RunJob executes one tick of job. Ticks during warmup or without the lease
// are skipped and return nil.
func (r *Runner) RunJob(ctx context.Context, job Job) error {
	start := r.clock()
	if start.Sub(r.started) < r.warmup {
		r.log.Debug("job skipped during warmup", zap.String("job", job.Name))
		metrics.ObserveJob(job.Name, metrics.OutcomeWarmup, start)
		return nil
	}
	return r.runLocked(ctx, job, start)
}

// Once executes job immediately, ignoring warmup.
func (r *Runner) Once(ctx context.Context, job Job) error {
	return r.runLocked(ctx, job, r.clock())
}

func (r *Runner) runLocked(ctx context.Context, job Job, start time.Time) error {
	lease, held, err := r.locker.TryAcquire(ctx, job.Name, job.Lease)
	if err != nil {
		metrics.ObserveJob(job.Name, metrics.OutcomeError, start)
		return err
	}
	if !held {
		r.log.Debug("job lock held elsewhere", zap.String("job", job.Name))
		metrics.ObserveJob(job.Name, metrics.OutcomeSkipped, start)
		return nil
	}
	defer func() {
		// The run context may be expired already.
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			r.log.Warn("failed to release job lock", zap.String("job", job.Name), zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, job.Lease)
	defer cancel()

	if err := job.Run(runCtx); err != nil {
		metrics.ObserveJob(job.Name, metrics.OutcomeError, start)
		return err
	}
	metrics.ObserveJob(job.Name, metrics.OutcomeOK, start)
	return nil
}

// Start runs every job on its schedule until ctx is done. Job errors are
// logged and never stop the loop.
func (r *Runner) Start(ctx context.Context, jobs ...Job) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			return r.loop(ctx, job)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Runner) loop(ctx context.Context, job Job) error {
	r.log.Info("job scheduled", zap.String("job", job.Name), zap.Time("next", job.Schedule.Next(r.clock())))
	for {
		next := job.Schedule.Next(r.clock())
		if next.IsZero() {
			r.log.Warn("job has no next run", zap.String("job", job.Name))
			return nil
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := r.RunJob(ctx, job); err != nil {
			r.log.Error("job failed", zap.String("job", job.Name), zap.Error(err))
		}
	}
}
