// Package scheduler drives the recurring pipeline cycles: per-kind source
// fetches, analysis runs, synthesis runs, and the weekly digest.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"hypewatch/internal/model"
	"hypewatch/internal/pipeline"
)

// Runner is the pipeline surface the scheduler drives.
type Runner interface {
	FetchAll(ctx context.Context) (*pipeline.FetchSummary, error)
	FetchKind(ctx context.Context, kind model.SourceKind) (*pipeline.FetchSummary, error)
	Process(ctx context.Context) (*pipeline.ProcessSummary, error)
	Synthesize(ctx context.Context, periodDays int, withDigest bool) (*model.SynthesisRun, error)
}

// job is one recurring cycle. The first firing happens after initial, then
// every interval.
type job struct {
	name     string
	initial  time.Duration
	interval time.Duration
	run      func(ctx context.Context) error
}

// Scheduler owns the timer loops. Start spawns them; Stop cancels and waits.
type Scheduler struct {
	runner Runner
	cfg    model.ScheduleConfig
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler over the pipeline runner.
func New(runner Runner, cfg model.ScheduleConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{runner: runner, cfg: cfg, logger: logger}
}

// jobs builds the recurring job table from configuration.
func (s *Scheduler) jobs() []job {
	var jobs []job

	for _, kind := range model.Kinds() {
		kind := kind
		cadence := s.cfg.CadenceFor(kind)
		jobs = append(jobs, job{
			name:     "fetch-" + string(kind),
			initial:  cadence,
			interval: cadence,
			run: func(ctx context.Context) error {
				_, err := s.runner.FetchKind(ctx, kind)
				return err
			},
		})
	}

	processEvery := hoursOr(s.cfg.ProcessHours, 2)
	jobs = append(jobs, job{
		name:     "process",
		initial:  processEvery,
		interval: processEvery,
		run: func(ctx context.Context) error {
			_, err := s.runner.Process(ctx)
			return err
		},
	})

	synthesisEvery := hoursOr(s.cfg.SynthesisHours, 24)
	jobs = append(jobs, job{
		name:     "synthesize",
		initial:  synthesisEvery,
		interval: synthesisEvery,
		run: func(ctx context.Context) error {
			_, err := s.runner.Synthesize(ctx, 7, false)
			return err
		},
	})

	// The digest run is anchored to a wall-clock slot rather than a relative
	// interval, so restarts do not drift it.
	digestAt := NextWeekly(time.Now().UTC(), time.Weekday(s.cfg.DigestWeekday), s.cfg.DigestHourUTC)
	jobs = append(jobs, job{
		name:     "weekly-digest",
		initial:  time.Until(digestAt),
		interval: 7 * 24 * time.Hour,
		run: func(ctx context.Context) error {
			_, err := s.runner.Synthesize(ctx, 7, true)
			return err
		},
	})

	return jobs
}

// Start launches every recurring job plus one immediate fetch-and-process
// pass, so a fresh deployment has data before the first cadence elapses.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(ctx, "startup-fetch", func(ctx context.Context) error {
			_, err := s.runner.FetchAll(ctx)
			return err
		})
		s.runOnce(ctx, "startup-process", func(ctx context.Context) error {
			_, err := s.runner.Process(ctx)
			return err
		})
	}()

	for _, j := range s.jobs() {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}

	s.logger.Info("scheduler started")
}

// Stop cancels all timer loops and waits for in-flight cycles to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	initial := j.initial
	if initial < 0 {
		initial = 0
	}
	timer := time.NewTimer(initial)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.runOnce(ctx, j.name, j.run)
			timer.Reset(j.interval)
		}
	}
}

// runOnce executes one cycle, treating an already-running operation as a
// skipped beat rather than a failure.
func (s *Scheduler) runOnce(ctx context.Context, name string, run func(ctx context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	if err := run(ctx); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			s.logger.Debug("cycle skipped, operation in flight", zap.String("job", name))
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("scheduled cycle failed", zap.String("job", name), zap.Error(err))
	}
}

// NextWeekly returns the next occurrence of weekday at hourUTC strictly after
// from.
func NextWeekly(from time.Time, weekday time.Weekday, hourUTC int) time.Time {
	from = from.UTC()
	next := time.Date(from.Year(), from.Month(), from.Day(), hourUTC, 0, 0, 0, time.UTC)
	days := (int(weekday) - int(from.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(from) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func hoursOr(hours, fallback int) time.Duration {
	if hours <= 0 {
		hours = fallback
	}
	return time.Duration(hours) * time.Hour
}
