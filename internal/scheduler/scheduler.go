// Package scheduler runs the recurring background jobs: device sync,
// compliance evaluation and alert processing.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kneutral-org/compliance-alerting/internal/metrics"
)

// Job is a named recurring task. Run is invoked once at startup and
// then on every interval tick.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives registered jobs on their intervals. A tick that
// arrives while the previous run of the same job is still in flight is
// skipped.
type Scheduler struct {
	jobs   []Job
	logger zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates a scheduler.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger.With().Str("component", "scheduler").Logger(),
		inFlight: make(map[string]bool),
	}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches every registered job and blocks until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		job := job
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runLoop(ctx, job)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	s.logger.Info().
		Str("job", job.Name).
		Dur("interval", job.Interval).
		Msg("job scheduled")

	// First run at startup, then on the interval.
	s.runOnce(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("job", job.Name).Msg("job stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if !s.tryAcquire(job.Name) {
		s.logger.Warn().Str("job", job.Name).Msg("previous run still in flight, skipping tick")
		metrics.RecordJobRun(job.Name, "skipped")
		return
	}
	defer s.release(job.Name)

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error().Err(err).Str("job", job.Name).Msg("job run failed")
		metrics.RecordJobRun(job.Name, "failed")
		return
	}

	s.logger.Debug().
		Str("job", job.Name).
		Dur("duration", time.Since(start)).
		Msg("job run completed")
	metrics.RecordJobRun(job.Name, "ok")
}

func (s *Scheduler) tryAcquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[name] {
		return false
	}
	s.inFlight[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, name)
}
