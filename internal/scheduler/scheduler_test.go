package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestScheduler_RunsJobOnInterval(t *testing.T) {
	var runs atomic.Int64

	s := New(zerolog.Nop())
	s.Register(Job{
		Name:     "counter",
		Interval: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	// One startup run plus several interval ticks.
	assert.GreaterOrEqual(t, runs.Load(), int64(3))
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	var started atomic.Int64
	release := make(chan struct{})

	s := New(zerolog.Nop())
	s.Register(Job{
		Name:     "slow",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			started.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// Let several ticks elapse while the first run is still blocked.
	time.Sleep(80 * time.Millisecond)
	close(release)
	cancel()
	<-done

	assert.Equal(t, int64(1), started.Load())
}

func TestScheduler_ContinuesAfterJobError(t *testing.T) {
	var runs atomic.Int64

	s := New(zerolog.Nop())
	s.Register(Job{
		Name:     "flaky",
		Interval: 15 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("transient failure")
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	assert.GreaterOrEqual(t, runs.Load(), int64(2))
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	s := New(zerolog.Nop())
	s.Register(Job{
		Name:     "idle",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestScheduler_RunsMultipleJobs(t *testing.T) {
	var a, b atomic.Int64

	s := New(zerolog.Nop())
	s.Register(Job{
		Name:     "a",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			a.Add(1)
			return nil
		},
	})
	s.Register(Job{
		Name:     "b",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			b.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s.Start(ctx)

	assert.Equal(t, int64(1), a.Load())
	assert.Equal(t, int64(1), b.Load())
}
