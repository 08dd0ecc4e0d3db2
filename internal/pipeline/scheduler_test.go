package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	mu      sync.Mutex
	running int
	peak    int
	total   atomic.Int64
	block   chan struct{}
}

func (r *countingRunner) Run(ctx context.Context, jobID string) {
	r.mu.Lock()
	r.running++
	if r.running > r.peak {
		r.peak = r.running
	}
	r.mu.Unlock()

	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
		}
	}

	r.mu.Lock()
	r.running--
	r.mu.Unlock()
	r.total.Add(1)
}

func TestTaskSchedulerRunsEverySubmission(t *testing.T) {
	runner := &countingRunner{}
	sched := NewTaskScheduler(runner, 4, time.Second, zerolog.Nop())

	for i := 0; i < 20; i++ {
		sched.Submit("job")
	}
	require.NoError(t, sched.Shutdown(context.Background()))
	assert.Equal(t, int64(20), runner.total.Load())
}

func TestTaskSchedulerBoundsConcurrency(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	sched := NewTaskScheduler(runner, 2, 0, zerolog.Nop())

	for i := 0; i < 8; i++ {
		sched.Submit("job")
	}
	assert.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return runner.running == 2
	}, time.Second, 5*time.Millisecond)

	close(runner.block)
	require.NoError(t, sched.Shutdown(context.Background()))

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.LessOrEqual(t, runner.peak, 2, "no more than two pipelines may run at once")
}

func TestTaskSchedulerSubmitDoesNotBlock(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	sched := NewTaskScheduler(runner, 1, 0, zerolog.Nop())
	defer func() {
		close(runner.block)
		_ = sched.Shutdown(context.Background())
	}()

	start := time.Now()
	for i := 0; i < 100; i++ {
		sched.Submit("job")
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond, "Submit must return without waiting for capacity")
}

func TestTaskSchedulerShutdownTimesOut(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	sched := NewTaskScheduler(runner, 1, 0, zerolog.Nop())
	sched.Submit("job")

	// Runner never unblocks by itself, but Shutdown cancels the scheduler
	// context, which releases it.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sched.Shutdown(ctx))
}
