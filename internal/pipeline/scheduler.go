package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Runner executes the pipeline for one job id.
type Runner interface {
	Run(ctx context.Context, jobID string)
}

// Scheduler hands an accepted job off for background execution. The enqueue
// handler depends only on this interface.
type Scheduler interface {
	Submit(jobID string)
}

// TaskScheduler runs each submitted job on its own goroutine, bounded by a
// weighted semaphore so a burst of submissions cannot run an unbounded number
// of pipelines at once. Submission itself never blocks the caller.
type TaskScheduler struct {
	runner  Runner
	sem     *semaphore.Weighted
	timeout time.Duration
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskScheduler builds a scheduler allowing up to maxConcurrent pipelines,
// each bounded by timeout.
func NewTaskScheduler(runner Runner, maxConcurrent int, timeout time.Duration, logger zerolog.Logger) *TaskScheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskScheduler{
		runner:  runner,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit schedules jobID and returns immediately. The job runs detached from
// any request context; the caller observes its outcome only through the job row.
func (s *TaskScheduler) Submit(jobID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(s.ctx, 1); err != nil {
			s.logger.Warn().Str("job_id", jobID).Msg("scheduler: shutting down, job left pending")
			return
		}
		defer s.sem.Release(1)

		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		s.runner.Run(ctx, jobID)
	}()
}

// Shutdown cancels the contexts of in-flight pipelines and waits, until ctx
// expires, for each to finish writing its terminal state.
func (s *TaskScheduler) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Scheduler = (*TaskScheduler)(nil)
