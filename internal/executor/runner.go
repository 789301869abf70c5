package executor

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/good-yellow-bee/compliops/internal/metrics"
)

// ErrRunnerClosed is returned by Submit after Wait has been called.
var ErrRunnerClosed = errors.New("runner is shutting down")

// Job runs one report generation.
type Job interface {
	Execute(ctx context.Context, reportID, alertID string)
}

// Task is the handle of a submitted report run. The report's own status is
// the result; Done only signals that the run has returned.
type Task struct {
	ReportID string
	AlertID  string
	done     chan struct{}
}

// Done is closed when the run finishes.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Runner executes report runs in the background, one goroutine per task.
// Tasks are not cancelled by anything outside the runner.
type Runner struct {
	job    Job
	sem    *semaphore.Weighted
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner creates a runner. maxConcurrent <= 0 means unbounded.
func NewRunner(job Job, maxConcurrent int, logger *zap.Logger) *Runner {
	r := &Runner{
		job:    job,
		logger: logger.Named("runner"),
	}
	if maxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return r
}

// Submit schedules a run and returns immediately.
func (r *Runner) Submit(reportID, alertID string) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRunnerClosed
	}

	task := &Task{ReportID: reportID, AlertID: alertID, done: make(chan struct{})}
	r.wg.Add(1)
	go r.run(task)

	r.logger.Debug("task submitted", zap.String("report_id", reportID), zap.String("alert_id", alertID))
	return task, nil
}

func (r *Runner) run(task *Task) {
	defer r.wg.Done()
	defer close(task.done)
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("report task panicked",
				zap.String("report_id", task.ReportID),
				zap.Any("panic", v),
				zap.Stack("stack"))
		}
	}()

	ctx := context.Background()
	if r.sem != nil {
		// Acquire cannot fail on a background context.
		_ = r.sem.Acquire(ctx, 1)
		defer r.sem.Release(1)
	}

	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()

	r.job.Execute(ctx, task.ReportID, task.AlertID)
}

// Wait stops accepting new tasks and blocks until all submitted tasks finish
// or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("shutdown deadline reached with report tasks still running")
		return ctx.Err()
	}
}
