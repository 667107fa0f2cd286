// Package scheduler drives the periodic reconciliation tasks. Every task is
// self-pacing: one run finishes before the timer for the next one is armed,
// so a task never overlaps itself regardless of how long a run takes.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

type scheduledTask struct {
	name     string
	interval time.Duration
	run      Task
}

// Scheduler runs registered tasks on fixed intervals.
type Scheduler struct {
	logger *zap.Logger
	tasks  []scheduledTask
}

// New builds an empty Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Add registers a task. Tasks with a non-positive interval are ignored, so
// individual schedules can be disabled by configuration.
func (s *Scheduler) Add(name string, interval time.Duration, task Task) {
	if interval <= 0 {
		s.logger.Info("schedule disabled", zap.String("task", name))
		return
	}
	s.tasks = append(s.tasks, scheduledTask{name: name, interval: interval, run: task})
}

// Run starts all task loops and blocks until ctx is cancelled. Each task
// runs once immediately, then repeats after its interval measured from run
// completion. A failed run is logged and does not stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, task := range s.tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, task)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task scheduledTask) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		start := time.Now()
		s.logger.Info("running scheduled task", zap.String("task", task.name))
		if err := s.safeRun(ctx, task); err != nil {
			s.logger.Error("scheduled task failed",
				zap.String("task", task.name), zap.Error(err))
		} else {
			s.logger.Info("scheduled task finished",
				zap.String("task", task.name), zap.Duration("took", time.Since(start)))
		}

		timer.Reset(task.interval)
	}
}

// safeRun converts a panicking task into an error so one bad iteration
// cannot kill the scheduling loop.
func (s *Scheduler) safeRun(ctx context.Context, task scheduledTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return task.run(ctx)
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("task panicked: %v", p.value)
}
