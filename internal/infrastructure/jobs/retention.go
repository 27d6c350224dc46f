package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// Task is one sweep run by the retention job. Run must tolerate being
// called redundantly.
type Task struct {
	Name string
	Run  func(ctx context.Context, now time.Time) error
}

type RetentionJob struct {
	tasks    []Task
	logger   *zap.Logger
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

func NewRetentionJob(logger *zap.Logger, interval time.Duration, tasks ...Task) *RetentionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionJob{
		tasks:    tasks,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

func (j *RetentionJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Retention job started",
		append(logging.Fields(logging.General, logging.Background, nil),
			zap.Duration("interval", j.interval),
			zap.Int("tasks", len(j.tasks)))...,
	)

	j.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			j.RunOnce(ctx)
		case <-j.stopChan:
			j.logger.Info("Retention job stopped")
			return
		case <-ctx.Done():
			j.logger.Info("Retention job context cancelled")
			return
		}
	}
}

// Serve runs the job under a supervisor.
func (j *RetentionJob) Serve(ctx context.Context) error {
	j.Start(ctx)
	return ctx.Err()
}

func (j *RetentionJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
}

// RunOnce runs every task once. A failing task does not stop the others.
func (j *RetentionJob) RunOnce(ctx context.Context) {
	now := j.now()

	for _, task := range j.tasks {
		startTime := time.Now()
		if err := task.Run(ctx, now); err != nil {
			j.logger.Error("Retention task failed",
				zap.String("task", task.Name),
				zap.Error(err),
				zap.Duration("duration", time.Since(startTime)),
			)
			continue
		}
		j.logger.Debug("Retention task completed",
			zap.String("task", task.Name),
			zap.Duration("duration", time.Since(startTime)),
		)
	}
}
