package monitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	domain "github.com/oshokin/order-alert/internal/domain/alert"
	"github.com/oshokin/order-alert/internal/logger"
)

// Scheduler runs jobs at a fixed interval and cancels them by handle.
type Scheduler interface {
	// Every schedules job to run every interval and returns its handle.
	Every(interval time.Duration, job func()) domain.TaskHandle
	// Cancel removes the task. Unknown handles are ignored.
	Cancel(handle domain.TaskHandle)
}

// CronScheduler is a Scheduler backed by robfig/cron.
// Runs of the same job may overlap when one of them stalls.
type CronScheduler struct {
	cron *cron.Cron
}

// NewCronScheduler creates a scheduler logging through the logger in ctx.
// Panicking jobs are recovered and logged.
func NewCronScheduler(ctx context.Context) *CronScheduler {
	cronLogger := logger.CronLogger(ctx)

	return &CronScheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
	}
}

// Start begins running scheduled jobs in the background.
func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs until ctx is done.
func (s *CronScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Every schedules job with a constant delay. Cron rounds the interval to whole seconds.
func (s *CronScheduler) Every(interval time.Duration, job func()) domain.TaskHandle {
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(job))

	return domain.TaskHandle(id)
}

// Cancel removes the job with the given handle.
func (s *CronScheduler) Cancel(handle domain.TaskHandle) {
	if handle == domain.NoTask {
		return
	}

	s.cron.Remove(cron.EntryID(handle))
}

// Len returns the number of scheduled jobs.
func (s *CronScheduler) Len() int {
	return len(s.cron.Entries())
}
