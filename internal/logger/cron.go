package logger

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes robfig/cron diagnostics through zap.
type cronLogger struct {
	// l is the sugared logger extracted from the caller's context.
	l *zap.SugaredLogger
}

// CronLogger returns a cron.Logger backed by the logger stored in ctx.
// Scheduler chatter goes to debug, job failures and recovered panics to error.
//
//nolint:ireturn // cron.WithLogger expects the interface.
func CronLogger(ctx context.Context) cron.Logger {
	return &cronLogger{l: FromContext(ctx).Named("cron")}
}

// Info logs routine scheduler activity.
func (c *cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

// Error logs scheduler failures.
func (c *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
