// Package cron runs periodic housekeeping for the assistant, such as
// dropping idle volatile windows and stale rate limiter buckets.
package cron

import "context"

// Job is a periodic background task.
type Job interface {
	// Name identifies the job in logs; it must be unique per scheduler.
	Name() string

	// Schedule returns a 5-field cron expression.
	Schedule() string

	// Run executes one tick.
	Run(ctx context.Context) error
}
