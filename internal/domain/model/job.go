package model

import (
	"context"
	"time"
)

// Job is one optimization request travelling from the service through the queue to a worker.
type Job struct {
	ID         string
	TeamID     string
	Roster     Roster
	Importance Importance
	EnqueuedAt time.Time

	// Ctx carries the requester's deadline and cancellation into the worker.
	Ctx context.Context //nolint:containedctx // cancellation must cross the queue
	// Reply receives exactly one JobResult; it must be buffered.
	Reply chan<- JobResult
}

// JobResult is what a worker sends back for a Job.
type JobResult struct {
	Result *Result
	Err    error
}

// Context returns the job context, never nil.
func (j *Job) Context() context.Context {
	if j.Ctx == nil {
		return context.Background()
	}
	return j.Ctx
}
