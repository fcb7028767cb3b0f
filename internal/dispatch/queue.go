// Package dispatch provides the serial queue that owns all playback and
// session state. Work submitted from other goroutines (callers, synthesizer
// callbacks) is marshaled onto the queue goroutine instead of sharing state
// behind locks.
package dispatch

import (
	"context"
	"errors"
)

// ErrStopped is returned when work is submitted to a queue that is not running.
var ErrStopped = errors.New("dispatch queue stopped")

// Job runs on the queue goroutine. The context it receives belongs to the
// queue, so calling Do with it runs inline.
type Job func(ctx context.Context)

type ownerKey struct{}

// Queue runs jobs one at a time in submission order.
type Queue struct {
	jobs    chan Job
	stopped chan struct{}
	started chan struct{}
}

// New creates a queue with room for buffer pending jobs.
func New(buffer int) *Queue {
	if buffer < 1 {
		buffer = 1
	}
	return &Queue{
		jobs:    make(chan Job, buffer),
		stopped: make(chan struct{}),
		started: make(chan struct{}),
	}
}

// Start runs the queue on its own goroutine until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	go q.Run(ctx)
	<-q.started
}

// Run drains jobs on the calling goroutine until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	owned := context.WithValue(ctx, ownerKey{}, q)
	close(q.started)
	defer close(q.stopped)

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			job(owned)
		}
	}
}

// Done is closed once the queue stops draining jobs.
func (q *Queue) Done() <-chan struct{} {
	return q.stopped
}

// Owns reports whether ctx was handed out by this queue.
func (q *Queue) Owns(ctx context.Context) bool {
	owner, _ := ctx.Value(ownerKey{}).(*Queue)
	return owner == q
}

// Post enqueues job without waiting for it and never blocks, so it is safe
// to call from callbacks fired while a job is running. When the buffer is
// full the job is handed to a goroutine and may run after later posts.
// It reports false if the queue has stopped.
func (q *Queue) Post(job Job) bool {
	select {
	case <-q.stopped:
		return false
	default:
	}

	select {
	case q.jobs <- job:
		return true
	default:
	}

	go func() {
		select {
		case q.jobs <- job:
		case <-q.stopped:
		}
	}()
	return true
}

// Do runs job on the queue and waits for it to finish. When ctx already
// belongs to the queue the job runs inline.
func (q *Queue) Do(ctx context.Context, job Job) error {
	if q.Owns(ctx) {
		job(ctx)
		return nil
	}

	done := make(chan struct{})
	wrapped := func(owned context.Context) {
		defer close(done)
		job(owned)
	}

	select {
	case q.jobs <- wrapped:
	case <-q.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-q.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
