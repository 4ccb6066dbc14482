// ABOUTME: Tracker for fire-and-forget message-handling tasks.
// ABOUTME: Tags each task with a request id, recovers panics, and supports bounded draining.

package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker runs message-handling tasks on their own goroutines. Task results
// never join back to the HTTP caller; failures are logged and dropped.
// There is no cancellation: once spawned, a task runs to completion or
// fails on its own.
type Tracker struct {
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewTracker builds a Tracker logging through the given logger.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger.With("component", "tasks")}
}

// Go spawns fn on a new goroutine with a fresh background context, so the
// task outlives the HTTP request that triggered it.
func (t *Tracker) Go(name string, fn func(ctx context.Context) error) {
	id := uuid.New().String()
	logger := t.logger.With("task", name, "task_id", id)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("task panicked", "panic", r)
			}
		}()

		if err := fn(context.Background()); err != nil {
			logger.Error("task failed", "error", err)
			return
		}
		logger.Debug("task finished")
	}()
}

// Drain waits up to the grace period for in-flight tasks to finish and
// reports whether they all did.
func (t *Tracker) Drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}
