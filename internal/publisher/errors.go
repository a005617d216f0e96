package publisher

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrQueued is returned when a job is not first in the admission queue.
	ErrQueued = errors.New("another publishing job is in progress")
	// ErrLoginFailed is returned when the dashboard doesn't show after logging in.
	ErrLoginFailed = errors.New("can't log in to e-Vend")
	// ErrFormNotReady is returned when the listing form doesn't load in time.
	ErrFormNotReady = errors.New("listing form didn't load")
	// ErrBatchTimeout is returned when a batch runs longer than its time limit.
	ErrBatchTimeout = errors.New("batch timed out")
)

// QueuedError is returned when a job must wait for other jobs to finish.
type QueuedError struct {
	// Position is one-based place in line.
	Position int
	Wait     time.Duration
}

// Error returns error message with place in line and estimated wait.
func (e *QueuedError) Error() string {
	return fmt.Sprintf("%s: position #%d in queue, estimated wait %s",
		ErrQueued, e.Position, e.Wait.Round(time.Second))
}

// Is makes QueuedError match ErrQueued.
func (e *QueuedError) Is(target error) bool {
	return target == ErrQueued
}
