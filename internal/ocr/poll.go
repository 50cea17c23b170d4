package ocr

import (
	"context"
	"fmt"
	"time"
)

// Clock is the time source for polling. Tests swap in a fake one.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// CheckFunc fetches one status snapshot.
type CheckFunc func(ctx context.Context) (Snapshot, error)

// Poll calls check every interval until the job reaches a terminal state or
// maxWait has passed since the first call.
//
// Completed and PartiallyCompleted return the snapshot with a nil error.
// Failed returns a *JobFailedError without further checks. Any other state
// sleeps a fixed interval (no backoff), clipped so the loop never sleeps past
// the deadline. An error from check, or ctx being done, ends the loop at once.
//
// maxWait also bounds wall time: check runs under a context that expires with
// it, so a status call still in flight at the deadline is cut off and reported
// as ErrTimeout.
func Poll(ctx context.Context, clock Clock, interval, maxWait time.Duration, check CheckFunc) (Snapshot, error) {
	if clock == nil {
		clock = SystemClock
	}
	deadline := clock.Now().Add(maxWait)
	pollCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	var last Snapshot
	for clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		if pollCtx.Err() != nil {
			break
		}

		snap, err := check(pollCtx)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				break
			}
			return last, err
		}
		last = snap

		if snap.State.Succeeded() {
			return snap, nil
		}
		if snap.State == StateFailed {
			return snap, &JobFailedError{JobID: snap.JobID, Message: snap.FailureMessage()}
		}

		wait := interval
		if remaining := deadline.Sub(clock.Now()); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			break
		}
		if err := clock.Sleep(pollCtx, wait); err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				break
			}
			return last, err
		}
	}

	state := last.State
	if state == "" {
		state = "unknown"
	}
	if last.JobID == "" {
		return last, fmt.Errorf("job still %s after %v: %w", state, maxWait, ErrTimeout)
	}
	return last, fmt.Errorf("job %s still %s after %v: %w", last.JobID, state, maxWait, ErrTimeout)
}
