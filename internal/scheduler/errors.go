package scheduler

import "errors"

/*
Error classification is the scheduler's one piece of business logic that
handlers must participate in. A handler signals whether a failure is worth
retrying by returning a *JobError with Recoverable set; anything else
(a bare error, a panic recovered by the dispatcher) is treated as
non-recoverable: a missing marker means non-recoverable.
*/

// JobError is the concrete carrier for handler-classified failures.
type JobError struct {
	Recoverable bool
	Reason      string
	Err         error
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Reason != "" {
			return e.Reason + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	if e.Reason != "" {
		return e.Reason
	}
	if e.Recoverable {
		return "recoverable job error"
	}
	return "permanent job error"
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *JobError) Unwrap() error { return e.Err }

// Recoverable wraps err as a transient failure: the job will be re-armed
// via the RetryRegistry when a sibling of the same type next succeeds.
func Recoverable(reason string, err error) error {
	return &JobError{Recoverable: true, Reason: reason, Err: err}
}

// Permanent wraps err as a non-retryable failure.
func Permanent(reason string, err error) error {
	return &JobError{Recoverable: false, Reason: reason, Err: err}
}

// IsRecoverable classifies any error returned by a handler. An error with no
// *JobError in its chain is treated as non-recoverable.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var je *JobError
	if errors.As(err, &je) {
		return je.Recoverable
	}
	return false
}

// ErrNoHandler is returned by RegisterJob/RegisterJobs (never panicked on)
// when a job's type has no registered handler at admission time.
var ErrNoHandler = errors.New("scheduler: no handler registered for job type")

// ErrUnloaded is returned by registration/dispatch calls made after Unload.
var ErrUnloaded = errors.New("scheduler: scheduler has been unloaded")
