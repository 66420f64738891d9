package scheduler

import (
	"fmt"

	"go.uber.org/multierr"
)

/*
SelfCheck audits a scheduler's in-memory state without mutating anything.
It is meant to run on a schedule or on demand, and surfaces every
violation it finds at once rather than stopping at the first one, which is
why violations are combined with multierr instead of returned as a single
error.
*/

// CheckState is the read-only view SelfCheck needs; Scheduler assembles
// this from its own fields so SelfCheck has no dependency on the
// Scheduler type itself.
type CheckState struct {
	Queues         map[string]*TypeQueue
	Retries        *RetryRegistry
	Configs        map[string]HandlerConfig
	GlobalJobLimit int
	NowMs          int64
}

// SelfCheck runs every invariant audit and returns a combined error (nil if
// every invariant holds). Use multierr.Errors(err) to inspect individual
// violations.
func SelfCheck(state CheckState) error {
	var err error
	err = multierr.Append(err, checkPerTypeQuota(state))
	err = multierr.Append(err, checkGlobalQuota(state))
	err = multierr.Append(err, checkOrdering(state))
	err = multierr.Append(err, checkNoExpiredReady(state))
	err = multierr.Append(err, checkRetryDisjoint(state))
	err = multierr.Append(err, checkTimestampOrdering(state))
	return err
}

// checkPerTypeQuota verifies no type exceeds its configured MaxJobsTotal
// across its ready queue plus its retry registry.
func checkPerTypeQuota(state CheckState) error {
	var err error
	for t, q := range state.Queues {
		cfg, ok := state.Configs[t]
		if !ok {
			continue
		}
		total := q.Len() + state.Retries.Len(t)
		if cfg.MaxJobsTotal > 0 && total > cfg.MaxJobsTotal {
			err = multierr.Append(err, fmt.Errorf(
				"per-type quota violated: type=%s total=%d exceeds maxJobsTotal=%d", t, total, cfg.MaxJobsTotal))
		}
	}
	return err
}

// checkGlobalQuota verifies the sum of every type's jobs does not exceed
// the scheduler's globalJobLimit.
func checkGlobalQuota(state CheckState) error {
	total := 0
	for t, q := range state.Queues {
		total += q.Len() + state.Retries.Len(t)
	}
	if state.GlobalJobLimit > 0 && total > state.GlobalJobLimit {
		return fmt.Errorf("global quota violated: total=%d exceeds globalJobLimit=%d", total, state.GlobalJobLimit)
	}
	return nil
}

// checkOrdering verifies every TypeQueue slice is sorted ascending by
// ReadyAt, the invariant TypeQueue.Add is responsible for maintaining.
func checkOrdering(state CheckState) error {
	var err error
	for t, q := range state.Queues {
		jobs := q.All()
		for i := 1; i < len(jobs); i++ {
			if jobs[i-1].ReadyAt > jobs[i].ReadyAt {
				err = multierr.Append(err, fmt.Errorf(
					"ordering violated: type=%s queue not ReadyAt-sorted at index=%d", t, i))
				break
			}
		}
	}
	return err
}

// checkNoExpiredReady verifies no job sitting in a ready queue is already
// past its ExpiresAt — expiry sweeps are expected to have removed it.
func checkNoExpiredReady(state CheckState) error {
	var err error
	for t, q := range state.Queues {
		for _, j := range q.All() {
			if j.IsExpired(state.NowMs) {
				err = multierr.Append(err, fmt.Errorf(
					"expired-ready violated: type=%s job=%s is expired but still queued", t, j.PersistentID))
			}
		}
	}
	return err
}

// checkTimestampOrdering verifies every job's three timestamps hold the
// relation createdAt <= readyAt <= expiresAt, for jobs in both the ready
// queues and the retry registry.
func checkTimestampOrdering(state CheckState) error {
	var err error
	check := func(t string, j *Job) {
		if j.CreatedAt > j.ReadyAt {
			err = multierr.Append(err, fmt.Errorf(
				"timestamp-ordering violated: type=%s job=%s createdAt=%d > readyAt=%d", t, j.PersistentID, j.CreatedAt, j.ReadyAt))
		}
		if j.ReadyAt > j.ExpiresAt {
			err = multierr.Append(err, fmt.Errorf(
				"timestamp-ordering violated: type=%s job=%s readyAt=%d > expiresAt=%d", t, j.PersistentID, j.ReadyAt, j.ExpiresAt))
		}
	}
	for t, q := range state.Queues {
		for _, j := range q.All() {
			check(t, j)
		}
	}
	for t, entries := range state.Retries.All() {
		for _, e := range entries {
			check(t, e.Job)
		}
	}
	return err
}

// checkRetryDisjoint verifies a job's PersistentID never appears in both a
// TypeQueue and the retry registry at the same time — it is always in
// exactly one place while pending.
func checkRetryDisjoint(state CheckState) error {
	inQueue := make(map[string]struct{})
	for _, q := range state.Queues {
		for _, j := range q.All() {
			inQueue[j.PersistentID.String()] = struct{}{}
		}
	}
	var err error
	for t, entries := range state.Retries.All() {
		for _, e := range entries {
			if _, dup := inQueue[e.Job.PersistentID.String()]; dup {
				err = multierr.Append(err, fmt.Errorf(
					"retry-disjointness violated: type=%s job=%s present in both queue and retry registry", t, e.Job.PersistentID))
			}
		}
	}
	return err
}
