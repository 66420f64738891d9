package scheduler

import "time"

/*
The expiry/quota engine is the scheduler's housekeeping pass. It
runs three independent sweeps against a set of per-type TypeQueues:

 1. TTL expiry: any job whose ExpiresAt has elapsed is dropped and counted
    as jobExpired.
 2. Clock-jump repair: a suspend/resume cycle (laptop lid closed, container
    frozen) can make wall-clock time leap forward far more than any
    individual job's TTL. Detecting a jump between two consecutive NowMs
    reads larger than maxClockJump triggers an immediate full sweep rather
    than waiting for the next natural tick, so a backlog of now-stale jobs
    doesn't sit around pretending to be runnable.
 3. Corruption repair: a ReadyAt set absurdly far in the future (beyond
    what any readyIn/expireIn window could have produced) is treated as
    corrupt state rather than a legitimate far-future job, and is re-pinned
    to now so it becomes reachable again instead of being stuck forever.

None of this owns locking; callers (the dispatcher) are expected to hold
whatever lock guards the queues for the duration of a sweep.
*/

// ExpiryReport summarizes one sweep's effect, used by the dispatcher to
// feed the Observer (jobExpired events) and by tests.
type ExpiryReport struct {
	ExpiredCount  int
	RepairedCount int
	DroppedTypes  []string
}

// maxCorruptionHorizon bounds how far in the future a ReadyAt may sit
// before SweepExpired treats it as corrupted state. Admission does not
// enforce this bound: a job registered with a ReadyIn or ReadyAt beyond it
// is re-pinned to now by the next sweep like any corrupted ReadyAt.
const maxCorruptionHorizon = 365 * 24 * time.Hour

// SweepExpired drops every expired job from every queue and repairs any
// ReadyAt that has drifted beyond maxCorruptionHorizon. It never touches
// the retry registry: a job already removed from its TypeQueue on dispatch
// is no longer subject to TTL expiry.
func SweepExpired(queues map[string]*TypeQueue, nowMs int64) ExpiryReport {
	var report ExpiryReport
	horizonMs := int64(maxCorruptionHorizon / time.Millisecond)
	for _, q := range queues {
		var expiredIDs []int64
		for _, j := range q.All() {
			if j.IsExpired(nowMs) {
				expiredIDs = append(expiredIDs, j.ID)
				continue
			}
			if j.ReadyAt-nowMs > horizonMs {
				j.ReadyAt = nowMs
				report.RepairedCount++
			}
		}
		for _, id := range expiredIDs {
			q.Remove(id)
		}
		report.ExpiredCount += len(expiredIDs)
	}
	return report
}

// DropOrphanedQueues removes any TypeQueue that has no registered handler
// and no pending jobs. A type can lose
// its handler across a process restart if the binary was redeployed
// without that handler; an orphaned queue with pending jobs is left alone
// since dropping it would silently discard work.
func DropOrphanedQueues(queues map[string]*TypeQueue, registered map[string]struct{}) []string {
	var dropped []string
	for t, q := range queues {
		if _, ok := registered[t]; ok {
			continue
		}
		if q.Len() > 0 {
			continue
		}
		dropped = append(dropped, t)
		delete(queues, t)
	}
	return dropped
}

// ClockJumpDetector flags forward leaps in wall-clock time larger than
// maxClockJump between consecutive observations, the trigger for an
// out-of-band expiry sweep.
type ClockJumpDetector struct {
	maxJumpMs int64
	lastMs    int64
	seen      bool
}

// NewClockJumpDetector constructs a detector with no prior observation; the
// first Observe call never reports a jump.
func NewClockJumpDetector(maxJump time.Duration) *ClockJumpDetector {
	return &ClockJumpDetector{maxJumpMs: int64(maxJump / time.Millisecond)}
}

// Observe records a new NowMs reading and reports whether the delta since
// the previous reading exceeds the configured threshold. A clock moving
// backwards (NTP correction) is never treated as a jump.
func (d *ClockJumpDetector) Observe(nowMs int64) bool {
	defer func() { d.lastMs = nowMs; d.seen = true }()
	if !d.seen {
		return false
	}
	delta := nowMs - d.lastMs
	return delta > d.maxJumpMs
}
