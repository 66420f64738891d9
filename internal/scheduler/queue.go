package scheduler

import "sort"

/*
TypeQueue is the ordered waiting list for one job type. Jobs are
kept sorted ascending by ReadyAt: because the dispatcher only ever needs
"the best ready job" or "when does the next job become ready", keeping the
slice ReadyAt-sorted makes both operations cheap —

  - the ready set is always a contiguous prefix (every job whose ReadyAt is
    <= now), so finding the best eligible job only scans that prefix
    instead of the whole queue;
  - the earliest ReadyAt is always jobs[0], which is what the dispatcher's
    next-wake computation needs.

A queue of a few thousand jobs — the scale a single extension-telemetry
type is expected to reach — makes the O(n) insert/remove cost of keeping
the slice sorted a non-issue; there is no indexing structure elaborate
enough to be worth it at this scale.
*/
type TypeQueue struct {
	jobs []*Job
}

// NewTypeQueue constructs an empty queue.
func NewTypeQueue() *TypeQueue { return &TypeQueue{} }

// Len returns the number of jobs currently queued (ready or not).
func (q *TypeQueue) Len() int { return len(q.jobs) }

// Add inserts a job, keeping the slice sorted ascending by ReadyAt.
func (q *TypeQueue) Add(j *Job) {
	i := sort.Search(len(q.jobs), func(i int) bool { return q.jobs[i].ReadyAt > j.ReadyAt })
	q.jobs = append(q.jobs, nil)
	copy(q.jobs[i+1:], q.jobs[i:])
	q.jobs[i] = j
}

// Remove deletes a specific job (matched by ID) from the queue.
func (q *TypeQueue) Remove(id int64) {
	for i, j := range q.jobs {
		if j.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return
		}
	}
}

// All returns every job in the queue, ready or not, in ReadyAt order. The
// caller must not retain the slice across a mutation of the queue.
func (q *TypeQueue) All() []*Job { return q.jobs }

// EarliestReadyAt reports the ReadyAt of the queue's earliest job, used by
// the dispatcher's next-wake computation.
func (q *TypeQueue) EarliestReadyAt() (int64, bool) {
	if len(q.jobs) == 0 {
		return 0, false
	}
	return q.jobs[0].ReadyAt, true
}

// PeekEligible returns the best job eligible to start right now: ready
// (ReadyAt <= now), not expired (ExpiresAt > now), chosen by priority desc,
// readyAt asc, createdAt asc among the ready prefix. It does not remove the
// job or consider cooldown — cooldown is a per-type, not per-job, concern
// handled by the dispatcher.
func (q *TypeQueue) PeekEligible(nowMs int64) (*Job, bool) {
	var best *Job
	for _, j := range q.jobs {
		if j.ReadyAt > nowMs {
			break // ReadyAt-sorted: nothing further in the slice is ready either
		}
		if j.IsExpired(nowMs) {
			continue
		}
		if best == nil || before(j, best) {
			best = j
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
