package scheduler

import (
	"time"

	"github.com/google/uuid"
)

/*
Job is the scheduler's unit of work. Everything the scheduler reasons about
— ordering, eligibility, retries, expiry — is a function of the fields
below; args is opaque and never inspected by the scheduler itself.
*/
type Job struct {
	// PersistentID survives serialization/restarts, so it identifies a job
	// across a process boundary; self-check uses it to tell jobs apart. It
	// plays no role in queue ordering or quota checks.
	PersistentID uuid.UUID `json:"persistent_id"`

	// ID is monotonic within a single process lifetime and is never
	// persisted. It is reassigned whenever a job is loaded from a snapshot.
	ID int64 `json:"-"`

	Type string `json:"type"`
	Args []byte `json:"args,omitempty"` // opaque to the scheduler; handler decides encoding

	Priority     int   `json:"priority"`
	CreatedAt    int64 `json:"created_at"`  // ms since epoch
	ReadyAt      int64 `json:"ready_at"`    // ms since epoch, absolute
	ExpiresAt    int64 `json:"expires_at"`  // ms since epoch, absolute
	TTLInMs      int64 `json:"ttl_in_ms"`
	CooldownInMs int64 `json:"cooldown_in_ms"`

	RetriesLeft int `json:"retries_left"`
}

// IsReady reports whether the job may be selected for dispatch at now.
func (j *Job) IsReady(nowMs int64) bool { return j.ReadyAt <= nowMs }

// IsExpired reports whether the job's TTL has elapsed at now.
func (j *Job) IsExpired(nowMs int64) bool { return j.ExpiresAt <= nowMs }

// before implements the TypeQueue ordering relation for two ready jobs:
// higher priority first, then earlier readyAt, then earlier createdAt
// (insertion order).
func before(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.ReadyAt != b.ReadyAt {
		return a.ReadyAt < b.ReadyAt
	}
	return a.CreatedAt < b.CreatedAt
}

/*
JobRequest is what callers pass to RegisterJob/RegisterJobs: a type plus
optional per-job overrides. All override fields are optional; omitted
fields fall back to the type's HandlerConfig defaults.
*/
type JobRequest struct {
	Type string
	Args []byte

	ReadyIn  *DurationRange // relative to admission time; ignored if ReadyAt is set
	ExpireIn *DurationRange
	ReadyAt  *time.Time // absolute, preferred over ReadyIn when present

	Priority                 *int
	TTLInMs                  *time.Duration
	CooldownInMs             *time.Duration
	MaxAutoRetriesAfterError *int
	MaxJobsTotal             *int
}

// DurationRange is a [Min, Max] window used for readyIn/expireIn jitter. Max
// of zero means "use Min for both ends".
type DurationRange struct {
	Min time.Duration
	Max time.Duration
}

func (r DurationRange) resolved() (min, max time.Duration) {
	min = r.Min
	max = r.Max
	if max < min {
		max = min
	}
	return min, max
}

// expireResolved is DurationRange's expireIn-specific counterpart: an unset
// (zero) Max falls back to ttl rather than to Min, since an expireIn window
// with no upper bound should still respect the type's TTL.
func (r DurationRange) expireResolved(ttl time.Duration) (min, max time.Duration) {
	min = r.Min
	max = r.Max
	if max == 0 {
		max = ttl
	}
	if max < min {
		max = min
	}
	return min, max
}

// HandlerConfig holds the per-type defaults a registered handler supplies
// at registration time.
type HandlerConfig struct {
	Priority                 int
	TTLInMs                  time.Duration
	CooldownInMs             time.Duration
	MaxJobsTotal             int // 0 means no per-type cap; DefaultHandlerConfig sets globalJobLimit/2
	MaxAutoRetriesAfterError int
	ReadyInDefault           *DurationRange
	ExpireInDefault          *DurationRange
}

// DefaultHandlerConfig returns a reasonable set of per-type defaults, with
// MaxJobsTotal derived from globalJobLimit (globalJobLimit/2) since it has
// no type-independent constant.
func DefaultHandlerConfig(globalJobLimit int) HandlerConfig {
	return HandlerConfig{
		Priority:                 0,
		TTLInMs:                  24 * time.Hour,
		CooldownInMs:             0,
		MaxJobsTotal:             globalJobLimit / 2,
		MaxAutoRetriesAfterError: 10,
	}
}

// Outcome is a handler's return value: a concrete result type rather than
// an error-plus-boolean pair. Expressed as (spawned []JobRequest, err
// error): err nil means success, err classified via JobError (errors.go)
// means failure.
type Outcome struct {
	Spawned []JobRequest
}
