// Package scheduler implements a durable, priority-ordered, retry-aware
// job scheduler: a single in-process Scheduler owns every
// TypeQueue, the retry registry, and persistence, and dispatches work
// through registered Handlers one pass at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/whotracksme/job-scheduler/internal/clock"
	"github.com/whotracksme/job-scheduler/internal/platform/logger"
	"github.com/whotracksme/job-scheduler/internal/storage"
)

// Clock is the scheduler's source of "now"; re-exported from the clock
// package so callers need only import scheduler.
type Clock = clock.Clock

/*
Scheduler is the composition of every moving part: the Clock, Storage,
Serializer (see snapshot.go), per-type TypeQueues, the Dispatcher (this
file's ProcessPendingJobs), the RetryRegistry, the expiry engine, the
Observer, and self-check. It owns a single mutex rather than one per
component: dispatch is single-threaded by design, so every mutation —
register, dispatch, expire — happens serialized with respect to every
other, and one lock is both simpler and correct than a finer-grained
lock-per-queue scheme.
*/
type Scheduler struct {
	mu sync.Mutex

	clock   Clock
	store   storage.Store
	log     *logger.Logger
	queues  map[string]*TypeQueue
	retries *RetryRegistry
	reg     *Registry
	obs     *Observer

	globalJobLimit  int
	maxClockJump    time.Duration
	persistDebounce time.Duration

	jumpDetector *ClockJumpDetector
	nextID       int64
	lastRanAt    map[string]int64

	dirty      bool
	flushTimer *time.Timer
	unloaded   bool

	dispatchGroup singleflight.Group
}

// Options configures a new Scheduler.
type Options struct {
	Clock           Clock
	Store           storage.Store
	Log             *logger.Logger
	GlobalJobLimit  int
	MaxClockJump    time.Duration
	PersistDebounce time.Duration
}

// New constructs a Scheduler. Call Init to load any persisted snapshot
// before registering handlers or jobs.
func New(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.GlobalJobLimit <= 0 {
		opts.GlobalJobLimit = 10000
	}
	if opts.MaxClockJump <= 0 {
		opts.MaxClockJump = 4380 * time.Hour
	}
	if opts.PersistDebounce <= 0 {
		opts.PersistDebounce = time.Second
	}
	return &Scheduler{
		clock:           opts.Clock,
		store:           opts.Store,
		log:             opts.Log,
		queues:          make(map[string]*TypeQueue),
		retries:         NewRetryRegistry(),
		reg:             NewRegistry(),
		obs:             NewObserver(),
		globalJobLimit:  opts.GlobalJobLimit,
		maxClockJump:    opts.MaxClockJump,
		persistDebounce: opts.PersistDebounce,
		jumpDetector:    NewClockJumpDetector(opts.MaxClockJump),
		lastRanAt:       make(map[string]int64),
	}
}

// Observer exposes the event bus for external subscribers (metrics,
// logging bridges).
func (s *Scheduler) Observer() *Observer { return s.obs }

// Init loads a persisted snapshot, if one exists. Missing, corrupt, or
// version-mismatched state is treated as "start empty" and is
// never returned as an error.
func (s *Scheduler) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	data, ok, err := s.store.Get(ctx)
	if err != nil {
		s.logf("init: storage read failed, starting empty: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		s.logf("init: snapshot unreadable, starting empty: %v", err)
		return nil
	}
	for t, jobs := range snap.Jobs {
		q := NewTypeQueue()
		for _, j := range jobs {
			s.nextID++
			j.ID = s.nextID
			q.Add(j)
		}
		s.queues[t] = q
	}
	retries := make(map[string][]RetryEntry, len(snap.Retries))
	for t, entries := range snap.Retries {
		for _, e := range entries {
			s.nextID++
			e.Job.ID = s.nextID
			retries[t] = append(retries[t], e)
		}
	}
	s.retries.Restore(retries)
	return nil
}

// Unload marks the scheduler as shut down; subsequent Register/Process
// calls return ErrUnloaded. It does not flush — callers should call Sync
// first if a final persist is desired.
func (s *Scheduler) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloaded = true
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
}

// RegisterHandler binds a Handler to its type with the given HandlerConfig.
func (s *Scheduler) RegisterHandler(h Handler, cfg HandlerConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unloaded {
		return ErrUnloaded
	}
	return s.reg.Register(h, cfg)
}

// RegisterJob admits one JobRequest, returning the admitted Job (which
// carries its assigned PersistentID), or an error if it violates a global
// or per-type quota, or has no registered handler.
func (s *Scheduler) RegisterJob(req JobRequest) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerJobLocked(req)
}

// RegisterJobs admits a batch atomically-per-item: each request either
// succeeds or is individually rejected; a
// failure for one request does not block the rest.
func (s *Scheduler) RegisterJobs(reqs []JobRequest) ([]*Job, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*Job, len(reqs))
	errs := make([]error, len(reqs))
	for i, req := range reqs {
		jobs[i], errs[i] = s.registerJobLocked(req)
	}
	return jobs, errs
}

func (s *Scheduler) registerJobLocked(req JobRequest) (*Job, error) {
	if s.unloaded {
		return nil, ErrUnloaded
	}
	cfg, ok := s.reg.Config(req.Type)
	if !ok {
		s.obs.Publish(Event{Name: EventJobRejected, Reason: "no handler for type " + req.Type})
		return nil, fmt.Errorf("scheduler: register job type=%s: %w", req.Type, ErrNoHandler)
	}

	now := s.clock.NowMs()

	if s.globalJobLimit > 0 {
		globalTotal := 0
		for t, q := range s.queues {
			globalTotal += q.Len()
			globalTotal += s.retries.Len(t)
		}
		if globalTotal >= s.globalJobLimit {
			s.obs.Publish(Event{Name: EventJobRejected, Reason: "global quota exceeded"})
			return nil, fmt.Errorf("scheduler: global quota exceeded (%d)", s.globalJobLimit)
		}
	}

	total := 0
	for t, q := range s.queues {
		if t == req.Type {
			total += q.Len()
		}
	}
	total += s.retries.Len(req.Type)
	limit := cfg.MaxJobsTotal
	if req.MaxJobsTotal != nil {
		limit = *req.MaxJobsTotal
	}
	if limit > 0 && total >= limit {
		s.obs.Publish(Event{Name: EventJobRejected, Reason: "type quota exceeded"})
		return nil, fmt.Errorf("scheduler: type=%s at quota (%d)", req.Type, limit)
	}

	job := &Job{
		PersistentID: newUUID(),
		Type:         req.Type,
		Args:         req.Args,
		CreatedAt:    now,
		RetriesLeft:  cfg.MaxAutoRetriesAfterError,
	}
	if req.MaxAutoRetriesAfterError != nil {
		job.RetriesLeft = *req.MaxAutoRetriesAfterError
	}
	if req.Priority != nil {
		job.Priority = *req.Priority
	} else {
		job.Priority = cfg.Priority
	}

	switch {
	case req.ReadyAt != nil:
		job.ReadyAt = req.ReadyAt.UnixMilli()
	case req.ReadyIn != nil:
		job.ReadyAt = now + jitterMs(*req.ReadyIn)
	case cfg.ReadyInDefault != nil:
		job.ReadyAt = now + jitterMs(*cfg.ReadyInDefault)
	default:
		job.ReadyAt = now
	}

	ttl := cfg.TTLInMs
	if req.TTLInMs != nil {
		ttl = *req.TTLInMs
	}
	switch {
	case req.ExpireIn != nil:
		job.ExpiresAt = now + expireJitterMs(*req.ExpireIn, ttl)
		if ceiling := now + ttl.Milliseconds(); job.ExpiresAt > ceiling {
			job.ExpiresAt = ceiling
		}
	case cfg.ExpireInDefault != nil:
		job.ExpiresAt = now + expireJitterMs(*cfg.ExpireInDefault, ttl)
		if ceiling := now + ttl.Milliseconds(); job.ExpiresAt > ceiling {
			job.ExpiresAt = ceiling
		}
	default:
		job.ExpiresAt = job.ReadyAt + ttl.Milliseconds()
	}
	job.TTLInMs = ttl.Milliseconds()

	cooldown := cfg.CooldownInMs
	if req.CooldownInMs != nil {
		cooldown = *req.CooldownInMs
	}
	job.CooldownInMs = cooldown.Milliseconds()

	s.nextID++
	job.ID = s.nextID

	q, ok := s.queues[req.Type]
	if !ok {
		q = NewTypeQueue()
		s.queues[req.Type] = q
	}
	q.Add(job)

	s.obs.Publish(Event{Name: EventJobRegistered, Job: job})
	s.markDirty()
	return job, nil
}

func jitterMs(r DurationRange) int64 {
	min, max := r.resolved()
	if max <= min {
		return min.Milliseconds()
	}
	return min.Milliseconds() + randInt63n((max - min).Milliseconds())
}

// expireJitterMs is expireIn's jitter counterpart: an unset Max falls back
// to ttl instead of Min.
func expireJitterMs(r DurationRange, ttl time.Duration) int64 {
	min, max := r.expireResolved(ttl)
	if max <= min {
		return min.Milliseconds()
	}
	return min.Milliseconds() + randInt63n((max - min).Milliseconds())
}

// ProcessPendingJobs runs one dispatch pass: repeatedly pick the globally
// best eligible job (ready, unexpired, type not in cooldown) across every
// type, run its handler, and record the outcome, until no eligible job
// remains (see dispatchOnce). Reentrant calls (from within a handler
// that itself triggers processing) collapse onto the in-flight pass via
// singleflight instead of recursing.
func (s *Scheduler) ProcessPendingJobs(ctx context.Context) error {
	_, err, _ := s.dispatchGroup.Do("dispatch", func() (interface{}, error) {
		return nil, s.dispatchOnce(ctx)
	})
	return err
}

// dispatchOnce runs a single pass: repeatedly pick the globally best ready,
// unexpired, off-cooldown job across every type and run it, until no
// eligible job remains. Picking one job, running it, and re-scanning
// (rather than snapshotting one job per type up front) is what makes
// cross-type priority ordering hold: a flood of high-priority jobs in one
// type must all run before a lower-priority type gets a turn.
func (s *Scheduler) dispatchOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.unloaded {
		s.mu.Unlock()
		return ErrUnloaded
	}
	now := s.clock.NowMs()
	if s.jumpDetector.Observe(now) {
		s.logf("clock jump detected, running out-of-band expiry sweep")
		s.sweepLocked(now)
	}
	s.mu.Unlock()

	for {
		s.mu.Lock()
		jobType, job, h, ok := s.bestEligibleLocked(s.clock.NowMs())
		s.mu.Unlock()
		if !ok {
			break
		}
		s.runOne(ctx, jobType, job, h)
	}

	s.mu.Lock()
	s.sweepLocked(s.clock.NowMs())
	s.mu.Unlock()
	return nil
}

// bestEligibleLocked scans every registered type's queue head and returns
// the single best job among them (priority desc, readyAt asc, createdAt
// asc), skipping any type currently in cooldown. Must be called with s.mu
// held.
func (s *Scheduler) bestEligibleLocked(now int64) (jobType string, job *Job, h Handler, ok bool) {
	for t, q := range s.queues {
		handler, hasHandler := s.reg.Get(t)
		if !hasHandler {
			continue
		}
		j, found := q.PeekEligible(now)
		if !found {
			continue
		}
		if ranAt, cooling := s.lastRanAt[t]; cooling && now < ranAt+j.CooldownInMs {
			continue
		}
		if job == nil || before(j, job) {
			jobType, job, h, ok = t, j, handler, true
		}
	}
	return
}

func (s *Scheduler) runOne(ctx context.Context, jobType string, job *Job, h Handler) {
	s.mu.Lock()
	if q, ok := s.queues[jobType]; ok {
		q.Remove(job.ID)
	}
	s.lastRanAt[jobType] = s.clock.NowMs()
	s.obs.Publish(Event{Name: EventJobStarted, Job: job})
	s.mu.Unlock()

	outcome, err := s.runHandlerSafely(ctx, h, job)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.obs.Publish(Event{Name: EventJobSucceeded, Job: job})
		s.admitNextRetryLocked(jobType)
		for _, spawned := range outcome.Spawned {
			if _, ferr := s.registerJobLocked(spawned); ferr != nil {
				s.logf("spawned job rejected: type=%s err=%v", spawned.Type, ferr)
			}
		}
	} else if IsRecoverable(err) {
		if job.RetriesLeft > 0 {
			job.RetriesLeft--
			s.retries.Push(jobType, job, job.RetriesLeft)
		} else {
			s.obs.Publish(Event{Name: EventJobExpired, Job: job, Reason: "retries exhausted"})
		}
		s.obs.Publish(Event{Name: EventJobFailed, Job: job, Reason: err.Error()})
	} else {
		s.obs.Publish(Event{Name: EventJobFailed, Job: job, Reason: err.Error()})
	}
	s.markDirty()
}

// runHandlerSafely recovers a handler panic and reports it as a permanent
// failure so one bad handler can never take down the dispatch loop.
func (s *Scheduler) runHandlerSafely(ctx context.Context, h Handler, job *Job) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent("handler panic", fmt.Errorf("%v", r))
		}
	}()
	return h.Run(ctx, job)
}

// admitNextRetryLocked re-arms the oldest retryable job of jobType: a
// retry is only ever re-queued when a sibling of the same type just
// succeeded, which keeps a failing type from retry-storming.
func (s *Scheduler) admitNextRetryLocked(jobType string) {
	job, retriesLeft, ok := s.retries.PopHead(jobType)
	if !ok {
		return
	}
	job.RetriesLeft = retriesLeft
	job.ReadyAt = s.clock.NowMs() + job.CooldownInMs
	q, ok := s.queues[jobType]
	if !ok {
		q = NewTypeQueue()
		s.queues[jobType] = q
	}
	q.Add(job)
	s.obs.Publish(Event{Name: EventRetryAdmitted, Job: job})
}

func (s *Scheduler) sweepLocked(now int64) {
	report := SweepExpired(s.queues, now)
	for i := 0; i < report.ExpiredCount; i++ {
		s.obs.Publish(Event{Name: EventJobExpired})
	}
	dropped := DropOrphanedQueues(s.queues, s.reg.Types())
	if len(dropped) > 0 {
		s.logf("dropped orphaned queues: %v", dropped)
	}
}

// SelfCheck audits the scheduler's current state against every invariant
// without mutating it.
func (s *Scheduler) SelfCheck() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SelfCheck(CheckState{
		Queues:         s.queues,
		Retries:        s.retries,
		Configs:        s.allConfigsLocked(),
		GlobalJobLimit: s.globalJobLimit,
		NowMs:          s.clock.NowMs(),
	})
}

func (s *Scheduler) allConfigsLocked() map[string]HandlerConfig {
	out := make(map[string]HandlerConfig, len(s.queues))
	for t := range s.queues {
		if cfg, ok := s.reg.Config(t); ok {
			out[t] = cfg
		}
	}
	return out
}

// Stats returns the current Observer counters plus live queue/retry
// lengths").
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	queueLen := 0
	for _, q := range s.queues {
		queueLen += q.Len()
	}
	retryLen := s.retries.TotalLen()
	s.mu.Unlock()
	return s.obs.Describe(queueLen, retryLen)
}

// AddObserver subscribes a listener to a lifecycle event.
func (s *Scheduler) AddObserver(name EventName, l Listener) (unsubscribe func()) {
	return s.obs.AddObserver(name, l)
}

// markDirty schedules a debounced flush if one isn't already pending.
func (s *Scheduler) markDirty() {
	if s.store == nil {
		return
	}
	s.dirty = true
	if s.flushTimer != nil {
		return
	}
	s.flushTimer = time.AfterFunc(s.persistDebounce, s.flush)
}

func (s *Scheduler) flush() {
	s.mu.Lock()
	if !s.dirty {
		s.flushTimer = nil
		s.mu.Unlock()
		return
	}
	snap := BuildSnapshot(s.queues, s.retries, s.obs.Describe(0, 0), s.clock.NowMs())
	s.dirty = false
	s.flushTimer = nil
	s.mu.Unlock()

	data, err := MarshalSnapshot(snap)
	if err != nil {
		s.logf("flush: marshal failed: %v", err)
		return
	}
	if err := persistWithRetry(context.Background(), s.store, data); err != nil && s.log != nil {
		s.log.Error("flush: persist failed after retries", "error", err)
	}
}

// Sync forces an immediate, synchronous flush, bypassing the debounce
// timer. Used before Unload and by tests that need a deterministic
// snapshot point.
func (s *Scheduler) Sync(ctx context.Context) error {
	s.mu.Lock()
	snap := BuildSnapshot(s.queues, s.retries, s.obs.Describe(0, 0), s.clock.NowMs())
	s.dirty = false
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("scheduler: sync: marshal: %w", err)
	}
	return persistWithRetry(ctx, s.store, data)
}

func (s *Scheduler) logf(format string, args ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.Info(fmt.Sprintf(format, args...))
}
