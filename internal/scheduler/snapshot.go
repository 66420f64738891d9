package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

/*
Snapshot is the scheduler's entire persisted state: every
TypeQueue, the retry registry, the running stats counters, and the clock
reading the snapshot was taken under. It round-trips through a single
storage key rather than per-job rows — durable job-queue state as one
blob.

snapshotVersion is bumped whenever the wire shape changes incompatibly. A
version mismatch, a checksum mismatch, or a JSON decode failure is treated
as "no snapshot exists" rather than a fatal error — a fresh scheduler with no persisted
jobs is always a safe, available fallback.
*/
const snapshotVersion = 1

// Snapshot is the wire format written to and read from Storage.
type Snapshot struct {
	Version   int                     `json:"version"`
	Jobs      map[string][]*Job       `json:"jobs"`        // by type, ReadyAt order
	Retries   map[string][]RetryEntry `json:"retries"`     // by type, FIFO order
	Stats     Stats                   `json:"stats"`
	LastClock int64                   `json:"last_clock"` // ms, NowMs() at snapshot time
	Checksum  uint64                  `json:"checksum"`    // 0 skips verification; a mismatch rejects the snapshot
}

// BuildSnapshot assembles a Snapshot from live scheduler state.
func BuildSnapshot(queues map[string]*TypeQueue, retries *RetryRegistry, stats Stats, nowMs int64) Snapshot {
	jobs := make(map[string][]*Job, len(queues))
	for t, q := range queues {
		jobs[t] = q.All()
	}
	snap := Snapshot{
		Version:   snapshotVersion,
		Jobs:      jobs,
		Retries:   retries.All(),
		Stats:     stats,
		LastClock: nowMs,
	}
	snap.Checksum = snap.computeChecksum()
	return snap
}

// computeChecksum hashes the jobs+retries payload with xxhash64.
// UnmarshalSnapshot rejects a snapshot whose stored checksum is non-zero and
// differs; the scheduler then treats it as missing, never as a hard failure.
func (s Snapshot) computeChecksum() uint64 {
	payload, err := json.Marshal(struct {
		Jobs    map[string][]*Job       `json:"jobs"`
		Retries map[string][]RetryEntry `json:"retries"`
	}{s.Jobs, s.Retries})
	if err != nil {
		return 0
	}
	return xxhash.Sum64(payload)
}

// MarshalSnapshot encodes a Snapshot for Storage.Set.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// UnmarshalSnapshot decodes bytes previously produced by MarshalSnapshot.
// A version or checksum mismatch is reported as an error so the caller can fall back to
// an empty scheduler state rather than loading incompatible data; it is
// never panicked on.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("scheduler: decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return Snapshot{}, fmt.Errorf("scheduler: snapshot version mismatch: got=%d want=%d", snap.Version, snapshotVersion)
	}
	if got := snap.computeChecksum(); got != snap.Checksum && snap.Checksum != 0 {
		return Snapshot{}, fmt.Errorf("scheduler: snapshot checksum mismatch: got=%x want=%x", got, snap.Checksum)
	}
	return snap, nil
}
