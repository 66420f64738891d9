package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/whotracksme/job-scheduler/internal/storage"
)

func newUUID() uuid.UUID { return uuid.New() }

// randInt63n returns a pseudo-random value in [0, n); used only for jitter
// within a readyIn/expireIn window, never for anything security-sensitive.
func randInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	return rand.Int63n(n)
}

// persistWithRetry wraps a single storage write with the same exponential
// backoff the broader pack uses for flaky external calls, since a snapshot
// flush hitting a transient Redis/Postgres blip should not be treated as a
// hard failure.
func persistWithRetry(ctx context.Context, store storage.Store, data []byte) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, store.Set(ctx, data)
	}, backoff.WithMaxTries(5), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	return err
}
