// Package config loads the scheduler daemon's runtime configuration from
// the environment.
package config

import (
	"fmt"
	"time"

	"github.com/whotracksme/job-scheduler/internal/platform/envutil"
)

// StorageBackend selects which storage.Store adapter to wire up.
type StorageBackend string

const (
	BackendRedis    StorageBackend = "redis"
	BackendPostgres StorageBackend = "postgres"
)

// Config is every env-tunable knob the scheduler daemon reads at startup.
type Config struct {
	GlobalJobLimit  int
	MaxClockJump    time.Duration
	PersistDebounce time.Duration

	StorageBackend StorageBackend
	RedisAddr      string
	RedisKey       string
	PostgresDSN    string
	SnapshotKey    string

	LogMode     string
	MetricsAddr string
}

// Load reads Config from the environment, applying defaults suitable for
// a single-node deployment.
func Load() (Config, error) {
	cfg := Config{
		GlobalJobLimit:  envutil.Int("GLOBAL_JOB_LIMIT", 10000),
		MaxClockJump:    envutil.Duration("MAX_CLOCK_JUMP", 4380*time.Hour),
		PersistDebounce: envutil.Duration("PERSIST_DEBOUNCE", time.Second),

		StorageBackend: StorageBackend(envutil.String("STORAGE_BACKEND", string(BackendRedis))),
		RedisAddr:      envutil.String("REDIS_ADDR", "localhost:6379"),
		RedisKey:       envutil.String("REDIS_KEY", "job-scheduler:snapshot"),
		PostgresDSN:    envutil.String("POSTGRES_DSN", ""),
		SnapshotKey:    envutil.String("SNAPSHOT_KEY", "job-scheduler:snapshot"),

		LogMode:     envutil.String("LOG_MODE", "production"),
		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),
	}
	switch cfg.StorageBackend {
	case BackendRedis, BackendPostgres:
	default:
		return Config{}, fmt.Errorf("config: unknown STORAGE_BACKEND=%q", cfg.StorageBackend)
	}
	if cfg.StorageBackend == BackendPostgres && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("config: POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	return cfg, nil
}
