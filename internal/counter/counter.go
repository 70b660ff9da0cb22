// Package counter provides the low-latency behavioral counter store behind
// the context aggregator: sliding-window transaction counts, device-to-account
// fan-out, and last known location.
package counter

import (
	"fmt"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Windows the aggregator queries, shortest first.
var Windows = []time.Duration{
	time.Minute,
	10 * time.Minute,
	time.Hour,
	24 * time.Hour,
}

// New creates a counter store based on configuration.
// Community tier: in-memory. Pro tier: Redis.
func New(cfg domain.CounterConfig) (domain.CounterStore, error) {
	if cfg.WindowTTL <= 0 {
		cfg.WindowTTL = 24 * time.Hour
	}

	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg.WindowTTL), nil
	case "redis":
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unsupported counter store type: %s", cfg.Type)
	}
}

// windowLabel names a window for key construction: "1m0s" style labels are
// noisy in Redis, so use compact forms.
func windowLabel(w time.Duration) string {
	switch {
	case w < time.Hour:
		return fmt.Sprintf("%dm", int(w.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(w.Hours()))
	}
}
