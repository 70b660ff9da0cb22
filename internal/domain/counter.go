package domain

import (
	"context"
	"time"
)

// CounterStore is the low-latency behavioral counter store consumed by the
// context aggregator. Implementations must be safe for concurrent use; every
// write key self-prunes within WindowTTL.
type CounterStore interface {
	// RecordEvent inserts the event time into the user's sliding windows.
	// The member and score are both the event timestamp.
	RecordEvent(ctx context.Context, tenantID, userID string, at time.Time) error

	// CountWindow returns the number of events in [now-window, now].
	CountWindow(ctx context.Context, tenantID, userID string, window time.Duration) (int64, error)

	// TouchDevice adds userID to the device's account set and returns the
	// distinct account count.
	TouchDevice(ctx context.Context, tenantID, deviceHash, userID string) (int64, error)

	// Last known location, swapped on every located transaction.
	SetLastLocation(ctx context.Context, tenantID, userID string, loc Location) error
	GetLastLocation(ctx context.Context, tenantID, userID string) (*Location, error)

	Ping(ctx context.Context) error
	Close() error
}

// CounterConfig holds configuration for counter store initialization.
type CounterConfig struct {
	// Type is the store type: "memory" or "redis"
	Type string

	// Redis settings
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// WindowTTL is the self-pruning horizon for window keys.
	WindowTTL time.Duration
}
