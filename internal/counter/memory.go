package counter

import (
	"context"
	"sync"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// MemoryStore implements domain.CounterStore in process memory. It is the
// Community tier store and the test double: single-node only, no
// durability, same pruning semantics as the Redis store.
type MemoryStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	events    map[string][]time.Time          // tenant|user -> event times
	devices   map[string]map[string]time.Time // tenant|device -> user -> last seen
	locations map[string]locEntry             // tenant|user
}

type locEntry struct {
	loc       domain.Location
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory counter store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:       ttl,
		events:    make(map[string][]time.Time),
		devices:   make(map[string]map[string]time.Time),
		locations: make(map[string]locEntry),
	}
}

// RecordEvent appends the event time, pruning anything past the TTL horizon.
func (s *MemoryStore) RecordEvent(ctx context.Context, tenantID, userID string, at time.Time) error {
	key := tenantID + "|" + userID

	s.mu.Lock()
	defer s.mu.Unlock()

	horizon := at.Add(-s.ttl)
	kept := s.events[key][:0]
	for _, t := range s.events[key] {
		if t.After(horizon) {
			kept = append(kept, t)
		}
	}
	s.events[key] = append(kept, at)
	return nil
}

// CountWindow counts events within [now-window, now].
func (s *MemoryStore) CountWindow(ctx context.Context, tenantID, userID string, window time.Duration) (int64, error) {
	key := tenantID + "|" + userID
	cutoff := time.Now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, t := range s.events[key] {
		if t.After(cutoff) {
			n++
		}
	}
	return n, nil
}

// TouchDevice records the user against the device and returns the distinct
// account count within the TTL horizon.
func (s *MemoryStore) TouchDevice(ctx context.Context, tenantID, deviceHash, userID string) (int64, error) {
	key := tenantID + "|" + deviceHash
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	users := s.devices[key]
	if users == nil {
		users = make(map[string]time.Time)
		s.devices[key] = users
	}
	users[userID] = now

	horizon := now.Add(-s.ttl)
	var n int64
	for u, seen := range users {
		if seen.Before(horizon) {
			delete(users, u)
			continue
		}
		n++
	}
	return n, nil
}

// SetLastLocation swaps the user's last known location.
func (s *MemoryStore) SetLastLocation(ctx context.Context, tenantID, userID string, loc domain.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[tenantID+"|"+userID] = locEntry{loc: loc, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

// GetLastLocation returns the user's last known location, or nil if none.
func (s *MemoryStore) GetLastLocation(ctx context.Context, tenantID, userID string) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.locations[tenantID+"|"+userID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	loc := entry.loc
	return &loc, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops all state.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]time.Time)
	s.devices = make(map[string]map[string]time.Time)
	s.locations = make(map[string]locEntry)
	return nil
}
