// Package policy holds the hot-reloadable per-vertical decision policies.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Store answers policy reads on the request path. Reads take a shared lock;
// writes replace entries wholesale so a reload never exposes a half-written
// policy.
type Store struct {
	mu       sync.RWMutex
	policies map[domain.Vertical]*domain.VerticalPolicy
	logger   *slog.Logger
}

// NewStore creates a store seeded with the built-in defaults.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		policies: make(map[domain.Vertical]*domain.VerticalPolicy),
		logger:   logger,
	}
	for _, p := range domain.DefaultPolicies() {
		s.policies[p.Vertical] = p
	}
	return s
}

// Load overlays persisted policies onto the defaults, then keeps the store in
// sync with later saves via Set.
func (s *Store) Load(ctx context.Context, repo domain.Repository) error {
	stored, err := repo.ListVerticalPolicies(ctx)
	if err != nil {
		return fmt.Errorf("loading vertical policies: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range stored {
		s.policies[p.Vertical] = p
	}
	s.logger.Info("vertical policies loaded", "stored", len(stored), "total", len(s.policies))
	return nil
}

// Get returns the policy for a vertical, or nil if unknown.
func (s *Store) Get(v domain.Vertical) *domain.VerticalPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policies[v]
}

// Set replaces one vertical's policy.
func (s *Store) Set(p *domain.VerticalPolicy) {
	s.mu.Lock()
	s.policies[p.Vertical] = p
	s.mu.Unlock()
}

// All returns every policy in vertical order.
func (s *Store) All() []*domain.VerticalPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.VerticalPolicy, 0, len(s.policies))
	for _, v := range domain.Verticals() {
		if p, ok := s.policies[v]; ok {
			out = append(out, p)
		}
	}
	return out
}

// EnabledNames lists the verticals currently accepting traffic, in vertical
// order, for error messages that must name the valid alternatives.
func (s *Store) EnabledNames() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, v := range domain.Verticals() {
		if p, ok := s.policies[v]; ok && p.Enabled {
			names = append(names, string(v))
		}
	}
	return strings.Join(names, ", ")
}

// Weight returns the rule multiplier for a vertical, defaulting to 1.0.
func (s *Store) Weight(v domain.Vertical, rule string) float64 {
	return s.Get(v).Weight(rule)
}

// Threshold returns the decline threshold for a vertical.
func (s *Store) Threshold(v domain.Vertical) float64 {
	if p := s.Get(v); p != nil {
		return p.Threshold
	}
	return 100
}

// IsEnabled reports whether a vertical accepts traffic.
func (s *Store) IsEnabled(v domain.Vertical) bool {
	p := s.Get(v)
	return p != nil && p.Enabled
}
