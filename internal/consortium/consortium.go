// Package consortium implements the privacy-preserving, cross-tenant fraud
// intelligence pool. Records are keyed by one-way salted hashes of identity
// attributes; raw PII never enters this subsystem.
package consortium

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Alert strings derived from a lookup.
const (
	AlertLoanStacking   = "loan_stacking_pattern"
	AlertKnownFraudster = "known_fraudster"
	AlertHighExposure   = "high_exposure"
)

// Service answers cross-tenant lookups and records fraud confirmations.
type Service struct {
	repo   domain.Repository
	hasher *Hasher
	cfg    domain.ConsortiumConfig
}

// NewService creates a consortium service.
func NewService(repo domain.Repository, hasher *Hasher, cfg domain.ConsortiumConfig) *Service {
	if cfg.StackingTenants <= 0 {
		cfg.StackingTenants = 3
	}
	if cfg.FraudsterOccurrences <= 0 {
		cfg.FraudsterOccurrences = 2
	}
	if cfg.StackingWindow <= 0 {
		cfg.StackingWindow = 7 * 24 * time.Hour
	}
	if cfg.SampleCap <= 0 {
		cfg.SampleCap = 5
	}
	return &Service{repo: repo, hasher: hasher, cfg: cfg}
}

// Enabled reports whether consortium intelligence participates in scoring.
func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// Hasher exposes the identifier hasher so the pipeline can hash attributes
// once at its boundary.
func (s *Service) Hasher() *Hasher {
	return s.hasher
}

// Lookup OR-queries the pool across all provided hashes and merges matched
// records into one summary. With no intervening Report, identical hash sets
// produce identical summaries.
func (s *Service) Lookup(ctx context.Context, hashes []string) (*domain.ConsortiumSummary, error) {
	summary := &domain.ConsortiumSummary{RiskLevel: domain.RiskLow}
	if !s.cfg.Enabled || len(hashes) == 0 {
		return summary, nil
	}

	records, err := s.repo.GetConsortiumRecords(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("consortium lookup: %w", err)
	}
	if len(records) == 0 {
		return summary, nil
	}

	summary.Matched = true
	types := map[string]struct{}{}
	for _, rec := range records {
		summary.Occurrences += rec.Occurrences
		summary.TotalAmount += rec.TotalAmount
		if n := len(rec.Tenants); n > summary.ClientCount {
			summary.ClientCount = n
		}
		// Re-derive from the occurrence count; the stored level is a cache
		// and must not be the source of truth.
		if lvl := domain.DeriveConsortiumRisk(rec.Occurrences); lvl.AtLeast(summary.RiskLevel) {
			summary.RiskLevel = lvl
		}
		for _, ft := range rec.FraudTypes {
			types[ft] = struct{}{}
		}
	}
	for ft := range types {
		summary.FraudTypes = append(summary.FraudTypes, ft)
	}
	sort.Strings(summary.FraudTypes)

	if summary.ClientCount >= s.cfg.StackingTenants {
		summary.Alerts = append(summary.Alerts, AlertLoanStacking)
	}
	if summary.Occurrences >= s.cfg.FraudsterOccurrences {
		summary.Alerts = append(summary.Alerts, AlertKnownFraudster)
	}
	if summary.TotalAmount > s.cfg.HighExposureAmount {
		summary.Alerts = append(summary.Alerts, AlertHighExposure)
	}

	return summary, nil
}

// Report records a confirmed fraud against every present identifier hash.
// Each hash is one atomic upsert; a partial failure is reported but does not
// roll back the hashes already recorded (occurrence counts only ever grow).
func (s *Service) Report(ctx context.Context, ids []domain.HashedIdentifier, vertical domain.Vertical, tenantID, fraudType string, amount float64) error {
	if !s.cfg.Enabled {
		return nil
	}

	now := time.Now().UTC()
	var firstErr error
	for _, id := range ids {
		if err := s.repo.UpsertConsortiumRecord(ctx, id, vertical, tenantID, fraudType, amount, now); err != nil {
			slog.Error("consortium upsert failed", "id_type", id.Type, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ScanStacking looks for the same hashed identifiers in recent transactions
// at *other* tenants. It returns the distinct tenant count and an anonymized
// sample capped to limit cross-tenant information leakage.
func (s *Service) ScanStacking(ctx context.Context, tenantID string, hashes []string) (count int, sample []string, err error) {
	if !s.cfg.Enabled || len(hashes) == 0 {
		return 0, nil, nil
	}

	since := time.Now().Add(-s.cfg.StackingWindow)
	tenants, err := s.repo.ScanStacking(ctx, tenantID, hashes, since)
	if err != nil {
		return 0, nil, fmt.Errorf("stacking scan: %w", err)
	}

	for _, t := range tenants {
		if len(sample) < s.cfg.SampleCap {
			sample = append(sample, s.hasher.Hash("tenant", t))
		}
	}
	return len(tenants), sample, nil
}

// Stats returns pool-wide aggregates for the admin API.
func (s *Service) Stats(ctx context.Context) (*domain.ConsortiumStats, error) {
	return s.repo.GetConsortiumStats(ctx)
}
