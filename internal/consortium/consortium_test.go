package consortium

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
	"github.com/Timiochukwu/sentinel/internal/repository"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "sentinel-consortium-*.db")
	if err != nil {
		t.Fatalf("temp file failed: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath})
	if err != nil {
		t.Fatalf("repository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return NewService(repo, NewHasher("test-salt"), domain.ConsortiumConfig{
		Enabled:              true,
		HashSalt:             "test-salt",
		StackingTenants:      3,
		FraudsterOccurrences: 2,
		HighExposureAmount:   5_000_000,
		StackingWindow:       7 * 24 * time.Hour,
		SampleCap:            5,
	})
}

func TestHasherDeterministic(t *testing.T) {
	h := NewHasher("salt")

	a := h.Hash(domain.IdentifierEmail, "User@Example.com ")
	b := h.Hash(domain.IdentifierEmail, "user@example.com")
	if a != b {
		t.Error("hash must normalize case and whitespace")
	}

	// Type scoping: same value, different identifier types.
	if h.Hash(domain.IdentifierPhone, "12345678") == h.Hash(domain.IdentifierID, "12345678") {
		t.Error("hashes must be scoped by identifier type")
	}

	// Salt scoping: different pools never collide.
	if NewHasher("other").Hash(domain.IdentifierEmail, "x@y.z") == h.Hash(domain.IdentifierEmail, "x@y.z") {
		t.Error("hashes must depend on the salt")
	}
}

func TestHasherIdentifiers(t *testing.T) {
	h := NewHasher("salt")
	tx := &domain.Transaction{
		Enrichment: domain.Enrichment{
			DeviceFingerprint: "dev-1",
			Email:             "a@b.c",
		},
	}

	ids := h.Identifiers(tx)
	if len(ids) != 2 {
		t.Fatalf("expected 2 identifiers, got %d", len(ids))
	}
	for _, id := range ids {
		if len(id.Hash) != 64 {
			t.Errorf("hash %s is not hex sha256", id.Hash)
		}
	}
}

func TestLookupAndReport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	h := svc.Hasher()

	ids := []domain.HashedIdentifier{
		{Type: domain.IdentifierEmail, Hash: h.Hash(domain.IdentifierEmail, "fraud@x.com")},
	}
	hashes := Hashes(ids)

	t.Run("EmptyPool", func(t *testing.T) {
		summary, err := svc.Lookup(ctx, hashes)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if summary.Matched {
			t.Error("empty pool must not match")
		}
		if summary.RiskLevel != domain.RiskLow {
			t.Errorf("empty summary risk = %s, want low", summary.RiskLevel)
		}
	})

	t.Run("SingleReport", func(t *testing.T) {
		if err := svc.Report(ctx, ids, domain.VerticalLending, "tenant-a", "loan_stacking", 100000); err != nil {
			t.Fatalf("report failed: %v", err)
		}

		summary, err := svc.Lookup(ctx, hashes)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if !summary.Matched || summary.Occurrences != 1 {
			t.Errorf("summary = %+v, want 1 occurrence", summary)
		}
		if len(summary.Alerts) != 0 {
			t.Errorf("one report from one tenant must not alert: %v", summary.Alerts)
		}
	})

	t.Run("LookupIdempotent", func(t *testing.T) {
		first, _ := svc.Lookup(ctx, hashes)
		second, _ := svc.Lookup(ctx, hashes)
		if first.Occurrences != second.Occurrences || first.RiskLevel != second.RiskLevel {
			t.Errorf("repeated lookups diverged: %+v vs %+v", first, second)
		}
	})

	t.Run("AlertsAtThresholds", func(t *testing.T) {
		// Three more tenants report the same identity.
		for _, tenant := range []string{"tenant-b", "tenant-c", "tenant-d"} {
			if err := svc.Report(ctx, ids, domain.VerticalLending, tenant, "loan_stacking", 2_000_000); err != nil {
				t.Fatalf("report failed: %v", err)
			}
		}

		summary, err := svc.Lookup(ctx, hashes)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if summary.ClientCount != 4 {
			t.Errorf("client count = %d, want 4", summary.ClientCount)
		}
		wantAlerts := map[string]bool{
			AlertLoanStacking:   true, // 4 tenants >= 3
			AlertKnownFraudster: true, // 4 occurrences >= 2
			AlertHighExposure:   true, // 6.1M > 5M
		}
		for _, a := range summary.Alerts {
			delete(wantAlerts, a)
		}
		if len(wantAlerts) != 0 {
			t.Errorf("missing alerts %v in %v", wantAlerts, summary.Alerts)
		}
		if summary.RiskLevel != domain.RiskHigh {
			t.Errorf("risk = %s, want high at 4 occurrences", summary.RiskLevel)
		}
	})
}

func TestOccurrencesMonotonic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ids := []domain.HashedIdentifier{
		{Type: domain.IdentifierDevice, Hash: svc.Hasher().Hash(domain.IdentifierDevice, "dev-1")},
	}
	hashes := Hashes(ids)

	prev := 0
	for i := 0; i < 6; i++ {
		if err := svc.Report(ctx, ids, domain.VerticalCrypto, "tenant-a", "account_takeover", 1000); err != nil {
			t.Fatalf("report %d failed: %v", i, err)
		}
		summary, err := svc.Lookup(ctx, hashes)
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if summary.Occurrences <= prev {
			t.Fatalf("occurrences not monotonic: %d after %d", summary.Occurrences, prev)
		}
		prev = summary.Occurrences
	}

	summary, _ := svc.Lookup(ctx, hashes)
	if summary.RiskLevel != domain.RiskCritical {
		t.Errorf("risk = %s, want critical at %d occurrences", summary.RiskLevel, summary.Occurrences)
	}
}

func TestDisabledConsortium(t *testing.T) {
	svc := NewService(nil, NewHasher("salt"), domain.ConsortiumConfig{Enabled: false})
	ctx := context.Background()

	summary, err := svc.Lookup(ctx, []string{"h"})
	if err != nil || summary.Matched {
		t.Errorf("disabled lookup: summary=%+v err=%v", summary, err)
	}
	if err := svc.Report(ctx, []domain.HashedIdentifier{{Hash: "h"}}, domain.VerticalLending, "t", "f", 1); err != nil {
		t.Errorf("disabled report must be a no-op, got %v", err)
	}
	count, sample, err := svc.ScanStacking(ctx, "t", []string{"h"})
	if count != 0 || sample != nil || err != nil {
		t.Errorf("disabled scan: %d %v %v", count, sample, err)
	}
}
