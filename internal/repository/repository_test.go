package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "sentinel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:        "tx-001",
			TenantID:  tenantID,
			UserID:    "user-001",
			Type:      "loan_application",
			Vertical:  domain.VerticalLending,
			Amount:    50000.00,
			Currency:  "NGN",
			Timestamp: time.Now().UTC(),
			CreatedAt: time.Now().UTC(),
			Enrichment: domain.Enrichment{
				DeviceFingerprint: "device-abc",
				Email:             "user@example.com",
			},
			Metadata: map[string]any{"source": "api"},
		}
		ids := []domain.HashedIdentifier{
			{Type: domain.IdentifierDevice, Hash: "hash-device-abc"},
			{Type: domain.IdentifierEmail, Hash: "hash-email-abc"},
		}

		if err := repo.SaveTransaction(ctx, tenantID, tx, ids); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, tenantID, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if retrieved.ID != tx.ID {
			t.Errorf("expected ID %s, got %s", tx.ID, retrieved.ID)
		}
		if retrieved.Amount != tx.Amount {
			t.Errorf("expected Amount %.2f, got %.2f", tx.Amount, retrieved.Amount)
		}
		if retrieved.Vertical != domain.VerticalLending {
			t.Errorf("expected vertical lending, got %s", retrieved.Vertical)
		}
		if retrieved.Enrichment.DeviceFingerprint != "device-abc" {
			t.Errorf("enrichment lost on roundtrip: %+v", retrieved.Enrichment)
		}
		if retrieved.Enrichment.Email != "" {
			t.Errorf("raw email must not survive storage, got %q", retrieved.Enrichment.Email)
		}
		if len(retrieved.IdentifierHashes) != 2 {
			t.Errorf("expected 2 stored identifier hashes, got %+v", retrieved.IdentifierHashes)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_, err := repo.GetTransaction(ctx, "tenant-002", "tx-001")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		tx := &domain.Transaction{ID: "tx-test"}

		if err := repo.SaveTransaction(ctx, "", tx, nil); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := repo.GetTransaction(ctx, "", "tx-001"); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("AttachOutcome", func(t *testing.T) {
		fb := &domain.Feedback{
			TransactionID: "tx-001",
			ActualOutcome: domain.OutcomeFraud,
			FraudType:     "loan_stacking",
			AmountSaved:   50000,
		}
		if err := repo.AttachOutcome(ctx, tenantID, fb); err != nil {
			t.Fatalf("AttachOutcome failed: %v", err)
		}

		// Unknown transaction must not silently succeed.
		fb.TransactionID = "nonexistent"
		if err := repo.AttachOutcome(ctx, tenantID, fb); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("SaveAndGetEvaluation", func(t *testing.T) {
		ml := 0.42
		eval := &domain.Evaluation{
			ID:       "eval-001",
			TenantID: tenantID,
			TxID:     "tx-001",
			Score:    72.5,
			Level:    domain.RiskHigh,
			Decision: domain.DecisionDecline,
			Flags: []domain.FraudFlag{
				{Rule: "velocity_burst_1m", Severity: domain.SeverityHigh, Score: 25, Message: "6 events in 60s"},
			},
			ConsortiumAlerts: []string{"known_fraudster"},
			Recommendation:   "decline and review account",
			MLScore:          &ml,
			RuleScore:        72.5,
			ProcessingMs:     12,
			Degraded:         []string{"counter_store"},
			Timestamp:        time.Now().UTC(),
		}

		if err := repo.SaveEvaluation(ctx, tenantID, eval); err != nil {
			t.Fatalf("SaveEvaluation failed: %v", err)
		}

		retrieved, err := repo.GetEvaluation(ctx, tenantID, eval.ID)
		if err != nil {
			t.Fatalf("GetEvaluation failed: %v", err)
		}
		if retrieved.Score != eval.Score {
			t.Errorf("expected Score %.2f, got %.2f", eval.Score, retrieved.Score)
		}
		if retrieved.Decision != domain.DecisionDecline {
			t.Errorf("expected decision decline, got %s", retrieved.Decision)
		}
		if len(retrieved.Flags) != 1 || retrieved.Flags[0].Rule != "velocity_burst_1m" {
			t.Errorf("flags lost on roundtrip: %+v", retrieved.Flags)
		}
		if retrieved.MLScore == nil || *retrieved.MLScore != ml {
			t.Errorf("ml score lost on roundtrip: %v", retrieved.MLScore)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetTransaction(ctx, tenantID, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetEvaluation(ctx, tenantID, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestConsortiumRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()
	id := domain.HashedIdentifier{Type: domain.IdentifierDevice, Hash: "hash-fraud-device"}

	t.Run("UpsertAccumulates", func(t *testing.T) {
		tenants := []string{"tenant-a", "tenant-b", "tenant-a"}
		for i, tenant := range tenants {
			err := repo.UpsertConsortiumRecord(ctx, id, domain.VerticalLending, tenant, "loan_stacking", 10000, now.Add(time.Duration(i)*time.Second))
			if err != nil {
				t.Fatalf("upsert %d failed: %v", i, err)
			}
		}

		records, err := repo.GetConsortiumRecords(ctx, []string{id.Hash})
		if err != nil {
			t.Fatalf("GetConsortiumRecords failed: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		rec := records[0]
		if rec.Occurrences != 3 {
			t.Errorf("expected 3 occurrences, got %d", rec.Occurrences)
		}
		if rec.TotalAmount != 30000 {
			t.Errorf("expected total 30000, got %.0f", rec.TotalAmount)
		}
		if rec.RiskLevel != domain.RiskHigh {
			t.Errorf("expected risk high at 3 occurrences, got %s", rec.RiskLevel)
		}
		if len(rec.Tenants) != 2 {
			t.Errorf("expected 2 distinct tenants, got %v", rec.Tenants)
		}
		if len(rec.FraudTypes) != 1 || rec.FraudTypes[0] != "loan_stacking" {
			t.Errorf("unexpected fraud types: %v", rec.FraudTypes)
		}
	})

	t.Run("RiskEscalatesToCritical", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := repo.UpsertConsortiumRecord(ctx, id, domain.VerticalFintech, "tenant-c", "account_takeover", 5000, now); err != nil {
				t.Fatalf("upsert failed: %v", err)
			}
		}
		records, _ := repo.GetConsortiumRecords(ctx, []string{id.Hash})
		if records[0].RiskLevel != domain.RiskCritical {
			t.Errorf("expected critical at 5 occurrences, got %s", records[0].RiskLevel)
		}
	})

	t.Run("UnknownHashReturnsNothing", func(t *testing.T) {
		records, err := repo.GetConsortiumRecords(ctx, []string{"no-such-hash"})
		if err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := repo.GetConsortiumStats(ctx)
		if err != nil {
			t.Fatalf("GetConsortiumStats failed: %v", err)
		}
		if stats.Records != 1 {
			t.Errorf("expected 1 record, got %d", stats.Records)
		}
		if stats.Tenants != 3 {
			t.Errorf("expected 3 tenants, got %d", stats.Tenants)
		}
		if stats.CriticalHashes != 1 {
			t.Errorf("expected 1 critical hash, got %d", stats.CriticalHashes)
		}
	})
}

func TestScanStacking(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	save := func(tenant, txID string, ts time.Time) {
		t.Helper()
		tx := &domain.Transaction{
			ID: txID, TenantID: tenant, UserID: "u-" + txID,
			Type: "loan_application", Vertical: domain.VerticalLending,
			Amount: 1000, Currency: "NGN", Timestamp: ts, CreatedAt: ts,
		}
		ids := []domain.HashedIdentifier{{Type: domain.IdentifierDevice, Hash: "shared-device"}}
		if err := repo.SaveTransaction(ctx, tenant, tx, ids); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	save("lender-a", "tx-a", now)
	save("lender-b", "tx-b", now)
	save("lender-c", "tx-c", now)
	// Outside the scan window.
	save("lender-old", "tx-old", now.Add(-30*24*time.Hour))

	since := now.Add(-7 * 24 * time.Hour)
	tenants, err := repo.ScanStacking(ctx, "lender-a", []string{"shared-device"}, since)
	if err != nil {
		t.Fatalf("ScanStacking failed: %v", err)
	}
	if len(tenants) != 2 {
		t.Fatalf("expected 2 other tenants, got %v", tenants)
	}
	for _, tenant := range tenants {
		if tenant == "lender-a" {
			t.Error("scan must exclude the requesting tenant")
		}
		if tenant == "lender-old" {
			t.Error("scan must honor the time window")
		}
	}
}

func TestVerticalPolicies(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p := &domain.VerticalPolicy{
		Vertical:     domain.VerticalLending,
		Threshold:    60,
		AMLThreshold: 80,
		RuleWeights:  map[string]float64{"loan_stacking_consortium": 1.5},
		Enabled:      true,
	}
	if err := repo.SaveVerticalPolicy(ctx, p); err != nil {
		t.Fatalf("SaveVerticalPolicy failed: %v", err)
	}

	// Upsert overwrites.
	p.Threshold = 55
	if err := repo.SaveVerticalPolicy(ctx, p); err != nil {
		t.Fatalf("SaveVerticalPolicy upsert failed: %v", err)
	}

	policies, err := repo.ListVerticalPolicies(ctx)
	if err != nil {
		t.Fatalf("ListVerticalPolicies failed: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(policies))
	}
	if policies[0].Threshold != 55 {
		t.Errorf("expected threshold 55, got %.0f", policies[0].Threshold)
	}
	if policies[0].RuleWeights["loan_stacking_consortium"] != 1.5 {
		t.Errorf("rule weights lost on roundtrip: %v", policies[0].RuleWeights)
	}
}

func TestCustomRules(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &domain.CustomRule{
		ID:         "cr-001",
		TenantID:   "tenant-001",
		Name:       "large_night_transfer",
		Expression: `tx.amount > 100000.0 && context.count_1h > 2`,
		Severity:   domain.SeverityHigh,
		Score:      30,
		Verticals:  []domain.Vertical{domain.VerticalFintech},
		Enabled:    true,
	}
	if err := repo.SaveCustomRule(ctx, "tenant-001", rule); err != nil {
		t.Fatalf("SaveCustomRule failed: %v", err)
	}

	disabled := &domain.CustomRule{
		ID: "cr-002", TenantID: "tenant-001", Name: "off",
		Expression: "false", Severity: domain.SeverityLow, Score: 5,
	}
	if err := repo.SaveCustomRule(ctx, "tenant-001", disabled); err != nil {
		t.Fatalf("SaveCustomRule failed: %v", err)
	}

	rules, err := repo.ListCustomRules(ctx, "tenant-001")
	if err != nil {
		t.Fatalf("ListCustomRules failed: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected only the enabled rule, got %d", len(rules))
	}
	if rules[0].Name != "large_night_transfer" {
		t.Errorf("unexpected rule: %+v", rules[0])
	}

	other, err := repo.ListCustomRules(ctx, "tenant-002")
	if err != nil {
		t.Fatalf("ListCustomRules failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("tenant-002 saw tenant-001 rules: %d", len(other))
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "mysql"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
