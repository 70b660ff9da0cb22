package worker

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/Timiochukwu/sentinel/internal/bus"
	"github.com/Timiochukwu/sentinel/internal/consortium"
	"github.com/Timiochukwu/sentinel/internal/domain"
	"github.com/Timiochukwu/sentinel/internal/feedback"
	"github.com/Timiochukwu/sentinel/internal/repository"
)

type fixture struct {
	repo   domain.Repository
	bus    *bus.ChannelBus
	cons   *consortium.Service
	hasher *consortium.Hasher
	worker *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "sentinel-worker-*.db")
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

	eventBus := bus.NewChannelBus(10)
	t.Cleanup(func() { eventBus.Close() })

	hasher := consortium.NewHasher("test-salt")
	cons := consortium.NewService(repo, hasher, domain.ConsortiumConfig{Enabled: true})
	fb := feedback.NewService(repo, cons, eventBus, nil)

	w := NewWorker(eventBus, fb, nil)
	t.Cleanup(func() { w.Stop() })

	return &fixture{repo: repo, bus: eventBus, cons: cons, hasher: hasher, worker: w}
}

func (f *fixture) saveTransaction(t *testing.T, tenantID, txID string) {
	t.Helper()

	tx := &domain.Transaction{
		ID:        txID,
		TenantID:  tenantID,
		UserID:    "u-1",
		Type:      "loan_application",
		Vertical:  domain.VerticalLending,
		Amount:    250000,
		Currency:  "NGN",
		Timestamp: time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
		Enrichment: domain.Enrichment{
			Email:             "suspect@example.com",
			DeviceFingerprint: "dev-1",
		},
	}
	if err := f.repo.SaveTransaction(context.Background(), tenantID, tx, f.hasher.Identifiers(tx)); err != nil {
		t.Fatalf("save transaction failed: %v", err)
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerProcessesFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.saveTransaction(t, "tenant-1", "tx-1")

	if err := f.worker.Start(Config{TenantIDs: []string{"tenant-1"}}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	payload, _ := json.Marshal(domain.Feedback{
		TransactionID: "tx-1",
		ActualOutcome: domain.OutcomeFraud,
		FraudType:     "loan_stacking",
	})
	if err := f.bus.Publish(ctx, "tenant-1", domain.TopicFeedback, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	waitFor(t, func() bool {
		tx, err := f.repo.GetTransaction(ctx, "tenant-1", "tx-1")
		return err == nil && tx.Outcome == domain.OutcomeFraud
	})

	tx, err := f.repo.GetTransaction(ctx, "tenant-1", "tx-1")
	if err != nil {
		t.Fatalf("get transaction failed: %v", err)
	}
	if tx.FraudType != "loan_stacking" {
		t.Errorf("fraud type = %q, want loan_stacking", tx.FraudType)
	}
	if tx.OutcomeAt == nil {
		t.Error("outcome timestamp not set")
	}

	// Confirmed fraud must reach the shared pool.
	stats, err := f.repo.GetConsortiumStats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Records == 0 {
		t.Error("expected consortium records after confirmed fraud")
	}
}

func TestWorkerDropsMalformedPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.worker.Start(Config{TenantIDs: []string{"tenant-1"}}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if err := f.bus.Publish(ctx, "tenant-1", domain.TopicFeedback, []byte("{not json")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	// A malformed message must not take the subscription down.
	f.saveTransaction(t, "tenant-1", "tx-2")
	payload, _ := json.Marshal(domain.Feedback{
		TransactionID: "tx-2",
		ActualOutcome: domain.OutcomeLegitimate,
	})
	if err := f.bus.Publish(ctx, "tenant-1", domain.TopicFeedback, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	waitFor(t, func() bool {
		tx, err := f.repo.GetTransaction(ctx, "tenant-1", "tx-2")
		return err == nil && tx.Outcome == domain.OutcomeLegitimate
	})
}

func TestWorkerTenantScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.saveTransaction(t, "tenant-b", "tx-3")

	if err := f.worker.Start(Config{TenantIDs: []string{"tenant-a"}}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	payload, _ := json.Marshal(domain.Feedback{
		TransactionID: "tx-3",
		ActualOutcome: domain.OutcomeFraud,
	})
	if err := f.bus.Publish(ctx, "tenant-b", domain.TopicFeedback, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	tx, err := f.repo.GetTransaction(ctx, "tenant-b", "tx-3")
	if err != nil {
		t.Fatalf("get transaction failed: %v", err)
	}
	if tx.Outcome != "" {
		t.Errorf("worker for tenant-a must not process tenant-b feedback, got outcome %q", tx.Outcome)
	}
}

func TestWorkerStats(t *testing.T) {
	f := newFixture(t)

	if err := f.worker.Start(Config{TenantIDs: []string{"tenant-a", "tenant-b"}}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	stats := f.worker.GetStats()
	if stats.SubscriptionCount != 2 {
		t.Errorf("subscriptions = %d, want 2", stats.SubscriptionCount)
	}

	if err := f.worker.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if got := f.worker.GetStats().SubscriptionCount; got != 0 {
		t.Errorf("subscriptions after stop = %d, want 0", got)
	}
}
