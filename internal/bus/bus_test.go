package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()
	var received atomic.Int64

	sub, err := b.Subscribe(ctx, "tenant-001", domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, "tenant-001", domain.TopicDecision, []byte(`{"decision":"review"}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for received.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("message never delivered")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestChannelBusTenantIsolation(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()
	var leaked atomic.Int64

	sub, err := b.Subscribe(ctx, "tenant-a", domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		leaked.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	// Publish for a different tenant on the same topic.
	if err := b.Publish(ctx, "tenant-b", domain.TopicAlert, []byte("{}")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if leaked.Load() != 0 {
		t.Errorf("tenant-a received tenant-b's message")
	}
}

func TestChannelBusRequiresTenant(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	if err := b.Publish(context.Background(), "", domain.TopicDecision, nil); err == nil {
		t.Error("expected error for empty tenantID")
	}
	if _, err := b.Subscribe(context.Background(), "", domain.TopicDecision, nil); err == nil {
		t.Error("expected error for empty tenantID")
	}
}

func TestChannelBusUnsubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()

	ctx := context.Background()
	var received atomic.Int64

	sub, err := b.Subscribe(ctx, "tenant-001", domain.TopicFeedback, func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}

	if err := b.Publish(ctx, "tenant-001", domain.TopicFeedback, []byte("{}")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if received.Load() != 0 {
		t.Errorf("received message after unsubscribe")
	}
}

func TestChannelBusClosedRejectsPublish(t *testing.T) {
	b := NewChannelBus(10)
	b.Close()

	if err := b.Publish(context.Background(), "tenant-001", domain.TopicDecision, nil); err == nil {
		t.Error("expected error publishing to closed bus")
	}
	if err := b.Ping(context.Background()); err == nil {
		t.Error("expected ping failure on closed bus")
	}
}
