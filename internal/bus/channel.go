package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

// ChannelBus implements domain.EventBus on buffered Go channels. It is the
// Community tier bus: single-process, best-effort delivery. A full
// subscriber buffer drops the message rather than stalling the publisher,
// which matches the scoring path's fail-soft posture.
type ChannelBus struct {
	mu      sync.RWMutex
	buffer  int
	subs    map[string][]*chanSub // key: tenant|topic
	closed  bool
}

type chanSub struct {
	id     string
	topic  string
	inbox  chan *domain.Message
	cancel context.CancelFunc
	parent *ChannelBus
	key    string
}

// NewChannelBus creates a channel-based event bus.
func NewChannelBus(buffer int) *ChannelBus {
	if buffer <= 0 {
		buffer = 1000
	}
	return &ChannelBus{
		buffer: buffer,
		subs:   make(map[string][]*chanSub),
	}
}

// Publish delivers a message to every subscriber of (tenantID, topic).
func (b *ChannelBus) Publish(ctx context.Context, tenantID string, topic string, payload []byte) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	targets := b.subs[tenantID+"|"+topic]
	b.mu.RUnlock()

	msg := &domain.Message{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Topic:     topic,
		Payload:   payload,
		Metadata:  map[string]string{},
		Timestamp: time.Now().UnixNano(),
	}

	for _, sub := range targets {
		select {
		case sub.inbox <- msg:
		default:
			// Subscriber is lagging; drop rather than block the publisher.
		}
	}
	return nil
}

// Subscribe registers a handler and starts draining its inbox.
func (b *ChannelBus) Subscribe(ctx context.Context, tenantID string, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenantID is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("bus is closed")
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &chanSub{
		id:     uuid.New().String(),
		topic:  topic,
		inbox:  make(chan *domain.Message, b.buffer),
		cancel: cancel,
		parent: b,
		key:    tenantID + "|" + topic,
	}
	b.subs[sub.key] = append(b.subs[sub.key], sub)

	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-sub.inbox:
				if !ok {
					return
				}
				_ = handler(subCtx, msg)
			}
		}
	}()

	return sub, nil
}

// Request publishes and waits for a single reply on an ephemeral topic.
func (b *ChannelBus) Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error) {
	replyTopic := topic + ".reply." + uuid.New().String()
	replyCh := make(chan []byte, 1)

	sub, err := b.Subscribe(ctx, tenantID, replyTopic, func(_ context.Context, msg *domain.Message) error {
		select {
		case replyCh <- msg.Payload:
		default:
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	if err := b.Publish(ctx, tenantID, topic, payload); err != nil {
		return nil, err
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		return nil, fmt.Errorf("request timeout")
	}
}

// Ping reports bus health.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus is closed")
	}
	return nil
}

// Close cancels all subscriptions.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.cancel()
		}
	}
	b.subs = make(map[string][]*chanSub)
	return nil
}

// Unsubscribe stops delivery and removes the subscription from the bus.
func (s *chanSub) Unsubscribe() error {
	s.cancel()

	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()
	subs := s.parent.subs[s.key]
	for i, candidate := range subs {
		if candidate.id == s.id {
			s.parent.subs[s.key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

// Topic returns the subscribed topic.
func (s *chanSub) Topic() string {
	return s.topic
}
