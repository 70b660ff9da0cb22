// Package worker consumes feedback events from the bus so that outcome
// labels submitted asynchronously still reach the ledger and the consortium
// pool.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Timiochukwu/sentinel/internal/domain"
	"github.com/Timiochukwu/sentinel/internal/feedback"
)

// Worker subscribes to the feedback topic for a set of tenants and runs
// each message through the feedback service.
type Worker struct {
	bus      domain.EventBus
	feedback *feedback.Service
	logger   *slog.Logger

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to consume feedback for.
	TenantIDs []string
}

// NewWorker creates an async feedback consumer.
func NewWorker(bus domain.EventBus, fb *feedback.Service, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		feedback: fb,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the feedback topic for every configured tenant.
func (w *Worker) Start(cfg Config) error {
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenant(tenantID); err != nil {
			w.logger.Error("failed to start feedback worker",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	w.logger.Info("feedback workers started",
		"tenant_count", len(cfg.TenantIDs),
	)
	return nil
}

func (w *Worker) startTenant(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicFeedback, func(ctx context.Context, msg *domain.Message) error {
		// Counted so Stop can wait for the invocation in flight when the
		// subscriptions are torn down.
		w.wg.Add(1)
		defer w.wg.Done()
		return w.handleFeedback(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	w.logger.Info("feedback worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicFeedback,
	)
	return nil
}

// handleFeedback decodes one feedback message and applies it. Malformed
// payloads are logged and dropped rather than redelivered forever.
func (w *Worker) handleFeedback(ctx context.Context, tenantID string, msg *domain.Message) error {
	if msg.TenantID != "" {
		tenantID = msg.TenantID
	}

	var fb domain.Feedback
	if err := json.Unmarshal(msg.Payload, &fb); err != nil {
		w.logger.Error("failed to parse feedback message",
			"message_id", msg.ID,
			"tenant_id", tenantID,
			"error", err,
		)
		return nil
	}

	if err := w.feedback.Process(ctx, tenantID, &fb); err != nil {
		w.logger.Error("feedback processing failed",
			"tx_id", fb.TransactionID,
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	w.logger.Info("feedback applied",
		"tx_id", fb.TransactionID,
		"tenant_id", tenantID,
		"outcome", fb.ActualOutcome,
	)
	return nil
}

// Stop unsubscribes everything and waits for in-flight handlers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	w.logger.Info("feedback workers stopped")
	return nil
}

// Stats returns the current subscription state.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats reports the active subscriptions.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
