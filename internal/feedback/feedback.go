// Package feedback applies confirmed transaction outcomes.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Timiochukwu/sentinel/internal/consortium"
	"github.com/Timiochukwu/sentinel/internal/domain"
)

// Service records outcomes and propagates confirmed fraud into the
// consortium pool. Used synchronously by the API and asynchronously by the
// feedback worker, so both paths behave identically.
type Service struct {
	repo       domain.Repository
	consortium *consortium.Service
	bus        domain.EventBus
	logger     *slog.Logger
}

// NewService creates a feedback service. The bus is optional.
func NewService(repo domain.Repository, cons *consortium.Service, bus domain.EventBus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, consortium: cons, bus: bus, logger: logger}
}

// Process records the outcome on the transaction and, when the outcome is
// fraud, reports every identifier hash to the consortium.
func (s *Service) Process(ctx context.Context, tenantID string, fb *domain.Feedback) error {
	if err := fb.Validate(); err != nil {
		return fmt.Errorf("%w: transactionId and actualOutcome (fraud|legitimate) are required", domain.ErrInvalidInput)
	}

	tx, err := s.repo.GetTransaction(ctx, tenantID, fb.TransactionID)
	if err != nil {
		return fmt.Errorf("loading transaction %s: %w", fb.TransactionID, err)
	}

	if err := s.repo.AttachOutcome(ctx, tenantID, fb); err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}

	if fb.ActualOutcome != domain.OutcomeFraud {
		return nil
	}

	// Raw identity attributes were redacted before storage; the persisted
	// hashes are the identifiers.
	ids := tx.IdentifierHashes
	if len(ids) == 0 {
		s.logger.Info("fraud confirmed without identity attributes, nothing to report",
			"tenant_id", tenantID, "tx_id", tx.ID)
		return nil
	}

	amount := fb.AmountSaved
	if amount == 0 {
		amount = tx.Amount
	}
	if err := s.consortium.Report(ctx, ids, tx.Vertical, tenantID, fb.FraudType, amount); err != nil {
		// The outcome is already recorded; a pool write failure only delays
		// network intelligence.
		s.logger.Error("consortium report failed", "tenant_id", tenantID, "tx_id", tx.ID, "error", err)
	}

	s.publishAlert(ctx, tenantID, tx, fb)
	return nil
}

func (s *Service) publishAlert(ctx context.Context, tenantID string, tx *domain.Transaction, fb *domain.Feedback) {
	if s.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"event":         "fraud_confirmed",
		"transactionId": tx.ID,
		"vertical":      tx.Vertical,
		"fraudType":     fb.FraudType,
		"amount":        tx.Amount,
	})
	if err := s.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
		s.logger.Warn("alert publish failed", "tenant_id", tenantID, "tx_id", tx.ID, "error", err)
	}
}
