package domain

import "time"

// Evaluation is the persisted decision record for one checked transaction.
// Its write is the audit log: a check whose evaluation cannot be saved fails.
type Evaluation struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	TxID     string `json:"txId"`

	Score    float64   `json:"score"` // 0-100
	Level    RiskLevel `json:"level"`
	Decision Decision  `json:"decision"`

	Flags            []FraudFlag `json:"flags"`
	ConsortiumAlerts []string    `json:"consortiumAlerts,omitempty"`
	Recommendation   string      `json:"recommendation"`

	// MLScore is the externally supplied probability (0.0-1.0) when the
	// blend was applied, nil otherwise.
	MLScore *float64 `json:"mlScore,omitempty"`

	RuleScore    float64   `json:"ruleScore"` // pre-blend weighted sum
	ProcessingMs int64     `json:"processingTimeMs"`
	Timestamp    time.Time `json:"timestamp"`
	Degraded     []string  `json:"degraded,omitempty"`
}

// Outcome values accepted by the feedback interface.
const (
	OutcomeFraud      = "fraud"
	OutcomeLegitimate = "legitimate"
)

// Feedback records a transaction's true outcome after investigation.
type Feedback struct {
	TransactionID string  `json:"transactionId"`
	ActualOutcome string  `json:"actualOutcome"` // fraud | legitimate
	FraudType     string  `json:"fraudType,omitempty"`
	AmountSaved   float64 `json:"amountSaved,omitempty"`
}

// Validate checks feedback required fields.
func (f *Feedback) Validate() error {
	if f.TransactionID == "" {
		return ErrInvalidInput
	}
	if f.ActualOutcome != OutcomeFraud && f.ActualOutcome != OutcomeLegitimate {
		return ErrInvalidInput
	}
	return nil
}
