package domain

import "errors"

// Sentinel errors shared across components.
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownVertical  = errors.New("unknown vertical")
	ErrVerticalDisabled = errors.New("vertical disabled")
)

// Severity is a rule's severity tier.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskLevel classifies a final risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskRank orders levels for monotonicity comparisons.
var riskRank = map[RiskLevel]int{
	RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3,
}

// AtLeast reports whether l is at or above other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[l] >= riskRank[other]
}

// Decision is the final verdict for a transaction.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReview  Decision = "review"
	DecisionDecline Decision = "decline"
)

// FraudFlag is the output of one triggered rule. Immutable, append-only per
// evaluation.
type FraudFlag struct {
	Rule       string         `json:"rule"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Score      float64        `json:"score"` // raw 0-100, before vertical weighting
	Confidence *float64       `json:"confidence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
